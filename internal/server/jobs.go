package server

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dygy/chartgen/internal/exec"
	"github.com/dygy/chartgen/internal/pipeline"
)

// Job status constants
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusComplete   JobStatus = "complete"
	StatusFailed     JobStatus = "failed"
)

// jobTTL is how long a finished job and its files are kept
const jobTTL = 10 * time.Minute

// Job represents one asynchronous render
type Job struct {
	ID        string
	Kind      pipeline.Kind
	WorkDir   string
	CreatedAt time.Time

	mu       sync.RWMutex
	status   JobStatus
	err      string
	pdfPath  string
	cacheKey string
	log      bytes.Buffer
}

// JobView is the JSON form of a job
type JobView struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CacheKey  string    `json:"cache_key,omitempty"`
	HasPDF    bool      `json:"has_pdf"`
	Log       []string  `json:"log,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Write collects the pipeline's progress output
func (j *Job) Write(p []byte) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.log.Write(p)
}

// Status returns the current job status
func (j *Job) Status() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// PDFPath returns the rendered PDF, empty until the job completes
func (j *Job) PDFPath() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.pdfPath
}

// View snapshots the job
func (j *Job) View() JobView {
	j.mu.RLock()
	defer j.mu.RUnlock()
	v := JobView{
		ID:        j.ID,
		Kind:      string(j.Kind),
		Status:    j.status,
		Error:     j.err,
		CacheKey:  j.cacheKey,
		HasPDF:    j.pdfPath != "",
		CreatedAt: j.CreatedAt,
	}
	for _, line := range strings.Split(j.log.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			v.Log = append(v.Log, line)
		}
	}
	return v
}

func (j *Job) finish(res *pipeline.Result, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err != nil {
		j.status = StatusFailed
		j.err = err.Error()
		return
	}
	j.status = StatusComplete
	j.pdfPath = res.PDFPath
	j.cacheKey = res.CacheKey
}

// JobManager runs renders in the background
type JobManager struct {
	jobs   map[string]*Job
	mu     sync.RWMutex
	runner *exec.Runner
	logger *slog.Logger
	ttl    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJobManager creates a new job manager
func NewJobManager(runner *exec.Runner, logger *slog.Logger) *JobManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobManager{
		jobs:   make(map[string]*Job),
		runner: runner,
		logger: logger,
		ttl:    jobTTL,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit queues a render of cfg and returns immediately
func (m *JobManager) Submit(cfg pipeline.Config) (*Job, error) {
	workDir, err := os.MkdirTemp("", "chartgen-job-*")
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:        uuid.New().String(),
		Kind:      cfg.Kind,
		WorkDir:   workDir,
		CreatedAt: time.Now(),
		status:    StatusPending,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	cfg.Render = true
	cfg.Show, cfg.Play, cfg.KeepFiles = false, false, false
	cfg.OutputPath = filepath.Join(workDir, "chart.ly")
	cfg.MIDIOutputPath = filepath.Join(workDir, "chart.mid")
	cfg.WorkDir = workDir

	m.wg.Add(1)
	go m.process(job, cfg)
	return job, nil
}

// Get retrieves a job by ID
func (m *JobManager) Get(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

func (m *JobManager) process(job *Job, cfg pipeline.Config) {
	defer m.wg.Done()

	job.mu.Lock()
	job.status = StatusProcessing
	job.mu.Unlock()

	o := pipeline.NewOrchestrator(m.runner, job, false)
	res, err := o.Execute(m.ctx, cfg)
	job.finish(res, err)
	if err != nil {
		m.logger.Warn("render job failed", slog.String("job", job.ID), slog.Any("error", err))
	} else {
		m.logger.Info("render job complete", slog.String("job", job.ID), slog.String("kind", string(job.Kind)))
	}

	time.AfterFunc(m.ttl, func() { m.remove(job.ID) })
}

func (m *JobManager) remove(id string) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	delete(m.jobs, id)
	m.mu.Unlock()
	if ok {
		os.RemoveAll(job.WorkDir)
	}
}

// Close cancels running jobs and removes every job directory
func (m *JobManager) Close() {
	m.cancel()
	m.wg.Wait()

	m.mu.RLock()
	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		m.remove(id)
	}
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dygy/chartgen/internal/analysis"
	"github.com/dygy/chartgen/internal/config"
	errs "github.com/dygy/chartgen/internal/errors"
	"github.com/dygy/chartgen/internal/pipeline"
)

type passSummary struct {
	Transposition int    `json:"transposition"`
	BaseDynamic   string `json:"base_dynamic"`
	MelodyDynamic string `json:"melody_dynamic"`
	Placed        int    `json:"placed"`
	MelodyLength  int    `json:"melody_length"`
}

type chartResponse struct {
	Kind        string           `json:"kind"`
	Seed        uint64           `json:"seed"`
	Staves      int              `json:"staves"`
	LedgerLines int              `json:"ledger_lines"`
	Analysis    *analysis.Result `json:"analysis,omitempty"`
	Before      *analysis.Result `json:"single_staff,omitempty"`
	Passes      []passSummary    `json:"passes,omitempty"`
	CacheKey    string           `json:"cache_key"`
	LilyPond    string           `json:"lilypond"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleChart generates a chart and returns it as LilyPond, MIDI or JSON
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.chartConfig(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := pipeline.Generate(cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "ly":
		w.Header().Set("Content-Type", "text/x-lilypond; charset=utf-8")
		w.Write([]byte(res.LilyPond))
	case "midi":
		w.Header().Set("Content-Type", "audio/midi")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.mid"`, cfg.Kind))
		w.Write(res.MIDI)
	case "json":
		resp := chartResponse{
			Kind:        string(res.Kind),
			Seed:        cfg.Seed,
			Staves:      res.Staves,
			LedgerLines: res.LedgerLines(),
			Analysis:    res.Analysis,
			Before:      res.Before,
			CacheKey:    cfg.CacheKey().String(),
			LilyPond:    res.LilyPond,
		}
		for _, p := range res.Passes {
			resp.Passes = append(resp.Passes, passSummary{
				Transposition: p.Pass.Transposition,
				BaseDynamic:   p.Pass.BaseDynamic,
				MelodyDynamic: p.Pass.MelodyDynamic,
				Placed:        len(p.PoolIndexes),
				MelodyLength:  p.MelodyLength,
			})
		}
		s.writeJSON(w, http.StatusOK, resp)
	default:
		s.writeError(w, fmt.Errorf("%w: format %q", errBadParam, format))
	}
}

// handleRender queues a LilyPond render of the requested chart
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.chartConfig(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := cfg.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	job, err := s.jobs.Submit(cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/jobs/"+job.ID)
	s.writeJSON(w, http.StatusAccepted, job.View())
}

// handleJob reports the state of a render job
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, job.View())
}

// handleJobPDF serves the PDF of a completed job
func (s *Server) handleJobPDF(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if job.Status() != StatusComplete || job.PDFPath() == "" {
		http.Error(w, "job has no PDF", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, job.PDFPath())
}

// chartConfig overlays the request's query parameters on the server settings
func (s *Server) chartConfig(r *http.Request) (pipeline.Config, error) {
	kind, err := pipeline.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return pipeline.Config{}, err
	}

	settings := *s.config.Settings
	if err := applyQuery(&settings, r.URL.Query()); err != nil {
		return pipeline.Config{}, err
	}
	if err := settings.Validate(); err != nil {
		return pipeline.Config{}, fmt.Errorf("%w: %w", errBadParam, err)
	}

	cfg, err := pipeline.FromSettings(&settings, kind)
	if err != nil {
		return pipeline.Config{}, err
	}
	cfg.UseCache = false
	return cfg, nil
}

func applyQuery(c *config.Config, q url.Values) error {
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: seed %q", errBadParam, v)
		}
		c.Seed = seed
	}
	if v := q.Get("count"); v != "" {
		n, err := boundedInt("count", v)
		if err != nil {
			return err
		}
		c.Count = n
	}
	if v := q.Get("pool"); v != "" {
		n, err := boundedInt("pool", v)
		if err != nil {
			return err
		}
		c.PoolSize = n
	}
	if v := q.Get("low"); v != "" {
		c.Low = v
	}
	if v := q.Get("high"); v != "" {
		c.High = v
	}
	if v := q.Get("melody"); v != "" {
		c.Melody = v
	}
	return nil
}

var errBadParam = errors.New("bad query parameter")

// maxDraws caps count and pool so one request cannot exhaust the server
const maxDraws = 10000

func boundedInt(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", errBadParam, name, v)
	}
	if n > maxDraws {
		return 0, fmt.Errorf("%w: %s %d above limit %d", errBadParam, name, n, maxDraws)
	}
	return n, nil
}

// statusFor maps pipeline errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadParam),
		errors.Is(err, errs.ErrInvalidRange),
		errors.Is(err, errs.ErrEmptyVoice),
		errors.Is(err, errs.ErrInvalidNotation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrLookup):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

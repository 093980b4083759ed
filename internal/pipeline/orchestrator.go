package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dygy/chartgen/internal/cache"
	"github.com/dygy/chartgen/internal/enfilade"
	errs "github.com/dygy/chartgen/internal/errors"
	"github.com/dygy/chartgen/internal/exec"
	"github.com/dygy/chartgen/internal/progress"
	"github.com/dygy/chartgen/internal/workspace"
)

// Orchestrator coordinates the full chart pipeline
type Orchestrator struct {
	runner   *exec.Runner
	progress *progress.Reporter
}

// NewOrchestrator creates a new pipeline orchestrator
func NewOrchestrator(runner *exec.Runner, out io.Writer, verbose bool) *Orchestrator {
	return &Orchestrator{
		runner:   runner,
		progress: progress.NewReporter(out, verbose),
	}
}

// ChordChart builds a chart of block chords
func (o *Orchestrator) ChordChart(ctx context.Context, cfg Config) (*Result, error) {
	cfg.Kind = KindChords
	return o.Execute(ctx, cfg)
}

// ArpeggioChart builds a chart of arpeggiated chords
func (o *Orchestrator) ArpeggioChart(ctx context.Context, cfg Config) (*Result, error) {
	cfg.Kind = KindArpeggios
	return o.Execute(ctx, cfg)
}

// Enfilade builds an enfilade around cfg.Melody
func (o *Orchestrator) Enfilade(ctx context.Context, cfg Config) (*Result, error) {
	cfg.Kind = KindEnfilade
	return o.Execute(ctx, cfg)
}

// Execute runs the full pipeline
func (o *Orchestrator) Execute(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Show {
		cfg.Render = true
	}

	// Stage 1: Validate
	o.progress.StartStage(progress.StageValidate)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o.progress.StageComplete("%s, seed %d, range %s", cfg.Kind, cfg.Seed, cfg.Range)

	var chartCache *cache.ChartCache
	if cfg.UseCache && cfg.CacheDir != "" {
		c, err := cache.New(cfg.CacheDir)
		if err != nil {
			o.progress.Warning("cache disabled: %v", err)
		} else {
			chartCache = c
		}
	}

	// Stage 2: Generate
	o.progress.StartStage(progress.StageGenerate)
	key := cfg.CacheKey()
	var res *Result
	if chartCache != nil {
		if cached, ok := chartCache.Get(key); ok {
			res = &Result{
				Kind:          cfg.Kind,
				LilyPond:      cached.LilyPond,
				MIDI:          cached.MIDI,
				Staves:        cached.Staves,
				CacheKey:      key.String(),
				OutputVersion: cached.Version,
				FromCache:     true,
			}
			o.progress.StageComplete("Using cached chart (version %d)", cached.Version)
			o.warnIncompletePasses(cached.Metadata)
		}
	}
	if res == nil {
		generated, err := Generate(cfg)
		if err != nil {
			return nil, err
		}
		res = generated
		res.CacheKey = key.String()
		o.reportGeneration(cfg, res)
	}

	// Stage 3: Layout
	o.progress.StartStage(progress.StageLayout)
	switch {
	case res.Analysis != nil && res.Before != nil:
		o.progress.StageComplete("%d staves, %d ledger lines (%d on a single staff)", res.Staves, res.Analysis.Total, res.Before.Total)
		for _, s := range res.Analysis.PerStaff {
			o.progress.Update("%s (%s): %d pitches, %d ledger lines", s.Name, s.Clef, s.Pitches, s.LedgerLines)
		}
	default:
		o.progress.StageComplete("%d staves", res.Staves)
	}
	for _, st := range res.Score.Staves {
		o.progress.Update("%s: %d events", st.Name, st.Events())
	}

	// Stage 4: Write
	o.progress.StartStage(progress.StageWrite)
	if err := o.writeOutputs(cfg, res); err != nil {
		return nil, err
	}
	if chartCache != nil && !res.FromCache {
		out := &cache.CachedOutput{
			Kind:        string(cfg.Kind),
			LilyPond:    res.LilyPond,
			MIDI:        res.MIDI,
			Staves:      res.Staves,
			LedgerLines: res.LedgerLines(),
			Metadata: map[string]string{
				"seed":  fmt.Sprint(cfg.Seed),
				"range": cfg.Range.String(),
			},
		}
		for _, p := range res.Passes {
			out.Metadata[passKey(p.Index)] = fmt.Sprintf("%d/%d", len(p.PoolIndexes), p.MelodyLength)
		}
		if err := chartCache.Save(key, out); err != nil {
			o.progress.Warning("cache save failed: %v", err)
		} else {
			res.OutputVersion = out.Version
			o.progress.Update("Cached as %s v%d", key, out.Version)
		}
	}

	// Stage 5: Render
	o.progress.StartStage(progress.StageRender)
	if cfg.Render || cfg.Play {
		if err := o.render(ctx, cfg, res); err != nil {
			return nil, err
		}
	} else {
		o.progress.StageComplete("Skipped (use --render to typeset)")
	}

	o.progress.Done(cfg.OutputPath)
	return res, nil
}

func (o *Orchestrator) reportGeneration(cfg Config, res *Result) {
	switch cfg.Kind {
	case KindEnfilade:
		picked := 0
		for _, p := range res.Passes {
			picked += len(p.PoolIndexes)
			o.progress.Update("Pass %d (+%d, %s/%s): %d of %d melody pitches placed",
				p.Index+1, p.Pass.Transposition, p.Pass.BaseDynamic, p.Pass.MelodyDynamic,
				len(p.PoolIndexes), p.MelodyLength)
			if !p.Complete() {
				o.progress.Warning("pass %d placed only %d of %d melody pitches", p.Index+1, len(p.PoolIndexes), p.MelodyLength)
			}
		}
		o.progress.StageComplete("%d arpeggios selected over %d passes", picked, len(res.Passes))
	default:
		o.progress.StageComplete("%d chords in %s", cfg.Count, cfg.Range)
	}
}

func passKey(i int) string {
	return fmt.Sprintf("pass%d", i+1)
}

// warnIncompletePasses repeats, for a cached enfilade, the warnings about
// passes that could not place every melody pitch
func (o *Orchestrator) warnIncompletePasses(meta map[string]string) {
	for i := range enfilade.Passes {
		v, ok := meta[passKey(i)]
		if !ok {
			continue
		}
		var placed, length int
		if _, err := fmt.Sscanf(v, "%d/%d", &placed, &length); err != nil {
			continue
		}
		if placed < length {
			o.progress.Warning("pass %d placed only %d of %d melody pitches", i+1, placed, length)
		}
	}
}

func (o *Orchestrator) writeOutputs(cfg Config, res *Result) error {
	if cfg.OutputPath != "" {
		if err := os.WriteFile(cfg.OutputPath, []byte(res.LilyPond), 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		o.progress.StageComplete("LilyPond: %s", cfg.OutputPath)
	}
	if cfg.MIDIOutputPath != "" {
		if err := os.WriteFile(cfg.MIDIOutputPath, res.MIDI, 0644); err != nil {
			return fmt.Errorf("write midi: %w", err)
		}
		o.progress.StageComplete("MIDI: %s", cfg.MIDIOutputPath)
	}
	return nil
}

// render typesets the chart in a workspace, then hands the results to the
// viewer and player. Viewer and player failures only warn.
func (o *Orchestrator) render(ctx context.Context, cfg Config, res *Result) error {
	ws, err := workspace.Create(cfg.WorkDir)
	if err != nil {
		return err
	}
	keep := cfg.KeepFiles
	defer func() {
		if keep {
			res.OutputDir = ws.Dir
			return
		}
		ws.Cleanup()
	}()

	if _, err := ws.WriteFile(filepath.Base(ws.MIDI()), res.MIDI); err != nil {
		return err
	}
	if res.Analysis != nil {
		data, err := json.MarshalIndent(res.Analysis, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal analysis: %w", err)
		}
		if _, err := ws.WriteFile(filepath.Base(ws.AnalysisJSON()), data); err != nil {
			return err
		}
	}

	if cfg.Render {
		if _, err := ws.WriteFile(filepath.Base(ws.Score()), []byte(res.LilyPond)); err != nil {
			return err
		}
		if err := o.runner.CheckTool(o.runner.Tools.LilyPond); err != nil {
			return err
		}

		renderCtx := ctx
		if cfg.RenderTimeout > 0 {
			var cancel context.CancelFunc
			renderCtx, cancel = context.WithTimeout(ctx, cfg.RenderTimeout)
			defer cancel()
		}
		result, err := o.runner.RenderScore(renderCtx, ws.Score(), ws.OutputBase())
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		o.progress.Update("lilypond finished in %s", result.Duration.Round(time.Millisecond))

		res.PDFPath = ws.PDF()
		if cfg.OutputPath != "" {
			dst := strings.TrimSuffix(cfg.OutputPath, filepath.Ext(cfg.OutputPath)) + ".pdf"
			if err := ws.CopyOut(ws.PDF(), dst); err != nil {
				return err
			}
			res.PDFPath = dst
		} else {
			keep = true
		}
		o.progress.StageComplete("PDF: %s", res.PDFPath)
	}

	if cfg.Show {
		if err := o.optional(o.runner.Show(ctx, res.PDFPath)); err != nil {
			return err
		}
	}
	if cfg.Play {
		midiPath := cfg.MIDIOutputPath
		if midiPath == "" {
			midiPath = ws.MIDI()
		}
		if err := o.optional(o.runner.Play(ctx, midiPath)); err != nil {
			return err
		}
	}
	return nil
}

// optional turns a recoverable process failure into a warning
func (o *Orchestrator) optional(_ *exec.Result, err error) error {
	if err == nil {
		return nil
	}
	var pe *errs.ProcessError
	if errors.As(err, &pe) && pe.IsRecoverable() {
		o.progress.Warning("%s skipped: %v", pe.Stage, err)
		return nil
	}
	return err
}

package pipeline

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dygy/chartgen/internal/analysis"
	"github.com/dygy/chartgen/internal/cache"
	"github.com/dygy/chartgen/internal/chord"
	"github.com/dygy/chartgen/internal/config"
	"github.com/dygy/chartgen/internal/enfilade"
	errs "github.com/dygy/chartgen/internal/errors"
	"github.com/dygy/chartgen/internal/lilypond"
	"github.com/dygy/chartgen/internal/midi"
	"github.com/dygy/chartgen/internal/pitch"
	"github.com/dygy/chartgen/internal/random"
	"github.com/dygy/chartgen/internal/score"
	"github.com/dygy/chartgen/internal/staff"
)

// Kind selects the chart to build
type Kind string

const (
	KindChords    Kind = "chords"
	KindArpeggios Kind = "arpeggios"
	KindEnfilade  Kind = "enfilade"
)

// ParseKind validates a chart kind name
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindChords, KindArpeggios, KindEnfilade:
		return k, nil
	default:
		return "", errs.NewLookupError("chart kind", s)
	}
}

// Config holds pipeline configuration
type Config struct {
	Kind     Kind
	Seed     uint64
	Count    int // chords in a chart
	Range    pitch.Range
	Melody   score.Voice // hidden in an enfilade
	PoolSize int         // chords drawn per enfilade pass
	ChartBPM float64     // playback tempo of the chord charts

	OutputPath     string // .ly destination; the PDF lands beside it
	MIDIOutputPath string
	Render         bool
	Show           bool // implies Render
	Play           bool
	KeepFiles      bool

	UseCache      bool
	CacheDir      string
	WorkDir       string
	RenderTimeout time.Duration
}

// DefaultConfig returns default pipeline configuration
func DefaultConfig() Config {
	cfg, err := FromSettings(config.Default(), KindChords)
	if err != nil {
		panic(err)
	}
	return cfg
}

// FromSettings converts loaded settings into a pipeline configuration
func FromSettings(s *config.Config, kind Kind) (Config, error) {
	r, err := s.Range()
	if err != nil {
		return Config{}, err
	}
	var melody score.Voice
	if kind == KindEnfilade {
		if melody, err = s.MelodyVoice(); err != nil {
			return Config{}, fmt.Errorf("melody: %w", err)
		}
	}
	return Config{
		Kind:          kind,
		Seed:          s.Seed,
		Count:         s.Count,
		Range:         r,
		Melody:        melody,
		PoolSize:      s.PoolSize,
		ChartBPM:      s.ChartBPM,
		KeepFiles:     s.KeepFiles,
		UseCache:      s.UseCache,
		CacheDir:      s.CacheDir,
		RenderTimeout: 2 * time.Minute,
	}, nil
}

// Validate checks the configuration before anything is drawn
func (c Config) Validate() error {
	if _, err := ParseKind(string(c.Kind)); err != nil {
		return err
	}
	if c.Range.High <= c.Range.Low {
		return errs.NewRangeError(int(c.Range.Low), int(c.Range.High), "high must be above low")
	}
	switch c.Kind {
	case KindEnfilade:
		if len(c.Melody.NotePitches()) == 0 {
			return fmt.Errorf("melody: %w", errs.ErrEmptyVoice)
		}
		if c.PoolSize <= 0 {
			return fmt.Errorf("pool size %d must be positive", c.PoolSize)
		}
	default:
		if c.Count < 0 {
			return errs.NewRangeError(int(c.Range.Low), int(c.Range.High), fmt.Sprintf("negative chord count %d", c.Count))
		}
	}
	return nil
}

// CacheKey identifies the chart cfg produces
func (c Config) CacheKey() cache.Key {
	k := cache.Key{
		Kind: string(c.Kind),
		Seed: c.Seed,
		Low:  c.Range.Low.Name(),
		High: c.Range.High.Name(),
	}
	if c.Kind == KindEnfilade {
		k.Count = c.PoolSize
		notes := make([]string, 0, c.Melody.Len())
		for _, e := range c.Melody.Events {
			notes = append(notes, lilypond.FormatEvent(e))
		}
		k.Melody = strings.Join(notes, " ")
		k.BPM = float64(enfilade.MelodyTempo.BPM)
	} else {
		k.Count = c.Count
		k.BPM = c.ChartBPM
	}
	return k
}

// Result contains all pipeline outputs
type Result struct {
	Kind     Kind
	LilyPond string
	MIDI     []byte
	Score    score.Score

	Staves   int
	Analysis *analysis.Result // chord charts only
	Before   *analysis.Result // the same voice on one treble staff
	Passes   []enfilade.PassResult

	CacheKey      string
	OutputVersion int
	FromCache     bool
	PDFPath       string
	OutputDir     string // kept workspace, when there is one
}

// LedgerLines returns the ledger-line total of the laid-out chart
func (r *Result) LedgerLines() int {
	if r.Analysis == nil {
		return 0
	}
	return r.Analysis.Total
}

// Generate builds the chart without touching the filesystem
func Generate(cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := random.NewSeeded(cfg.Seed)
	res := &Result{Kind: cfg.Kind}

	var (
		doc lilypond.Document
		bpm float64
	)
	switch cfg.Kind {
	case KindChords, KindArpeggios:
		chords, err := chord.NewGenerator(d).GenerateChords(cfg.Count, cfg.Range)
		if err != nil {
			return nil, fmt.Errorf("generate chords: %w", err)
		}
		voice := score.NewVoice("chords", chords...)
		if cfg.Kind == KindArpeggios {
			voice = chord.Flatten("arpeggios", chord.ArpeggiateAll(chords))
		}

		staves, err := staff.ReduceLedgerLines(voice)
		if err != nil {
			return nil, fmt.Errorf("lay out staves: %w", err)
		}
		res.Score = score.Score{Group: "PianoStaff", Staves: staves}

		before, err := analysis.SingleStaff(voice)
		if err != nil {
			return nil, err
		}
		after, err := analysis.Analyze(staves)
		if err != nil {
			return nil, err
		}
		res.Before, res.Analysis = &before, &after
		doc = lilypond.NewChartDocument(res.Score)
		bpm = cfg.ChartBPM

	case KindEnfilade:
		b := enfilade.NewBuilder(d)
		b.PoolSize = cfg.PoolSize
		st, passes, err := b.Build(cfg.Melody, cfg.Range)
		if err != nil {
			return nil, fmt.Errorf("build enfilade: %w", err)
		}
		res.Score = score.Score{Staves: []score.Staff{st}}
		res.Passes = passes
		doc = lilypond.NewEnfiladeDocument(res.Score)
		bpm = float64(enfilade.MelodyTempo.BPM)
	}
	res.Staves = len(res.Score.Staves)

	ly, err := lilypond.Render(doc)
	if err != nil {
		return nil, err
	}
	res.LilyPond = ly

	var buf bytes.Buffer
	if err := midi.Write(&buf, res.Score, bpm); err != nil {
		return nil, err
	}
	res.MIDI = buf.Bytes()

	slog.Debug("chart generated",
		"kind", cfg.Kind,
		"seed", cfg.Seed,
		"staves", res.Staves,
		"ledger_lines", res.LedgerLines(),
	)
	return res, nil
}

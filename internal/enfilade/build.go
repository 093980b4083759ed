package enfilade

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/dygy/chartgen/internal/chord"
	"github.com/dygy/chartgen/internal/pitch"
	"github.com/dygy/chartgen/internal/random"
	"github.com/dygy/chartgen/internal/score"
)

// Defaults of an enfilade
const (
	DefaultPoolSize = 100
	StaffName       = "enfilade"
)

// PassResult summarizes one pass of the build
type PassResult struct {
	Index        int
	Pass         Pass
	PoolIndexes  []int
	Targets      []pitch.Pitch
	MelodyLength int
}

// Complete reports whether every melody pitch found an arpeggio
func (r PassResult) Complete() bool {
	return len(r.PoolIndexes) == r.MelodyLength
}

// Builder assembles an enfilade staff
type Builder struct {
	generator *chord.Generator
	PoolSize  int
}

// NewBuilder creates a builder drawing chords from d
func NewBuilder(d random.Drawer) *Builder {
	return &Builder{
		generator: chord.NewGenerator(d),
		PoolSize:  DefaultPoolSize,
	}
}

// Build states the melody, then runs every pass over a freshly drawn pool of
// arpeggios within r, appending the picked arpeggios after the melody.
func (b *Builder) Build(melody score.Voice, r pitch.Range) (score.Staff, []PassResult, error) {
	stated, err := FormatMelody(melody)
	if err != nil {
		return score.Staff{}, nil, fmt.Errorf("format melody: %w", err)
	}
	stated.Name = "melody"

	st := score.Staff{
		Name:   StaffName,
		Voices: []score.Voice{stated},
		With:   slices.Clone(StaffSettings),
	}

	results := make([]PassResult, 0, len(Passes))
	for i := range Passes {
		pool, err := b.pool(r)
		if err != nil {
			return score.Staff{}, nil, fmt.Errorf("pass %d: %w", i, err)
		}

		pass, err := PassAt(i)
		if err != nil {
			return score.Staff{}, nil, err
		}
		selections := Search(melody, pool, pass)

		result := PassResult{Index: i, Pass: pass, MelodyLength: len(melody.NotePitches())}
		for _, s := range selections {
			s.Voice.Name = fmt.Sprintf("pass%d_arpeggio%d", i, s.PoolIndex)
			st.Voices = append(st.Voices, s.Voice)
			result.PoolIndexes = append(result.PoolIndexes, s.PoolIndex)
			result.Targets = append(result.Targets, s.Target)
		}
		results = append(results, result)

		slog.Debug("enfilade pass",
			"pass", i,
			"transposition", pass.Transposition,
			"selected", len(selections),
			"melody", result.MelodyLength,
		)
	}
	return st, results, nil
}

// pool draws PoolSize chords and arpeggiates and formats each
func (b *Builder) pool(r pitch.Range) ([]score.Voice, error) {
	chords, err := b.generator.GenerateChords(b.PoolSize, r)
	if err != nil {
		return nil, err
	}
	voices := chord.ArpeggiateAll(chords)
	for i, v := range voices {
		formatted, err := FormatArpeggio(v)
		if err != nil {
			return nil, fmt.Errorf("format arpeggio %d: %w", i, err)
		}
		voices[i] = formatted
	}
	return voices, nil
}

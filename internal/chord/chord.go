package chord

import (
	"fmt"

	errs "github.com/dygy/chartgen/internal/errors"
	"github.com/dygy/chartgen/internal/pitch"
	"github.com/dygy/chartgen/internal/random"
	"github.com/dygy/chartgen/internal/score"
)

// DistanceWindow bounds how far above the range low a chord may start.
// It is fixed regardless of the range width.
const DistanceWindow = 7

var (
	// BottomIntervals separate the two lowest pitches
	BottomIntervals = []int{5, 7, 9}
	// LowerIntervals stack the chord up to two thirds of the ceiling
	LowerIntervals = []int{3, 4}
	// UpperIntervals fill the rest of the chord up to the ceiling
	UpperIntervals = []int{1, 2}
)

// Duration is the written duration of generated chords
var Duration = pitch.Quarter

// Generator builds chords from pitch-dependent interval tables
type Generator struct {
	drawer random.Drawer
}

// NewGenerator creates a generator drawing from d
func NewGenerator(d random.Drawer) *Generator {
	return &Generator{drawer: d}
}

// GenerateChord builds a chord upward from bottom until it passes ceiling.
//
// The two lowest pitches are a fourth, fifth or sixth apart. Thirds are stacked
// while the top pitch is at or below two thirds of the ceiling, then seconds
// until the top passes the ceiling.
func (g *Generator) GenerateChord(bottom, ceiling pitch.Pitch) (score.Event, error) {
	if ceiling <= bottom {
		return score.Event{}, errs.NewRangeError(int(bottom), int(ceiling), "ceiling must be above bottom")
	}

	pitches := []pitch.Pitch{bottom}
	current := bottom.Add(g.drawer.Choice(BottomIntervals))
	pitches = append(pitches, current)

	threshold := pitch.Pitch(pitch.FloorDiv(int(ceiling)*2, 3))
	for current <= threshold {
		current = current.Add(g.drawer.Choice(LowerIntervals))
		pitches = append(pitches, current)
	}
	for current <= ceiling {
		current = current.Add(g.drawer.Choice(UpperIntervals))
		pitches = append(pitches, current)
	}

	return score.NewChord(pitches, Duration), nil
}

// GenerateChords builds count chords within r. Each chord starts a random
// distance of 0 to DistanceWindow semitones above r.Low and stacks up to r.High.
// The distance is drawn before the chord's intervals.
func (g *Generator) GenerateChords(count int, r pitch.Range) ([]score.Event, error) {
	if count < 0 {
		return nil, errs.NewRangeError(int(r.Low), int(r.High), fmt.Sprintf("negative chord count %d", count))
	}
	if r.High <= r.Low {
		return nil, errs.NewRangeError(int(r.Low), int(r.High), "range high must be above range low")
	}

	chords := make([]score.Event, 0, count)
	for i := range count {
		distance := g.drawer.IntRange(0, DistanceWindow)
		c, err := g.GenerateChord(r.Low.Add(distance), r.High)
		if err != nil {
			return nil, fmt.Errorf("chord %d: %w", i, err)
		}
		chords = append(chords, c)
	}
	return chords, nil
}

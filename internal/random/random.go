// Package random provides the injectable source of every random draw made while
// generating charts. Draw order is part of the output: the same seed and the same
// sequence of calls always produce the same chart.
package random

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// DefaultSeed is the seed used when none is given
const DefaultSeed uint64 = 1

// Drawer makes the two kinds of draws chart generation needs
type Drawer interface {
	// IntRange returns a uniform integer in [lo, hi]
	IntRange(lo, hi int) int
	// Choice returns one of options uniformly
	Choice(options []int) int
}

// Source is a seeded, deterministic Drawer
type Source struct {
	seed uint64
	rng  *rand.Rand
}

// NewSeeded creates a deterministic source for the given seed
func NewSeeded(seed uint64) *Source {
	return &Source{
		seed: seed,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Seed returns the seed this source was created with
func (s *Source) Seed() uint64 { return s.seed }

func (s *Source) IntRange(lo, hi int) int {
	if hi < lo {
		panic(fmt.Sprintf("random: empty range [%d, %d]", lo, hi))
	}
	return lo + s.rng.IntN(hi-lo+1)
}

func (s *Source) Choice(options []int) int {
	if len(options) == 0 {
		panic("random: choice from empty options")
	}
	return options[s.rng.IntN(len(options))]
}

// Scripted replays a fixed sequence of drawn values, for golden-output tests.
// A value that does not fit the request, or running out of values, is recorded
// in Err and answered with the smallest legal value.
type Scripted struct {
	values []int
	next   int
	err    error
}

// NewScripted creates a scripted drawer
func NewScripted(values ...int) *Scripted {
	return &Scripted{values: values}
}

// Err returns the first scripting mismatch, if any
func (s *Scripted) Err() error { return s.err }

// Remaining returns how many scripted values are left
func (s *Scripted) Remaining() int { return len(s.values) - s.next }

func (s *Scripted) pop() (int, bool) {
	if s.next >= len(s.values) {
		if s.err == nil {
			s.err = fmt.Errorf("scripted drawer exhausted after %d draws", len(s.values))
		}
		return 0, false
	}
	v := s.values[s.next]
	s.next++
	return v, true
}

func (s *Scripted) IntRange(lo, hi int) int {
	v, ok := s.pop()
	if !ok {
		return lo
	}
	if v < lo || v > hi {
		if s.err == nil {
			s.err = fmt.Errorf("draw %d: value %d outside [%d, %d]", s.next, v, lo, hi)
		}
		return lo
	}
	return v
}

func (s *Scripted) Choice(options []int) int {
	v, ok := s.pop()
	if !ok {
		return options[0]
	}
	if !slices.Contains(options, v) {
		if s.err == nil {
			s.err = fmt.Errorf("draw %d: value %d not in %v", s.next, v, options)
		}
		return options[0]
	}
	return v
}

// Draw is one recorded draw
type Draw struct {
	Kind  string // "range" or "choice"
	Value int
}

// Recorder wraps a Drawer and keeps every value it hands out
type Recorder struct {
	inner Drawer
	Draws []Draw
}

// NewRecorder wraps inner
func NewRecorder(inner Drawer) *Recorder {
	return &Recorder{inner: inner}
}

func (r *Recorder) IntRange(lo, hi int) int {
	v := r.inner.IntRange(lo, hi)
	r.Draws = append(r.Draws, Draw{Kind: "range", Value: v})
	return v
}

func (r *Recorder) Choice(options []int) int {
	v := r.inner.Choice(options)
	r.Draws = append(r.Draws, Draw{Kind: "choice", Value: v})
	return v
}

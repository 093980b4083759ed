// Package score is the abstract score description handed to the renderer: staves
// holding sequential voices of timed events, plus formatting directives.
//
// Every container owns its events by value. Transformations build new voices
// instead of editing shared ones, so there are no parent back-references.
package score

import (
	"fmt"
	"slices"

	"github.com/dygy/chartgen/internal/pitch"
)

// Kind is the closed set of event variants
type Kind int

const (
	KindNote Kind = iota
	KindChord
	KindRest
	KindSkip
)

func (k Kind) String() string {
	switch k {
	case KindNote:
		return "note"
	case KindChord:
		return "chord"
	case KindRest:
		return "rest"
	case KindSkip:
		return "skip"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Command is a raw LilyPond command attached to an event
type Command struct {
	Text  string
	After bool // emit after the event instead of before it
}

// Tempo is a metronome mark
type Tempo struct {
	Unit pitch.Duration
	BPM  int
}

// Event is one timed leaf: a note, a chord, a rest or a skip
type Event struct {
	Kind     Kind
	Pitches  []pitch.Pitch // one for notes, ascending for chords, none otherwise
	Duration pitch.Duration

	Dynamic       string
	Articulations []string // postfix marks such as "^-"
	Spanners      []string // postfix spanner marks such as "[" or "\\("
	Commands      []Command
	Tempo         *Tempo
	TimeSignature *pitch.Duration
}

// NewNote creates a single-pitch event
func NewNote(p pitch.Pitch, d pitch.Duration) Event {
	return Event{Kind: KindNote, Pitches: []pitch.Pitch{p}, Duration: d}
}

// NewChord creates a chord event, keeping pitches in the given order
func NewChord(ps []pitch.Pitch, d pitch.Duration) Event {
	return Event{Kind: KindChord, Pitches: slices.Clone(ps), Duration: d}
}

// NewRest creates a rest
func NewRest(d pitch.Duration) Event {
	return Event{Kind: KindRest, Duration: d}
}

// NewSkip creates an invisible rest
func NewSkip(d pitch.Duration) Event {
	return Event{Kind: KindSkip, Duration: d}
}

// IsPitched reports whether the event sounds
func (e Event) IsPitched() bool {
	return e.Kind == KindNote || e.Kind == KindChord
}

// Pitch returns the single pitch of a note
func (e Event) Pitch() pitch.Pitch {
	if e.Kind != KindNote || len(e.Pitches) == 0 {
		panic(fmt.Sprintf("score: Pitch on %s event", e.Kind))
	}
	return e.Pitches[0]
}

// HasPitch reports whether p sounds in the event
func (e Event) HasPitch(p pitch.Pitch) bool {
	return e.IsPitched() && slices.Contains(e.Pitches, p)
}

// Clone returns a deep copy
func (e Event) Clone() Event {
	c := e
	c.Pitches = slices.Clone(e.Pitches)
	c.Articulations = slices.Clone(e.Articulations)
	c.Spanners = slices.Clone(e.Spanners)
	c.Commands = slices.Clone(e.Commands)
	if e.Tempo != nil {
		t := *e.Tempo
		c.Tempo = &t
	}
	if e.TimeSignature != nil {
		ts := *e.TimeSignature
		c.TimeSignature = &ts
	}
	return c
}

// AsSkip returns a skip of the same duration that keeps the event's structural
// commands (breaks, staff changes) but drops everything tied to its pitches.
func (e Event) AsSkip() Event {
	s := NewSkip(e.Duration)
	s.Commands = slices.Clone(e.Commands)
	if e.TimeSignature != nil {
		ts := *e.TimeSignature
		s.TimeSignature = &ts
	}
	return s
}

// Before appends a command emitted before the event
func (e *Event) Before(text string) {
	e.Commands = append(e.Commands, Command{Text: text})
}

// After appends a command emitted after the event
func (e *Event) After(text string) {
	e.Commands = append(e.Commands, Command{Text: text, After: true})
}

// Voice is an ordered sequence of events
type Voice struct {
	Name      string
	Events    []Event
	Overrides []string // voice-level \override lines
}

// NewVoice creates a voice from the given events (copied)
func NewVoice(name string, events ...Event) Voice {
	v := Voice{Name: name, Events: make([]Event, 0, len(events))}
	for _, e := range events {
		v.Events = append(v.Events, e.Clone())
	}
	return v
}

// Len returns the number of events
func (v Voice) Len() int { return len(v.Events) }

// Clone returns a deep copy
func (v Voice) Clone() Voice {
	c := NewVoice(v.Name, v.Events...)
	c.Overrides = slices.Clone(v.Overrides)
	return c
}

// Pitches returns every sounding pitch in event order
func (v Voice) Pitches() []pitch.Pitch {
	var ps []pitch.Pitch
	for _, e := range v.Events {
		if e.IsPitched() {
			ps = append(ps, e.Pitches...)
		}
	}
	return ps
}

// NotePitches returns the pitches of single-note events only, in order
func (v Voice) NotePitches() []pitch.Pitch {
	var ps []pitch.Pitch
	for _, e := range v.Events {
		if e.Kind == KindNote {
			ps = append(ps, e.Pitch())
		}
	}
	return ps
}

// Contains reports whether p sounds anywhere in the voice
func (v Voice) Contains(p pitch.Pitch) bool {
	for _, e := range v.Events {
		if e.HasPitch(p) {
			return true
		}
	}
	return false
}

// Staff holds sequential voices under one clef
type Staff struct {
	Name   string
	Clef   string // LilyPond clef name, empty for the default
	Voices []Voice
	With   []string // context settings
}

// Events returns the total number of events across the staff's voices
func (s Staff) Events() int {
	n := 0
	for _, v := range s.Voices {
		n += v.Len()
	}
	return n
}

// Pitches returns every sounding pitch on the staff
func (s Staff) Pitches() []pitch.Pitch {
	var ps []pitch.Pitch
	for _, v := range s.Voices {
		ps = append(ps, v.Pitches()...)
	}
	return ps
}

// Score is the root of the description
type Score struct {
	Group  string // "PianoStaff" to brace the staves, empty for none
	Staves []Staff
	With   []string // score context settings
}

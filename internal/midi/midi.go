// Package midi renders a score as a Standard MIDI File for playback
package midi

import (
	"fmt"
	"io"
	"log/slog"

	errs "github.com/dygy/chartgen/internal/errors"
	"github.com/dygy/chartgen/internal/score"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// File layout constants
const (
	TicksPerQuarter = 960
	Program         = 14 // General MIDI tubular bells, the nearest to a carillon
	DefaultVelocity = 80
)

var velocities = map[string]uint8{
	"ppp": 16,
	"pp":  33,
	"p":   49,
	"mp":  64,
	"mf":  80,
	"f":   96,
	"ff":  112,
	"fff": 127,
}

// Velocity returns the note-on velocity of a dynamic mark
func Velocity(dynamic string) (uint8, error) {
	v, ok := velocities[dynamic]
	if !ok {
		return 0, errs.NewLookupError("dynamic", dynamic)
	}
	return v, nil
}

// FromScore builds a MIDI file with a tempo track followed by one track per
// staff. Voices of a staff play one after another; a dynamic holds until the
// next one in the same voice.
func FromScore(s score.Score, bpm float64) (*smf.SMF, error) {
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(bpm))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return nil, fmt.Errorf("add tempo track: %w", err)
	}

	for i, st := range s.Staves {
		ch := uint8(i % 16)
		track, err := staffTrack(st, ch)
		if err != nil {
			return nil, fmt.Errorf("staff %q: %w", st.Name, err)
		}
		if err := sm.Add(track); err != nil {
			return nil, fmt.Errorf("add track %q: %w", st.Name, err)
		}
	}

	slog.Debug("midi file built", "tracks", len(sm.Tracks), "bpm", bpm)
	return sm, nil
}

func staffTrack(st score.Staff, ch uint8) (smf.Track, error) {
	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(st.Name))
	track.Add(0, midi.ProgramChange(ch, Program))

	var pending uint32
	for _, v := range st.Voices {
		velocity := uint8(DefaultVelocity)
		for _, e := range v.Events {
			if e.Dynamic != "" {
				vel, err := Velocity(e.Dynamic)
				if err != nil {
					return nil, err
				}
				velocity = vel
			}

			ticks := uint32(e.Duration.Ticks(TicksPerQuarter))
			if !e.IsPitched() {
				pending += ticks
				continue
			}

			keys, err := midiKeys(e)
			if err != nil {
				return nil, err
			}
			for _, k := range keys {
				track.Add(pending, midi.NoteOn(ch, k, velocity))
				pending = 0
			}
			for _, k := range keys {
				track.Add(ticks, midi.NoteOff(ch, k))
				ticks = 0
			}
		}
	}
	track.Close(pending)
	return track, nil
}

func midiKeys(e score.Event) ([]uint8, error) {
	keys := make([]uint8, 0, len(e.Pitches))
	for _, p := range e.Pitches {
		k := p.MIDI()
		if k < 0 || k > 127 {
			return nil, errs.NewRangeError(k, k, fmt.Sprintf("pitch %s is outside the MIDI key range", p))
		}
		keys = append(keys, uint8(k))
	}
	return keys, nil
}

// Write encodes the score as MIDI to w
func Write(w io.Writer, s score.Score, bpm float64) error {
	sm, err := FromScore(s, bpm)
	if err != nil {
		return err
	}
	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}

// WriteFile encodes the score as MIDI to path
func WriteFile(path string, s score.Score, bpm float64) error {
	sm, err := FromScore(s, bpm)
	if err != nil {
		return err
	}
	if err := sm.WriteFile(path); err != nil {
		return fmt.Errorf("write midi %s: %w", path, err)
	}
	return nil
}

// Package staff spreads a voice over several staves so each pitch sits in the
// register of its own staff, which keeps ledger lines to a minimum.
package staff

import (
	"fmt"

	errs "github.com/dygy/chartgen/internal/errors"
	"github.com/dygy/chartgen/internal/pitch"
	"github.com/dygy/chartgen/internal/score"
)

// PartitionByPitch splits v at split. Pitches at or above split go to above,
// the rest to below. Both outputs keep one event per input event: a note or
// chord with nothing left for a side becomes a skip of the same duration there,
// and rests are copied to both sides.
func PartitionByPitch(v score.Voice, split pitch.Pitch) (above, below score.Voice) {
	above = score.Voice{Name: v.Name, Overrides: append([]string(nil), v.Overrides...)}
	below = score.Voice{Name: v.Name, Overrides: append([]string(nil), v.Overrides...)}

	for _, e := range v.Events {
		switch e.Kind {
		case score.KindNote:
			if e.Pitch() >= split {
				above.Events = append(above.Events, e.Clone())
				below.Events = append(below.Events, e.AsSkip())
			} else {
				above.Events = append(above.Events, e.AsSkip())
				below.Events = append(below.Events, e.Clone())
			}
		case score.KindChord:
			above.Events = append(above.Events, filterChord(e, func(p pitch.Pitch) bool { return p >= split }))
			below.Events = append(below.Events, filterChord(e, func(p pitch.Pitch) bool { return p < split }))
		case score.KindRest, score.KindSkip:
			above.Events = append(above.Events, e.Clone())
			below.Events = append(below.Events, e.Clone())
		default:
			panic(fmt.Sprintf("staff: partition unknown event kind %s", e.Kind))
		}
	}
	return above, below
}

// filterChord keeps the pitches matching keep, in order. An emptied chord
// becomes a skip.
func filterChord(e score.Event, keep func(pitch.Pitch) bool) score.Event {
	var kept []pitch.Pitch
	for _, p := range e.Pitches {
		if keep(p) {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return e.AsSkip()
	}
	c := e.Clone()
	c.Pitches = kept
	return c
}

// RangeBounds returns the lowest and highest pitch sounding in v
func RangeBounds(v score.Voice) (low, high pitch.Pitch, err error) {
	ps := v.Pitches()
	if len(ps) == 0 {
		return 0, 0, fmt.Errorf("range bounds of %q: %w", v.Name, errs.ErrEmptyVoice)
	}
	low, high = ps[0], ps[0]
	for _, p := range ps[1:] {
		low = min(low, p)
		high = max(high, p)
	}
	return low, high, nil
}

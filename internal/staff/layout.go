package staff

import (
	"fmt"
	"log/slog"

	"github.com/dygy/chartgen/internal/pitch"
	"github.com/dygy/chartgen/internal/score"
)

// Register boundaries tuned to the written range of a concert carillon
const (
	// TrebleSplit divides treble from bass: middle C and up is treble
	TrebleSplit pitch.Pitch = 0
	// UpperTrebleThreshold (f''') opens an octave-treble staff above it
	UpperTrebleThreshold pitch.Pitch = 29
	// LowerBassThreshold (a,,) opens an octave-bass staff below it
	LowerBassThreshold pitch.Pitch = -27
)

// Staff names
const (
	NameUpperTreble = "upper_treble"
	NameTreble      = "treble"
	NameBass        = "bass"
	NameLowerBass   = "lower_bass"
)

// Plan describes one staff of a layout
type Plan struct {
	Name string
	Clef string
	// Split is the lowest pitch the staff keeps. The bottom staff of a
	// layout keeps everything left over and has no split.
	Split    pitch.Pitch
	HasSplit bool
}

// DetermineLayout chooses the staves for v, ordered top to bottom. Treble and
// bass are always present; the octave staves are added only when v reaches
// past their thresholds.
func DetermineLayout(v score.Voice) ([]Plan, error) {
	low, high, err := RangeBounds(v)
	if err != nil {
		return nil, fmt.Errorf("determine layout: %w", err)
	}

	var plans []Plan
	if high > UpperTrebleThreshold {
		plans = append(plans, Plan{Name: NameUpperTreble, Clef: "treble^8", Split: UpperTrebleThreshold, HasSplit: true})
	}
	plans = append(plans, Plan{Name: NameTreble, Clef: "treble", Split: TrebleSplit, HasSplit: true})
	if low < LowerBassThreshold {
		plans = append(plans,
			Plan{Name: NameBass, Clef: "bass", Split: LowerBassThreshold, HasSplit: true},
			Plan{Name: NameLowerBass, Clef: "bass_8"},
		)
	} else {
		plans = append(plans, Plan{Name: NameBass, Clef: "bass"})
	}

	slog.Debug("staff layout", "voice", v.Name, "low", low, "high", high, "staves", len(plans))
	return plans, nil
}

// ReduceLedgerLines lays v out over the staves chosen by DetermineLayout.
// Each staff gets a copy of v holding only its own register, with skips
// everywhere else, so all staves stay aligned event for event.
func ReduceLedgerLines(v score.Voice) ([]score.Staff, error) {
	plans, err := DetermineLayout(v)
	if err != nil {
		return nil, err
	}

	staves := make([]score.Staff, 0, len(plans))
	remaining := v
	for _, plan := range plans {
		kept := remaining
		if plan.HasSplit {
			kept, remaining = PartitionByPitch(remaining, plan.Split)
		}
		kept.Name = plan.Name
		staves = append(staves, score.Staff{
			Name:   plan.Name,
			Clef:   plan.Clef,
			Voices: []score.Voice{kept},
		})
	}
	return staves, nil
}

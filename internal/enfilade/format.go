package enfilade

import (
	"github.com/dygy/chartgen/internal/pitch"
	"github.com/dygy/chartgen/internal/score"
	"github.com/dygy/chartgen/internal/staff"
)

// MelodyTempo is the metronome mark of the stated melody
var MelodyTempo = score.Tempo{Unit: pitch.Quarter, BPM: 40}

// MelodyDynamic is the dynamic of the stated melody
const MelodyDynamic = "f"

// FormatMelody prepares the melody statement that opens the enfilade: bass
// staff lines, tempo and dynamic at the start, a fermata and a line break at
// the end.
func FormatMelody(v score.Voice) (score.Voice, error) {
	out := v.Clone()
	if out.Len() == 0 {
		return out, nil
	}
	first := &out.Events[0]
	if err := staff.MoveStaffLines(first, staff.ClefKeyBass); err != nil {
		return out, err
	}
	tempo := MelodyTempo
	first.Tempo = &tempo
	first.Dynamic = MelodyDynamic

	last := &out.Events[out.Len()-1]
	last.Articulations = append(last.Articulations, `\fermata`)
	last.After(`\break`)

	out.Overrides = append(out.Overrides, `\override Stem.no-stem-extend = ##f`)
	return out, nil
}

// FormatArpeggio gives an arpeggio its own line: one sixteenth per measure,
// a beam and phrasing slur over the whole figure, and staff-line switches as
// it descends through the registers.
func FormatArpeggio(v score.Voice) (score.Voice, error) {
	out, err := staff.AddStaffSwitches(v)
	if err != nil {
		return out, err
	}
	if out.Len() == 0 {
		return out, nil
	}

	ts := pitch.Sixteenth
	out.Events[0].TimeSignature = &ts
	last := &out.Events[out.Len()-1]
	last.After(`\break`)

	if out.Len() > 1 {
		first := &out.Events[0]
		first.Spanners = append(first.Spanners, "[", `\(`)
		last.Spanners = append(last.Spanners, "]", `\)`)
	}

	out.Overrides = append(out.Overrides,
		`\override PhrasingSlur.ratio = #0.6`,
		`\override PhrasingSlur.height-limit = #20`,
	)
	return out, nil
}

// StaffSettings are the context settings of the enfilade staff
var StaffSettings = []string{
	`\override BarLine.stencil = ##f`,
	`\override Beam.damping = #+inf.0`,
	`\override Beam.breakable = ##t`,
	`explicitClefVisibility = #end-of-line-invisible`,
	`forceClef = ##t`,
}

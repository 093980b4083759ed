package staff

import (
	"fmt"
	"strconv"
	"strings"

	errs "github.com/dygy/chartgen/internal/errors"
	"github.com/dygy/chartgen/internal/score"
)

// ClefKey selects a staff-line position preset for moving one staff between
// registers mid-voice
type ClefKey int

const (
	ClefKeyFifteenth ClefKey = 1 // treble two octaves up
	ClefKeyTreble    ClefKey = 2
	ClefKeyBass      ClefKey = 3
)

// Glyph is a clef symbol with its staff position and transposition
type Glyph struct {
	Symbol        string
	Position      int
	Transposition int
}

var staffLinePositions = map[ClefKey][5]int{
	ClefKeyFifteenth: {18, 16, 14, 12, 10},
	ClefKeyTreble:    {4, 2, 0, -2, -4},
	ClefKeyBass:      {-8, -10, -12, -14, -16},
}

var clefGlyphs = map[ClefKey]Glyph{
	ClefKeyFifteenth: {Symbol: "clefs.G", Position: 12, Transposition: 14},
	ClefKeyTreble:    {Symbol: "clefs.G", Position: -2, Transposition: 0},
	ClefKeyBass:      {Symbol: "clefs.F", Position: -10, Transposition: 0},
}

// StaffLinePositions returns the five line positions for key
func StaffLinePositions(key ClefKey) ([5]int, error) {
	lines, ok := staffLinePositions[key]
	if !ok {
		return lines, errs.NewLookupError("clef key", int(key))
	}
	return lines, nil
}

// ClefGlyph returns the clef symbol settings for key
func ClefGlyph(key ClefKey) (Glyph, error) {
	g, ok := clefGlyphs[key]
	if !ok {
		return g, errs.NewLookupError("clef key", int(key))
	}
	return g, nil
}

// StaffLineOverride returns the LilyPond override moving the staff lines for key
func StaffLineOverride(key ClefKey) (string, error) {
	lines, err := StaffLinePositions(key)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = strconv.Itoa(l)
	}
	return `\override Staff.StaffSymbol.line-positions = #'(` + strings.Join(parts, " ") + ")", nil
}

// MoveStaffLines restarts the staff at e with the lines and clef of key
func MoveStaffLines(e *score.Event, key ClefKey) error {
	override, err := StaffLineOverride(key)
	if err != nil {
		return err
	}
	glyph, err := ClefGlyph(key)
	if err != nil {
		return err
	}
	e.Before(`\stopStaff`)
	e.Before(`\startStaff`)
	e.Before(override)
	e.Before(fmt.Sprintf(`\set Staff.clefGlyph = #"%s"`, glyph.Symbol))
	e.Before(fmt.Sprintf(`\set Staff.clefPosition = #%d`, glyph.Position))
	e.Before(fmt.Sprintf(`\set Staff.clefTransposition = #%d`, glyph.Transposition))
	return nil
}

// Registers that trigger a staff switch inside an arpeggio
const (
	switchTrebleLow  = -1
	switchTrebleHigh = 24
	switchBassHigh   = 0
)

// AddStaffSwitches moves the staff lines along a descending voice: the
// fifteenth preset at the start, treble at the first note in [-1, 24) and
// bass at the first note below 0. Missing registers are skipped.
func AddStaffSwitches(v score.Voice) (score.Voice, error) {
	out := v.Clone()
	if out.Len() == 0 {
		return out, nil
	}
	if err := MoveStaffLines(&out.Events[0], ClefKeyFifteenth); err != nil {
		return out, err
	}

	treble, bass := -1, -1
	for i, e := range out.Events {
		if e.Kind != score.KindNote {
			continue
		}
		p := int(e.Pitch())
		if treble < 0 && p >= switchTrebleLow && p < switchTrebleHigh {
			treble = i
		}
		if bass < 0 && p < switchBassHigh {
			bass = i
		}
	}
	if treble >= 0 {
		if err := MoveStaffLines(&out.Events[treble], ClefKeyTreble); err != nil {
			return out, err
		}
	}
	if bass >= 0 {
		if err := MoveStaffLines(&out.Events[bass], ClefKeyBass); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Package pitch holds chromatic pitch numbers, pitch ranges and durations, and
// converts them to and from LilyPond english note names.
//
// Pitch numbers count semitones from middle C: c' is 0, c is -12, c'''' is 36.
package pitch

import (
	"fmt"
	"strings"

	errs "github.com/dygy/chartgen/internal/errors"
	"golang.org/x/exp/constraints"
)

// Pitch is a chromatic pitch number
type Pitch int

// MiddleCMIDI is the MIDI key of pitch 0
const MiddleCMIDI = 60

// letter offsets within an octave, indexed by diatonic step (c=0 ... b=6)
var letterSemitones = map[byte]int{'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11}

// sharp spelling for each pitch class: letter and accidental suffix
var spellings = [12]struct {
	letter string
	step   int
	suffix string
}{
	{"c", 0, ""}, {"c", 0, "s"}, {"d", 1, ""}, {"d", 1, "s"}, {"e", 2, ""}, {"f", 3, ""},
	{"f", 3, "s"}, {"g", 4, ""}, {"g", 4, "s"}, {"a", 5, ""}, {"a", 5, "s"}, {"b", 6, ""},
}

// FloorDiv divides rounding toward negative infinity
func FloorDiv[T constraints.Signed](a, b T) T {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod returns a non-negative remainder for positive b
func FloorMod[T constraints.Signed](a, b T) T {
	return a - FloorDiv(a, b)*b
}

// Add transposes the pitch by an interval in semitones
func (p Pitch) Add(interval int) Pitch {
	return p + Pitch(interval)
}

// Class returns the pitch class 0-11
func (p Pitch) Class() int {
	return FloorMod(int(p), 12)
}

// Octave returns the octave index where c' .. b' is 0
func (p Pitch) Octave() int {
	return FloorDiv(int(p), 12)
}

// MIDI returns the MIDI key number
func (p Pitch) MIDI() int {
	return int(p) + MiddleCMIDI
}

// StaffStep returns the diatonic step of the printed (sharp) spelling,
// counted from middle C (c' = 0, d' = 1, b = -1).
func (p Pitch) StaffStep() int {
	return p.Octave()*7 + spellings[p.Class()].step
}

// Name returns the LilyPond english name, e.g. "cs''" or "g,"
func (p Pitch) Name() string {
	sp := spellings[p.Class()]
	marks := p.Octave() + 1
	var b strings.Builder
	b.WriteString(sp.letter)
	b.WriteString(sp.suffix)
	if marks > 0 {
		b.WriteString(strings.Repeat("'", marks))
	} else if marks < 0 {
		b.WriteString(strings.Repeat(",", -marks))
	}
	return b.String()
}

func (p Pitch) String() string {
	return p.Name()
}

// Parse reads a LilyPond english pitch name ("c", "ef", "fs'''", "b,,")
func Parse(name string) (Pitch, error) {
	p, rest, err := ParsePrefix(name)
	if err != nil {
		return 0, err
	}
	if rest != "" {
		return 0, fmt.Errorf("pitch %q: trailing %q: %w", name, rest, errs.ErrInvalidNotation)
	}
	return p, nil
}

// MustParse is Parse for literals known to be valid
func MustParse(name string) Pitch {
	p, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePrefix reads a pitch name from the start of s and returns the remainder
func ParsePrefix(s string) (Pitch, string, error) {
	if s == "" {
		return 0, "", fmt.Errorf("empty pitch name: %w", errs.ErrInvalidNotation)
	}
	semis, ok := letterSemitones[s[0]]
	if !ok {
		return 0, s, fmt.Errorf("pitch %q: unknown letter %q: %w", s, s[0], errs.ErrInvalidNotation)
	}
	i := 1

	// accidentals: s = sharp, f = flat, doubled for double sharp/flat
	switch {
	case strings.HasPrefix(s[i:], "ss"):
		semis += 2
		i += 2
	case strings.HasPrefix(s[i:], "ff"):
		semis -= 2
		i += 2
	case strings.HasPrefix(s[i:], "s"):
		semis++
		i++
	case strings.HasPrefix(s[i:], "f"):
		semis--
		i++
	}

	octave := -1
	for i < len(s) && (s[i] == '\'' || s[i] == ',') {
		if s[i] == '\'' {
			octave++
		} else {
			octave--
		}
		i++
	}

	return Pitch(octave*12 + semis), s[i:], nil
}

// Range is a pitch range. Whether High is inclusive depends on the caller.
type Range struct {
	Low  Pitch
	High Pitch
}

// ParseRange builds a range from two pitch names
func ParseRange(low, high string) (Range, error) {
	lo, err := Parse(low)
	if err != nil {
		return Range{}, fmt.Errorf("range low: %w", err)
	}
	hi, err := Parse(high)
	if err != nil {
		return Range{}, fmt.Errorf("range high: %w", err)
	}
	return Range{Low: lo, High: hi}, nil
}

// Width returns High - Low in semitones
func (r Range) Width() int {
	return int(r.High - r.Low)
}

// Contains reports whether low <= p <= high
func (r Range) Contains(p Pitch) bool {
	return p >= r.Low && p <= r.High
}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.Low.Name(), r.High.Name())
}

package pitch

import (
	"fmt"
	"strconv"
)

// Duration is a note value as a fraction of a whole note
type Duration struct {
	Num int
	Den int
}

var (
	Whole     = Duration{1, 1}
	Half      = Duration{1, 2}
	Quarter   = Duration{1, 4}
	Eighth    = Duration{1, 8}
	Sixteenth = Duration{1, 16}
)

// IsZero reports an unset duration
func (d Duration) IsZero() bool {
	return d.Num == 0 || d.Den == 0
}

// Ticks converts the duration to MIDI ticks at the given resolution per quarter note
func (d Duration) Ticks(perQuarter int) int {
	if d.IsZero() {
		return 0
	}
	return 4 * perQuarter * d.Num / d.Den
}

// Dotted returns the duration lengthened by half
func (d Duration) Dotted() Duration {
	return Duration{d.Num * 3, d.Den * 2}
}

// LilyPond returns the duration suffix used after a pitch ("4", "8.", "1*3/4")
func (d Duration) LilyPond() string {
	switch {
	case d.Num == 1:
		return strconv.Itoa(d.Den)
	case d.Num == 3 && d.Den%2 == 0:
		return strconv.Itoa(d.Den/2) + "."
	default:
		return fmt.Sprintf("1*%d/%d", d.Num, d.Den)
	}
}

func (d Duration) String() string {
	return fmt.Sprintf("%d/%d", d.Num, d.Den)
}

// ParseDuration reads a LilyPond duration ("4", "16", "2.")
func ParseDuration(s string) (Duration, error) {
	dots := 0
	for len(s) > 0 && s[len(s)-1] == '.' {
		dots++
		s = s[:len(s)-1]
	}
	den, err := strconv.Atoi(s)
	if err != nil || den <= 0 || den&(den-1) != 0 {
		return Duration{}, fmt.Errorf("duration %q is not a power of two", s)
	}
	d := Duration{1, den}
	for range dots {
		// each dot adds half of the previous addition: 1/4. = 3/8, 1/4.. = 7/16
		d = Duration{d.Num*2 + 1, d.Den * 2}
	}
	return d, nil
}

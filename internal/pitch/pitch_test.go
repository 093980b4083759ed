package pitch

import (
	"testing"

	errs "github.com/dygy/chartgen/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]Pitch{
		"c'":    0,
		"c":     -12,
		"c''''": 36,
		"ef":    -9,
		"g":     -5,
		"b":     -1,
		"d'":    2,
		"e'":    4,
		"f'''":  29,
		"fs":    -6,
		"bff":   -3,
		"css'":  2,
		"a,":    -15,
		"a,,":   -27,
		"c,,":   -36,
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Parse(name)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, name := range []string{"", "h", "c'x", "4"} {
		_, err := Parse(name)
		assert.ErrorIs(t, err, errs.ErrInvalidNotation, name)
	}
}

func TestNameRoundTrip(t *testing.T) {
	for p := Pitch(-40); p <= 40; p++ {
		got, err := Parse(p.Name())
		require.NoError(t, err)
		assert.Equal(t, p, got, p.Name())
	}
	assert.Equal(t, "cs''", Pitch(13).Name())
	assert.Equal(t, "b", Pitch(-1).Name())
	assert.Equal(t, "g,", Pitch(-17).Name())
}

func TestStaffStep(t *testing.T) {
	assert.Equal(t, 0, Pitch(0).StaffStep())
	assert.Equal(t, 0, Pitch(1).StaffStep()) // cs' shares c' position
	assert.Equal(t, -1, Pitch(-1).StaffStep())
	assert.Equal(t, 7, Pitch(12).StaffStep())
	assert.Equal(t, -7, Pitch(-12).StaffStep())
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, 24, FloorDiv(72, 3))
	assert.Equal(t, 8, FloorDiv(25, 3))
	assert.Equal(t, -9, FloorDiv(-25, 3))
	assert.Equal(t, -1, FloorDiv(-1, 12))
	assert.Equal(t, 11, FloorMod(-1, 12))
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("c", "c''''")
	require.NoError(t, err)
	assert.Equal(t, Range{Low: -12, High: 36}, r)
	assert.Equal(t, 48, r.Width())
	assert.True(t, r.Contains(36))
	assert.False(t, r.Contains(37))

	_, err = ParseRange("c", "q")
	assert.Error(t, err)
}

func TestDuration(t *testing.T) {
	t.Run("LilyPond", func(t *testing.T) {
		assert.Equal(t, "4", Quarter.LilyPond())
		assert.Equal(t, "16", Sixteenth.LilyPond())
		assert.Equal(t, "4.", Quarter.Dotted().LilyPond())
		assert.Equal(t, "1*5/8", Duration{5, 8}.LilyPond())
	})

	t.Run("Parse", func(t *testing.T) {
		d, err := ParseDuration("2")
		require.NoError(t, err)
		assert.Equal(t, Half, d)

		d, err = ParseDuration("4.")
		require.NoError(t, err)
		assert.Equal(t, Duration{3, 8}, d)

		_, err = ParseDuration("3")
		assert.Error(t, err)
	})

	t.Run("Ticks", func(t *testing.T) {
		assert.Equal(t, 960, Quarter.Ticks(960))
		assert.Equal(t, 240, Sixteenth.Ticks(960))
		assert.Equal(t, 0, Duration{}.Ticks(960))
	})
}

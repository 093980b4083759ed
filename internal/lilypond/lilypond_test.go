package lilypond

import (
	"strings"
	"testing"

	errs "github.com/dygy/chartgen/internal/errors"
	"github.com/dygy/chartgen/internal/pitch"
	"github.com/dygy/chartgen/internal/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVoice(t *testing.T) {
	t.Run("Melody", func(t *testing.T) {
		v, err := ParseVoice("melody", "g4 c' b e g d' ef b d' e g e' d' ef b2")
		require.NoError(t, err)
		assert.Equal(t, "melody", v.Name)
		assert.Equal(t,
			[]pitch.Pitch{-5, 0, -1, -8, -5, 2, -9, -1, 2, -8, -5, 4, 2, -9, -1},
			v.NotePitches())
		for _, e := range v.Events[:14] {
			assert.Equal(t, pitch.Quarter, e.Duration)
		}
		assert.Equal(t, pitch.Half, v.Events[14].Duration)
	})

	t.Run("DurationCarriesForward", func(t *testing.T) {
		v, err := ParseVoice("", "c'8 d' r s4. e")
		require.NoError(t, err)
		require.Equal(t, 5, v.Len())
		assert.Equal(t, pitch.Eighth, v.Events[1].Duration)
		assert.Equal(t, score.KindRest, v.Events[2].Kind)
		assert.Equal(t, pitch.Eighth, v.Events[2].Duration)
		assert.Equal(t, score.KindSkip, v.Events[3].Kind)
		assert.Equal(t, pitch.Quarter.Dotted(), v.Events[4].Duration)
	})

	t.Run("Chords", func(t *testing.T) {
		v, err := ParseVoice("", "<c e g>2 <d' fs'>")
		require.NoError(t, err)
		require.Equal(t, 2, v.Len())
		assert.Equal(t, []pitch.Pitch{-12, -8, -5}, v.Events[0].Pitches)
		assert.Equal(t, pitch.Half, v.Events[1].Duration)
		assert.Equal(t, []pitch.Pitch{2, 6}, v.Events[1].Pitches)
	})

	t.Run("Empty", func(t *testing.T) {
		v, err := ParseVoice("", "   ")
		require.NoError(t, err)
		assert.Zero(t, v.Len())
	})

	for _, bad := range []string{"h4", "c'3", "<c e", "<>4", "c4 x"} {
		t.Run("Rejects "+bad, func(t *testing.T) {
			_, err := ParseVoice("", bad)
			assert.ErrorIs(t, err, errs.ErrInvalidNotation)
		})
	}
}

func TestFormatEvent(t *testing.T) {
	note := score.NewNote(0, pitch.Sixteenth)
	note.Articulations = []string{"^-"}
	note.Dynamic = "mf"
	note.Spanners = []string{"[", `\(`}

	tests := []struct {
		name  string
		event score.Event
		want  string
	}{
		{"Note", score.NewNote(-5, pitch.Quarter), "g4"},
		{"Marked", note, `c'16^-\mf[\(`},
		{"Chord", score.NewChord([]pitch.Pitch{-12, -8, 1}, pitch.Quarter), "<c e cs'>4"},
		{"Rest", score.NewRest(pitch.Half), "r2"},
		{"Skip", score.NewSkip(pitch.Quarter.Dotted()), "s4."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEvent(tt.event))
		})
	}
}

func chartScore() score.Score {
	e := score.NewNote(4, pitch.Quarter)
	e.After(`\break`)
	ts := pitch.Sixteenth
	e.TimeSignature = &ts
	return score.Score{
		Group: "PianoStaff",
		Staves: []score.Staff{
			{Name: "treble", Clef: "treble", Voices: []score.Voice{score.NewVoice("v", e)}},
			{Name: "bass", Clef: "bass", With: []string{`forceClef = ##t`}, Voices: []score.Voice{
				score.NewVoice("v", score.NewChord([]pitch.Pitch{-12, -5}, pitch.Quarter)),
			}},
		},
	}
}

func TestRenderChart(t *testing.T) {
	out, err := Render(NewChartDocument(chartScore()))
	require.NoError(t, err)

	for _, want := range []string{
		`\version "2.24.0"`,
		`\language "english"`,
		`#(set-global-staff-size 16)`,
		`paper-width = 8.5\in`,
		`left-margin = 1.5\in`,
		`system-system-spacing.basic-distance = #16`,
		`\new PianoStaff <<`,
		`\new Staff = "treble" {`,
		`\new Staff = "bass" \with {`,
		`\clef "bass"`,
		`<c g>4`,
		`\time 1/16`,
		`proportionalNotationDuration = #(ly:make-moment 1/16)`,
		`\override SpanBar.stencil = ##f`,
		`indent = 0`,
	} {
		assert.Contains(t, out, want)
	}

	// commands after the event follow it
	assert.Less(t, strings.Index(out, "e'4"), strings.Index(out, `\break`))
	assert.Less(t, strings.Index(out, `\time 1/16`), strings.Index(out, "e'4"))
	assert.Equal(t, strings.Count(out, "{"), strings.Count(out, "}"))
	assert.Equal(t, strings.Count(out, "<<"), strings.Count(out, ">>"))
}

func TestRenderEnfilade(t *testing.T) {
	s := score.Score{Staves: []score.Staff{{Name: "enfilade", Voices: []score.Voice{
		score.NewVoice("melody", score.NewNote(-5, pitch.Quarter)),
	}}}}
	out, err := Render(NewEnfiladeDocument(s))
	require.NoError(t, err)

	assert.Contains(t, out, `#(set-global-staff-size 14)`)
	assert.Contains(t, out, `paper-height = 17\in`)
	assert.Contains(t, out, `ragged-bottom = ##t`)
	assert.Contains(t, out, `system-system-spacing.basic-distance = #26`)
	assert.Contains(t, out, `proportionalNotationDuration = #(ly:make-moment 1/4)`)
	assert.Contains(t, out, "{ % melody")
	assert.NotContains(t, out, "PianoStaff")
	assert.NotContains(t, out, "SpanBar")
}

func TestPresetsAreIndependent(t *testing.T) {
	a := ChartScoreSettings()
	a[0] = "changed"
	assert.NotEqual(t, "changed", ChartScoreSettings()[0])
	assert.Len(t, EnfiladeScoreSettings(), len(sharedScoreSettings)+3)
}

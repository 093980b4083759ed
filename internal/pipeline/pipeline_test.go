package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dygy/chartgen/internal/config"
	errs "github.com/dygy/chartgen/internal/errors"
	"github.com/dygy/chartgen/internal/exec"
	"github.com/dygy/chartgen/internal/lilypond"
	"github.com/dygy/chartgen/internal/pitch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, kind Kind) Config {
	t.Helper()
	cfg, err := FromSettings(config.Default(), kind)
	require.NoError(t, err)
	cfg.UseCache = false
	cfg.CacheDir = ""
	return cfg
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindChords, KindArpeggios, KindEnfilade} {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("fugue")
	assert.ErrorIs(t, err, errs.ErrLookup)
}

func TestGenerateChordChart(t *testing.T) {
	res, err := Generate(testConfig(t, KindChords))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Staves, 2)
	assert.Equal(t, "PianoStaff", res.Score.Group)
	require.NotNil(t, res.Analysis)
	require.NotNil(t, res.Before)
	assert.LessOrEqual(t, res.Analysis.Total, res.Before.Total)
	assert.Contains(t, res.LilyPond, `\new PianoStaff <<`)
	assert.Equal(t, "MThd", string(res.MIDI[:4]))

	// every staff is aligned with the generated voice
	for _, st := range res.Score.Staves {
		require.Len(t, st.Voices, 1)
		assert.Equal(t, 20, st.Voices[0].Len(), st.Name)
	}
}

func TestGenerateArpeggioChart(t *testing.T) {
	chords, err := Generate(testConfig(t, KindChords))
	require.NoError(t, err)
	arps, err := Generate(testConfig(t, KindArpeggios))
	require.NoError(t, err)

	// the same seed draws the same chords, spread out one note at a time
	assert.Equal(t, len(chords.Score.Staves[0].Pitches()), len(arps.Score.Staves[0].Pitches()))
	assert.Contains(t, arps.LilyPond, "16")
}

func TestGenerateEnfilade(t *testing.T) {
	cfg := testConfig(t, KindEnfilade)
	cfg.PoolSize = 30
	res, err := Generate(cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Staves)
	assert.Len(t, res.Passes, 5)
	assert.Nil(t, res.Analysis)
	assert.Contains(t, res.LilyPond, `\tempo 4 = 40`)
	assert.Contains(t, res.LilyPond, `paper-height = 17\in`)
	assert.Equal(t, "melody", res.Score.Staves[0].Voices[0].Name)
}

func TestGenerateIsDeterministic(t *testing.T) {
	for _, kind := range []Kind{KindChords, KindArpeggios, KindEnfilade} {
		t.Run(string(kind), func(t *testing.T) {
			cfg := testConfig(t, kind)
			cfg.PoolSize = 40
			a, err := Generate(cfg)
			require.NoError(t, err)
			b, err := Generate(cfg)
			require.NoError(t, err)
			assert.Equal(t, a.LilyPond, b.LilyPond)
			assert.Equal(t, a.MIDI, b.MIDI)

			cfg.Seed++
			c, err := Generate(cfg)
			require.NoError(t, err)
			assert.NotEqual(t, a.LilyPond, c.LilyPond)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := testConfig(t, KindChords)
	cfg.Range = pitch.Range{Low: 12, High: 0}
	_, err := Generate(cfg)
	assert.ErrorIs(t, err, errs.ErrInvalidRange)

	cfg = testConfig(t, KindChords)
	cfg.Count = -1
	assert.ErrorIs(t, cfg.Validate(), errs.ErrInvalidRange)

	cfg = testConfig(t, KindChords)
	cfg.Count = 0
	_, err = Generate(cfg)
	assert.ErrorIs(t, err, errs.ErrEmptyVoice)

	cfg = testConfig(t, KindEnfilade)
	cfg.Melody.Events = nil
	assert.ErrorIs(t, cfg.Validate(), errs.ErrEmptyVoice)
}

func TestCacheKey(t *testing.T) {
	a := testConfig(t, KindEnfilade).CacheKey()
	assert.Equal(t, "enfilade", a.Kind)
	assert.True(t, strings.HasPrefix(a.Melody, "g4 c'4 b4"))

	b := testConfig(t, KindChords).CacheKey()
	assert.Equal(t, 20, b.Count)
	assert.Empty(t, b.Melody)
	assert.NotEqual(t, a.String(), b.String())

	t.Run("ChartBPM", func(t *testing.T) {
		slow := testConfig(t, KindChords)
		fast := slow
		fast.ChartBPM = slow.ChartBPM * 2
		assert.NotEqual(t, slow.CacheKey().String(), fast.CacheKey().String())
	})
}

func TestExecuteWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, KindChords)
	cfg.OutputPath = filepath.Join(dir, "chart.ly")
	cfg.MIDIOutputPath = filepath.Join(dir, "chart.mid")
	cfg.UseCache = true
	cfg.CacheDir = filepath.Join(dir, "cache")

	var out bytes.Buffer
	o := NewOrchestrator(exec.NewRunner(exec.Tools{}), &out, true)
	res, err := o.ChordChart(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, 1, res.OutputVersion)

	ly, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, res.LilyPond, string(ly))
	assert.FileExists(t, cfg.MIDIOutputPath)

	log := out.String()
	assert.Contains(t, log, "[1/5]")
	assert.Contains(t, log, "[5/5]")
	assert.Contains(t, log, "Skipped")
	assert.Contains(t, log, "treble: 20 events")

	t.Run("SecondRunIsCached", func(t *testing.T) {
		again, err := o.ChordChart(context.Background(), cfg)
		require.NoError(t, err)
		assert.True(t, again.FromCache)
		assert.Equal(t, res.LilyPond, again.LilyPond)
		assert.Equal(t, res.MIDI, again.MIDI)
	})
}

func TestExecuteRenderWithoutLilyPond(t *testing.T) {
	cfg := testConfig(t, KindArpeggios)
	cfg.Render = true
	cfg.WorkDir = t.TempDir()

	var out bytes.Buffer
	o := NewOrchestrator(exec.NewRunner(exec.Tools{LilyPond: "chartgen-no-such-lilypond"}), &out, false)
	_, err := o.ArpeggioChart(context.Background(), cfg)
	assert.ErrorIs(t, err, errs.ErrToolNotInstalled)

	entries, err := os.ReadDir(cfg.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace is removed on failure")
}

func TestExecutePlayWithoutPlayerWarns(t *testing.T) {
	cfg := testConfig(t, KindChords)
	cfg.Play = true
	cfg.WorkDir = t.TempDir()

	var out bytes.Buffer
	o := NewOrchestrator(exec.NewRunner(exec.Tools{}), &out, false)
	_, err := o.ChordChart(context.Background(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Warning: play skipped")
}

func TestExecuteKeepsWorkspace(t *testing.T) {
	cfg := testConfig(t, KindChords)
	cfg.Play = true
	cfg.KeepFiles = true
	cfg.WorkDir = t.TempDir()

	var out bytes.Buffer
	o := NewOrchestrator(exec.NewRunner(exec.Tools{}), &out, false)
	res, err := o.ChordChart(context.Background(), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, res.OutputDir)

	assert.FileExists(t, filepath.Join(res.OutputDir, "score.mid"))
	data, err := os.ReadFile(filepath.Join(res.OutputDir, "analysis.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"per_staff"`)
}

func TestCachedEnfiladeWarnsIncompletePass(t *testing.T) {
	cfg := testConfig(t, KindEnfilade)
	cfg.PoolSize = 20
	cfg.UseCache = true
	cfg.CacheDir = filepath.Join(t.TempDir(), "cache")
	// the first pass lifts c'''' two octaves, out of range
	melody, err := lilypond.ParseVoice("melody", "c''''4 c'4")
	require.NoError(t, err)
	cfg.Melody = melody

	for _, cached := range []bool{false, true} {
		var out bytes.Buffer
		o := NewOrchestrator(exec.NewRunner(exec.Tools{}), &out, false)
		res, err := o.Enfilade(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, cached, res.FromCache)
		assert.Contains(t, out.String(), "Warning: pass 1 placed only 0 of 2 melody pitches")
	}
}

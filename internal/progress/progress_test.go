package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false)

	r.StartStage(StageGenerate)
	r.Update("hidden unless verbose")
	r.StageComplete("20 chords")
	r.Warning("viewer %s not set", "CHARTGEN_VIEWER")
	r.Error(errors.New("boom"))
	r.Done("chart.ly")

	out := buf.String()
	assert.Contains(t, out, "[2/5] Generating chords...")
	assert.NotContains(t, out, "hidden unless verbose")
	assert.Contains(t, out, "       20 chords\n")
	assert.Contains(t, out, "Warning: viewer CHARTGEN_VIEWER not set")
	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, "Output saved to: chart.ly")
	assert.NotContains(t, out, "\x1b[", "no colors on a non-terminal writer")
}

func TestReporterVerbose(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf, true).Update("pass %d: %d arpeggios", 2, 15)
	assert.Equal(t, "pass 2: 15 arpeggios", strings.TrimSpace(buf.String()))
}

func TestStagesAreNumbered(t *testing.T) {
	stages := []Stage{StageValidate, StageGenerate, StageLayout, StageWrite, StageRender}
	for i, s := range stages {
		assert.Equal(t, i+1, s.Number, s.Name)
		assert.Equal(t, len(stages), s.Total, s.Name)
	}
}

package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygy/chartgen/internal/config"
	"github.com/dygy/chartgen/internal/exec"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(Config{
		Settings: config.Default(),
		Runner:   exec.NewRunner(exec.Tools{LilyPond: "chartgen-no-such-lilypond"}),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(s.jobs.Close)
	return s
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(t, setupTestServer(t), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestNewRejectsBadSettings(t *testing.T) {
	settings := config.Default()
	settings.Low, settings.High = "c''", "c"
	_, err := New(Config{Settings: settings})
	assert.Error(t, err)
}

func TestChart(t *testing.T) {
	s := setupTestServer(t)

	t.Run("LilyPond", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/charts/chords?seed=3&count=8")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Header().Get("Content-Type"), "lilypond")
		assert.Contains(t, w.Body.String(), `\new PianoStaff <<`)

		again := do(t, s, http.MethodGet, "/charts/chords?seed=3&count=8")
		assert.Equal(t, w.Body.String(), again.Body.String())
	})

	t.Run("MIDI", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/charts/arpeggios?format=midi&count=4")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "audio/midi", w.Header().Get("Content-Type"))
		assert.Equal(t, "MThd", w.Body.String()[:4])
	})

	t.Run("JSON", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/charts/chords?format=json&count=12&low=c&high=c'''")
		require.Equal(t, http.StatusOK, w.Code)

		var resp chartResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "chords", resp.Kind)
		assert.GreaterOrEqual(t, resp.Staves, 2)
		require.NotNil(t, resp.Analysis)
		require.NotNil(t, resp.Before)
		assert.LessOrEqual(t, resp.Analysis.Total, resp.Before.Total)
		assert.NotEmpty(t, resp.CacheKey)
	})

	t.Run("Enfilade", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/charts/enfilade?format=json&pool=30")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp chartResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Staves)
		require.Len(t, resp.Passes, 5)
		assert.Equal(t, 24, resp.Passes[0].Transposition)
		assert.Equal(t, 15, resp.Passes[2].MelodyLength)
		assert.Nil(t, resp.Analysis)
	})
}

func TestChartErrors(t *testing.T) {
	s := setupTestServer(t)
	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"UnknownKind", "/charts/fugue", http.StatusNotFound},
		{"BadSeed", "/charts/chords?seed=x", http.StatusBadRequest},
		{"InvertedRange", "/charts/chords?low=c''''&high=c", http.StatusBadRequest},
		{"BadPitch", "/charts/chords?low=h", http.StatusBadRequest},
		{"NegativeCount", "/charts/chords?count=-2", http.StatusBadRequest},
		{"BadMelody", "/charts/enfilade?melody=g4+q", http.StatusBadRequest},
		{"BadFormat", "/charts/chords?format=pdf", http.StatusBadRequest},
		{"CountAboveLimit", "/charts/chords?count=1000000000", http.StatusBadRequest},
		{"PoolAboveLimit", "/charts/enfilade?pool=10001", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodGet, tt.target)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestCORS(t *testing.T) {
	s := setupTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRenderJobWithoutLilyPond(t *testing.T) {
	s := setupTestServer(t)

	w := do(t, s, http.MethodPost, "/charts/chords/render?count=4")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var view JobView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "/jobs/"+view.ID, w.Header().Get("Location"))
	assert.Equal(t, "chords", view.Kind)

	require.Eventually(t, func() bool {
		return s.jobs.Get(view.ID).Status() == StatusFailed
	}, 10*time.Second, 10*time.Millisecond)

	w = do(t, s, http.MethodGet, "/jobs/"+view.ID)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Contains(t, view.Error, "not installed")
	assert.False(t, view.HasPDF)
	assert.NotEmpty(t, view.Log)

	w = do(t, s, http.MethodGet, "/jobs/"+view.ID+"/pdf")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRenderRejectsBadParams(t *testing.T) {
	w := do(t, setupTestServer(t), http.MethodPost, "/charts/chords/render?count=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobNotFound(t *testing.T) {
	s := setupTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/jobs/missing").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/jobs/missing/pdf").Code)
}

func TestJobManagerCloseRemovesJobs(t *testing.T) {
	s := setupTestServer(t)
	w := do(t, s, http.MethodPost, "/charts/arpeggios/render?count=2")
	require.Equal(t, http.StatusAccepted, w.Code)

	var view JobView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	job := s.jobs.Get(view.ID)
	require.NotNil(t, job)

	s.jobs.Close()
	assert.Nil(t, s.jobs.Get(view.ID))
	assert.NoDirExists(t, job.WorkDir)
}

package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() Key {
	return Key{Kind: "chords", Seed: 1, Count: 20, Low: "c", High: "c''''"}
}

func TestKey(t *testing.T) {
	k := testKey()
	assert.True(t, strings.HasPrefix(k.String(), "chords_"))
	assert.Len(t, k.String(), len("chords_")+16)
	assert.Equal(t, k.String(), testKey().String())

	other := testKey()
	other.Seed = 2
	assert.NotEqual(t, k.String(), other.String())
}

func TestSaveAndGet(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "charts"))
	require.NoError(t, err)
	key := testKey()

	_, ok := c.Get(key)
	assert.False(t, ok)

	require.NoError(t, c.Save(key, &CachedOutput{LilyPond: "first", MIDI: []byte("MThd")}))
	require.NoError(t, c.Save(key, &CachedOutput{LilyPond: "second", LedgerLines: 4}))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "second", got.LilyPond)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "chords", got.Kind)
	assert.Equal(t, GeneratorVersion, got.Generator)
	_, err = uuid.Parse(got.ID)
	assert.NoError(t, err)

	history, err := c.History(key)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, []byte("MThd"), history[0].MIDI)
	assert.Nil(t, history[1].MIDI)

	latest, err := os.ReadFile(filepath.Join(c.Dir(key), "output_latest.ly"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(latest))

	size, count, err := c.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Positive(t, size)
}

func TestGetIgnoresOtherGenerators(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	key := testKey()
	require.NoError(t, os.MkdirAll(c.Dir(key), 0755))

	data, err := json.Marshal(CachedOutput{Kind: "chords", Generator: "chartgen-0", Version: 1, LilyPond: "old"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(key), "output_v001.json"), data, 0644))

	_, ok := c.Get(key)
	assert.False(t, ok)

	require.NoError(t, c.Save(key, &CachedOutput{LilyPond: "new"}))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, 2, got.Version)
}

func TestClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	c, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, c.Save(testKey(), &CachedOutput{LilyPond: "x"}))
	require.NoError(t, c.Clear())

	_, count, err := c.Size()
	require.NoError(t, err)
	assert.Zero(t, count)
}

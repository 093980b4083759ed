package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GeneratorVersion changes whenever the same parameters would produce a
// different chart. Outputs written by another version are ignored.
const GeneratorVersion = "chartgen-2"

// ChartCache stores generated charts by their parameters
type ChartCache struct {
	dir string
}

// Key identifies a chart by everything that determines its content
type Key struct {
	Kind   string // "chords", "arpeggios", "enfilade"
	Seed   uint64
	Count  int
	Low    string
	High   string
	Melody string
	BPM    float64 // playback tempo written into the MIDI file
}

// String returns the cache key
func (k Key) String() string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d|%d|%s|%s|%s|%g", k.Seed, k.Count, k.Low, k.High, k.Melody, k.BPM)))
	return k.Kind + "_" + hex.EncodeToString(h[:])[:16]
}

// CachedOutput represents one stored chart
type CachedOutput struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	LilyPond    string            `json:"lilypond"`
	MIDI        []byte            `json:"-"` // kept in a sibling .mid file
	Staves      int               `json:"staves"`
	LedgerLines int               `json:"ledger_lines"`
	Generator   string            `json:"generator"`
	Version     int               `json:"version"`
	CreatedAt   time.Time         `json:"created_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// New opens a cache rooted at dir, creating it when needed
func New(dir string) (*ChartCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &ChartCache{dir: dir}, nil
}

// Dir returns the cache directory for a key
func (c *ChartCache) Dir(key Key) string {
	return filepath.Join(c.dir, key.String())
}

// Get returns the latest output for key written by this generator version
func (c *ChartCache) Get(key Key) (*CachedOutput, bool) {
	outputs, err := c.History(key)
	if err != nil {
		return nil, false
	}
	for i := len(outputs) - 1; i >= 0; i-- {
		if outputs[i].Generator == GeneratorVersion {
			return outputs[i], true
		}
	}
	return nil, false
}

// Save stores output under key as the next version
func (c *ChartCache) Save(key Key, output *CachedOutput) error {
	subdir := c.Dir(key)

	if err := os.MkdirAll(subdir, 0755); err != nil {
		return fmt.Errorf("create cache subdir: %w", err)
	}

	// Determine next version number
	outputs, _ := c.History(key)
	output.Version = len(outputs) + 1
	output.CreatedAt = time.Now()
	output.Generator = GeneratorVersion
	if output.ID == "" {
		output.ID = uuid.NewString()
	}
	if output.Kind == "" {
		output.Kind = key.Kind
	}

	base := filepath.Join(subdir, fmt.Sprintf("output_v%03d", output.Version))

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	if err := os.WriteFile(base+".json", data, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	// Keep the .ly next to the metadata for direct use with lilypond
	if err := os.WriteFile(base+".ly", []byte(output.LilyPond), 0644); err != nil {
		return fmt.Errorf("write lilypond file: %w", err)
	}
	if len(output.MIDI) > 0 {
		if err := os.WriteFile(base+".mid", output.MIDI, 0644); err != nil {
			return fmt.Errorf("write midi file: %w", err)
		}
	}

	latestPath := filepath.Join(subdir, "output_latest.ly")
	_ = os.Remove(latestPath)
	if err := os.WriteFile(latestPath, []byte(output.LilyPond), 0644); err != nil {
		return fmt.Errorf("write latest: %w", err)
	}

	return nil
}

// History returns every stored output for key, sorted by version
func (c *ChartCache) History(key Key) ([]*CachedOutput, error) {
	subdir := c.Dir(key)

	entries, err := os.ReadDir(subdir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	var outputs []*CachedOutput

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "output_v") || !strings.HasSuffix(name, ".json") {
			continue
		}

		path := filepath.Join(subdir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var output CachedOutput
		if err := json.Unmarshal(data, &output); err != nil {
			continue
		}
		if midi, err := os.ReadFile(strings.TrimSuffix(path, ".json") + ".mid"); err == nil {
			output.MIDI = midi
		}

		outputs = append(outputs, &output)
	}

	sort.Slice(outputs, func(i, j int) bool {
		return outputs[i].Version < outputs[j].Version
	})

	return outputs, nil
}

// Clear removes all cached charts
func (c *ChartCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// Size returns the total size in bytes and the number of cached keys
func (c *ChartCache) Size() (int64, int, error) {
	var totalSize int64
	var count int

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		count++

		files, _ := os.ReadDir(filepath.Join(c.dir, entry.Name()))
		for _, f := range files {
			info, err := f.Info()
			if err == nil {
				totalSize += info.Size()
			}
		}
	}

	return totalSize, count, nil
}

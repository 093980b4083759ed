package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Workspace holds the files of a single chart run
type Workspace struct {
	ID        string
	Dir       string
	CreatedAt time.Time
}

// Create creates a new isolated workspace under base, or under the system
// temp directory when base is empty
func Create(base string) (*Workspace, error) {
	if base == "" {
		base = os.TempDir()
	}
	id := uuid.NewString()
	dir := filepath.Join(base, "chartgen-"+id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	return &Workspace{
		ID:        id,
		Dir:       dir,
		CreatedAt: time.Now(),
	}, nil
}

// Path helpers for workspace files
func (w *Workspace) OutputBase() string   { return filepath.Join(w.Dir, "score") }
func (w *Workspace) Score() string        { return w.OutputBase() + ".ly" }
func (w *Workspace) PDF() string          { return w.OutputBase() + ".pdf" }
func (w *Workspace) MIDI() string         { return w.OutputBase() + ".mid" }
func (w *Workspace) AnalysisJSON() string { return filepath.Join(w.Dir, "analysis.json") }

// Cleanup removes the workspace directory and all contents
func (w *Workspace) Cleanup() error {
	return os.RemoveAll(w.Dir)
}

// WriteFile writes data to name inside the workspace
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	dst := filepath.Join(w.Dir, name)
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return dst, nil
}

// CopyOut copies a workspace file to dst outside the workspace
func (w *Workspace) CopyOut(src, dst string) error {
	input, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	if err := os.WriteFile(dst, input, 0644); err != nil {
		return fmt.Errorf("write destination: %w", err)
	}
	return nil
}

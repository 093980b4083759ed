package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	errs "github.com/dygy/chartgen/internal/errors"
)

// Result holds command execution output
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Tools names the external programs a chart run may call
type Tools struct {
	LilyPond string
	Viewer   string // opens the rendered PDF
	Player   string // plays the MIDI file
}

// Runner executes external commands with context support
type Runner struct {
	Tools Tools
}

// NewRunner creates a new command runner
func NewRunner(tools Tools) *Runner {
	if tools.LilyPond == "" {
		tools.LilyPond = "lilypond"
	}
	return &Runner{Tools: tools}
}

// RenderScore runs LilyPond on a .ly file, writing output next to outputBase
// (LilyPond appends .pdf and .midi itself).
func (r *Runner) RenderScore(ctx context.Context, lyPath, outputBase string) (*Result, error) {
	return r.run(ctx, "render", r.Tools.LilyPond, "-o", outputBase, lyPath)
}

// Show opens a rendered file in the configured viewer
func (r *Runner) Show(ctx context.Context, path string) (*Result, error) {
	if r.Tools.Viewer == "" {
		return nil, errs.NewProcessError("viewer", "show", 0, "", errs.ErrToolNotInstalled)
	}
	return r.run(ctx, "show", r.Tools.Viewer, path)
}

// Play sends a MIDI file to the configured player
func (r *Runner) Play(ctx context.Context, path string) (*Result, error) {
	if r.Tools.Player == "" {
		return nil, errs.NewProcessError("player", "play", 0, "", errs.ErrToolNotInstalled)
	}
	return r.run(ctx, "play", r.Tools.Player, path)
}

// CheckTool verifies a program is on PATH
func (r *Runner) CheckTool(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s: %w", name, errs.ErrToolNotInstalled)
	}
	return nil
}

// run executes a command and captures output
func (r *Runner) run(ctx context.Context, stage, name string, args ...string) (*Result, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	}

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			err = fmt.Errorf("%w: %w", errs.ErrToolNotInstalled, err)
		}
		return result, errs.NewProcessError(name, stage, result.ExitCode, result.Stderr, err)
	}

	return result, nil
}

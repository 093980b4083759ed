package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected failure modes
var (
	ErrInvalidRange     = errors.New("invalid pitch range")
	ErrEmptyVoice       = errors.New("voice has no pitched content")
	ErrLookup           = errors.New("key not in table")
	ErrInvalidNotation  = errors.New("invalid notation")
	ErrToolNotInstalled = errors.New("required tool not installed")
)

// RangeError reports a bottom/ceiling pair that cannot hold a chord
type RangeError struct {
	Bottom  int
	Ceiling int
	Reason  string
}

func (e *RangeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid pitch range [%d, %d]: %s", e.Bottom, e.Ceiling, e.Reason)
	}
	return fmt.Sprintf("invalid pitch range [%d, %d]", e.Bottom, e.Ceiling)
}

func (e *RangeError) Unwrap() error {
	return ErrInvalidRange
}

// NewRangeError creates a RangeError
func NewRangeError(bottom, ceiling int, reason string) *RangeError {
	return &RangeError{Bottom: bottom, Ceiling: ceiling, Reason: reason}
}

// LookupError reports a key missing from one of the fixed tables
type LookupError struct {
	Table string // "pass", "clef key", "dynamic"
	Key   any
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %v not in table", e.Table, e.Key)
}

func (e *LookupError) Unwrap() error {
	return ErrLookup
}

// NewLookupError creates a LookupError
func NewLookupError(table string, key any) *LookupError {
	return &LookupError{Table: table, Key: key}
}

// ProcessError represents a failure in an external process
type ProcessError struct {
	Tool     string // "lilypond", "viewer", "player"
	Stage    string // "render", "show", "play"
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed at %s (exit %d): %s", e.Tool, e.Stage, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s failed at %s (exit %d)", e.Tool, e.Stage, e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}

// IsRecoverable returns true if the chart is still usable without this step.
// Only rendering produces the deliverable; viewing and playback are optional.
func (e *ProcessError) IsRecoverable() bool {
	return e.Stage == "show" || e.Stage == "play"
}

// NewProcessError creates a ProcessError
func NewProcessError(tool, stage string, exitCode int, stderr string, cause error) *ProcessError {
	return &ProcessError{
		Tool:     tool,
		Stage:    stage,
		ExitCode: exitCode,
		Stderr:   stderr,
		Cause:    cause,
	}
}

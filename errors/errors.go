package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the analysis pipeline failure modes
var (
	ErrNotFound           = errors.New("audio file not found")
	ErrDecode             = errors.New("audio decode failed")
	ErrTranscode          = errors.New("audio transcode failed")
	ErrInsufficientSignal = errors.New("insufficient signal for tempo analysis")
	ErrNoReliableTempo    = errors.New("no reliable tempo")
	ErrInvalidConfig      = errors.New("invalid analysis configuration")
)

// NotFoundError reports an input path that does not resolve to a readable file
type NotFoundError struct {
	Path  string
	Cause error
}

func (e *NotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("audio file not found: %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("audio file not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() []error {
	return []error{ErrNotFound, e.Cause}
}

// NewNotFoundError creates a NotFoundError
func NewNotFoundError(path string, cause error) *NotFoundError {
	return &NotFoundError{Path: path, Cause: cause}
}

// DecodeError reports a container or codec that could not be parsed
type DecodeError struct {
	Path   string
	Format string // "wav", "mp3", "unknown"
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode %s (%s): %v", e.Path, e.Format, e.Cause)
	}
	return fmt.Sprintf("decode %s (%s)", e.Path, e.Format)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Cause}
}

// NewDecodeError creates a DecodeError
func NewDecodeError(path, format string, cause error) *DecodeError {
	return &DecodeError{Path: path, Format: format, Cause: cause}
}

// ProcessError represents a failure in the intermediate transcoding step
type ProcessError struct {
	Tool     string // "ffmpeg", "go-mp3"
	Stage    string // "probe", "transcode"
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed at %s (exit %d): %s", e.Tool, e.Stage, e.ExitCode, e.Stderr)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s failed at %s (exit %d): %v", e.Tool, e.Stage, e.ExitCode, e.Cause)
	}
	return fmt.Sprintf("%s failed at %s (exit %d)", e.Tool, e.Stage, e.ExitCode)
}

func (e *ProcessError) Unwrap() []error {
	return []error{ErrTranscode, e.Cause}
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

// IsUnknownTempo reports whether err is a recoverable tempo outcome that
// callers must surface as "BPM unknown"
func IsUnknownTempo(err error) bool {
	return errors.Is(err, ErrInsufficientSignal) || errors.Is(err, ErrNoReliableTempo)
}

// IsFatal reports whether err aborts a single analysis invocation
func IsFatal(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrTranscode) || errors.Is(err, ErrInvalidConfig)
}

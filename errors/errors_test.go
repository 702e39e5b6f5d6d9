package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestTaxonomyUnwrapsToSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		cause    error
	}{
		{"not found", NewNotFoundError("a.wav", fs.ErrNotExist), ErrNotFound, fs.ErrNotExist},
		{"decode", NewDecodeError("a.wav", "wav", errors.New("bad riff")), ErrDecode, nil},
		{"transcode", NewProcessError("ffmpeg", "transcode", 1, "boom", nil), ErrTranscode, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("load: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("expected %v to match %v", wrapped, tt.sentinel)
			}
			if tt.cause != nil && !errors.Is(wrapped, tt.cause) {
				t.Errorf("expected %v to keep cause %v", wrapped, tt.cause)
			}
			if !IsFatal(wrapped) {
				t.Errorf("expected %v to be fatal", wrapped)
			}
			if IsUnknownTempo(wrapped) {
				t.Errorf("expected %v not to be an unknown tempo outcome", wrapped)
			}
		})
	}
}

func TestIsUnknownTempo(t *testing.T) {
	if !IsUnknownTempo(fmt.Errorf("estimate: %w", ErrNoReliableTempo)) {
		t.Error("NoReliableTempo should be an unknown tempo outcome")
	}
	if !IsUnknownTempo(ErrInsufficientSignal) {
		t.Error("InsufficientSignal should be an unknown tempo outcome")
	}
	if IsFatal(ErrInsufficientSignal) {
		t.Error("InsufficientSignal must not be fatal")
	}
}

func TestProcessErrorMessage(t *testing.T) {
	err := NewProcessError("ffmpeg", "transcode", 1, "Invalid data found", nil)
	want := "ffmpeg failed at transcode (exit 1): Invalid data found"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

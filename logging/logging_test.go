package logging

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestDefaultLoggerLevelsAndFields(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewWriterLogger(&out, &errOut)

	logger.Debug("hidden")
	if out.Len() != 0 {
		t.Fatalf("debug should be filtered at info level, got %q", out.String())
	}

	logger.WithFields(Fields{"component": "sample_loader", "function": "Load", "path": "a.wav"}).Info("decoded")
	got := out.String()
	if !strings.Contains(got, `level=info msg=decoded component=sample_loader function=Load path=a.wav`) {
		t.Errorf("unexpected info output %q", got)
	}
	if errOut.Len() != 0 {
		t.Errorf("info written to the error stream: %q", errOut.String())
	}

	logger.Error(errors.New("boom"), "transcode failed")
	if !strings.Contains(errOut.String(), `level=error msg="transcode failed" error=boom`) {
		t.Errorf("unexpected error output %q", errOut.String())
	}
	if strings.Contains(errOut.String(), "\x1b[") {
		t.Errorf("writer logger emitted colors: %q", errOut.String())
	}

	logger.SetLevel(DebugLevel)
	logger.WithFields(Fields{"component": "tempo_estimator"}).Debug("fused")
	if !strings.Contains(out.String(), "level=debug msg=fused") {
		t.Errorf("debug missing after SetLevel: %q", out.String())
	}
}

func TestSortFieldKeys(t *testing.T) {
	keys := []string{"path", "msg", "function", "error", "time", "component", "level"}
	sortFieldKeys(keys)

	want := []string{"time", "level", "msg", "component", "function", "error", "path"}
	if !slices.Equal(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestContextFields(t *testing.T) {
	var out bytes.Buffer
	logger := NewWriterLogger(&out, &out)

	ctx := ContextWithFields(context.Background(), Fields{"path": "a.wav"})
	ctx = ContextWithFields(ctx, Fields{"worker": 2})
	logger.WithContext(ctx).Info("analyzing")

	got := out.String()
	if !strings.Contains(got, "path=a.wav") || !strings.Contains(got, "worker=2") {
		t.Errorf("context fields missing from %q", got)
	}
}

func TestLoggerFromAppLogger(t *testing.T) {
	var buf bytes.Buffer
	app := logrus.New()
	app.SetOutput(&buf)
	app.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	logger := LoggerFromAppLogger(app)
	if _, ok := logger.(*LogrusLogger); !ok {
		t.Fatalf("expected *LogrusLogger, got %T", logger)
	}

	logger.SetLevel(DebugLevel)
	logger.WithFields(Fields{"component": "tempo_estimator"}).Debug("fused", Fields{"bpm": 120.5})

	got := buf.String()
	for _, want := range []string{"level=debug", "msg=fused", "component=tempo_estimator", "bpm=120.5"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}

	if _, ok := LoggerFromAppLogger(nil).(*DefaultLogger); !ok {
		t.Error("nil app logger should fall back to the default logger")
	}
	if _, ok := LoggerFromAppLogger(&NoOpLogger{}).(*NoOpLogger); !ok {
		t.Error("a Logger should be returned unchanged")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

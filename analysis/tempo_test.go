package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	sonidoerrors "github.com/RyanBlaney/sonido-beat/errors"
	"github.com/RyanBlaney/sonido-beat/tags"
)

type fakeTags struct {
	tag   tags.BPMTag
	found bool
	err   error
}

func (f fakeTags) ReadBPM(path string) (tags.BPMTag, bool, error) {
	return f.tag, f.found, f.err
}

func withTag(v float64) fakeTags {
	return fakeTags{tag: tags.BPMTag{Value: v, Key: "TBPM", Format: "ID3v2.3"}, found: true}
}

func fixedSignal(bpm float64, err error, calls *int) SignalEstimator {
	return SignalEstimatorFunc(func(context.Context, string) (TempoResult, error) {
		*calls++
		return TempoResult{BPM: bpm}, err
	})
}

func TestTempoEstimatorPrefersTag(t *testing.T) {
	calls := 0
	te := NewTempoEstimator(withTag(128), fixedSignal(90, nil, &calls))

	got, err := te.Estimate(context.Background(), "song.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if got.BPM != 128 || got.Source != TempoSourceTag {
		t.Errorf("got %+v, want 128 from tag", got)
	}
	if calls != 0 {
		t.Errorf("signal estimator called %d times", calls)
	}
}

func TestTempoEstimatorFallsBackToSignal(t *testing.T) {
	tests := []struct {
		name string
		tags TagReader
	}{
		{"no tag", fakeTags{}},
		{"tempo too slow", withTag(0.5)},
		{"tempo too fast", withTag(500)},
		{"not a number", withTag(math.NaN())},
		{"tag read error", fakeTags{err: errors.New("bad frame")}},
		{"no tag reader", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := NewTempoEstimator(tt.tags, fixedSignal(96.5, nil, &calls)).Estimate(context.Background(), "song.mp3")
			if err != nil {
				t.Fatal(err)
			}
			if got.BPM != 96.5 || got.Source != TempoSourceSignal || calls != 1 {
				t.Errorf("got %+v after %d calls", got, calls)
			}
		})
	}
}

func TestTempoEstimatorErrors(t *testing.T) {
	t.Run("unknown tempo", func(t *testing.T) {
		calls := 0
		signalErr := sonidoerrors.ErrNoReliableTempo
		_, err := NewTempoEstimator(fakeTags{}, fixedSignal(0, signalErr, &calls)).Estimate(context.Background(), "a.wav")
		if !sonidoerrors.IsUnknownTempo(err) {
			t.Errorf("err = %v, want unknown tempo", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		calls := 0
		reader := fakeTags{err: sonidoerrors.NewNotFoundError("a.wav", errors.New("no such file"))}
		_, err := NewTempoEstimator(reader, fixedSignal(120, nil, &calls)).Estimate(context.Background(), "a.wav")
		if !errors.Is(err, sonidoerrors.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
		if calls != 0 {
			t.Error("signal estimator ran for a missing file")
		}
	})

	t.Run("no signal estimator", func(t *testing.T) {
		_, err := NewTempoEstimator(fakeTags{}, nil).Estimate(context.Background(), "a.wav")
		if !errors.Is(err, sonidoerrors.ErrInsufficientSignal) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestDetectTempoFromTags(t *testing.T) {
	tests := []struct {
		name   string
		reader TagReader
		want   float64
		wantOK bool
	}{
		{"valid", withTag(128), 128, true},
		{"fractional", withTag(127.5), 127.5, true},
		{"lower bound", withTag(40), 40, true},
		{"upper bound", withTag(220), 220, true},
		{"below range", withTag(39.9), 0, false},
		{"missing", fakeTags{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := NewTempoEstimator(tt.reader, nil).DetectTempoFromTags("a.mp3")
			if err != nil {
				t.Fatal(err)
			}
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("got (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

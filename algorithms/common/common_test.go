package common

import (
	"math"
	"testing"
)

func TestPeakNormalize(t *testing.T) {
	t.Run("scales by max abs", func(t *testing.T) {
		got := PeakNormalize([]float64{0.5, -2, 1})
		want := []float64{0.25, -1, 0.5}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("got %v, want %v", got, want)
			}
		}
	})

	t.Run("silent input stays zero", func(t *testing.T) {
		got := PeakNormalize(make([]float64, 8))
		if len(got) != 8 {
			t.Fatalf("length changed: %d", len(got))
		}
		for _, v := range got {
			if v != 0 || math.IsNaN(v) {
				t.Fatalf("expected zeros, got %v", got)
			}
		}
	})

	t.Run("does not alias input", func(t *testing.T) {
		in := []float64{2, 4}
		_ = PeakNormalize(in)
		if in[1] != 4 {
			t.Fatal("input was modified")
		}
	})
}

func TestNormalizerStdScaleSilent(t *testing.T) {
	got := NewNormalizer(StdScale).Normalize([]float64{0, 0, 0})
	for _, v := range got {
		if v != 0 {
			t.Fatalf("expected zeros, got %v", got)
		}
	}
}

func TestMedianAndLocalMaxima(t *testing.T) {
	if m := Median([]float64{3, 1, 2, 10}); m != 2.5 {
		t.Errorf("median = %v, want 2.5", m)
	}

	peaks := LocalMaxima([]float64{0, 2, 1, 1, 3, 3, 0, 5})
	want := []int{1, 4, 7}
	if len(peaks) != len(want) {
		t.Fatalf("peaks = %v, want %v", peaks, want)
	}
	for i := range want {
		if peaks[i] != want[i] {
			t.Fatalf("peaks = %v, want %v", peaks, want)
		}
	}
}

func TestParabolicPeak(t *testing.T) {
	// samples of -(x-10.25)^2 around x = 10
	f := func(x float64) float64 { return -(x - 10.25) * (x - 10.25) }
	data := make([]float64, 20)
	for i := range data {
		data[i] = f(float64(i))
	}
	got := ParabolicPeak(data, 10)
	if math.Abs(got-10.25) > 1e-9 {
		t.Errorf("ParabolicPeak = %v, want 10.25", got)
	}
	if ParabolicPeak(data, 0) != 0 {
		t.Error("edge index should be returned unchanged")
	}
}

func TestArgMaxRange(t *testing.T) {
	data := []float64{9, 1, 5, 3, 7}
	if got := ArgMaxRange(data, 1, 4); got != 2 {
		t.Errorf("ArgMaxRange = %d, want 2", got)
	}
	if got := ArgMaxRange(data, 4, 2); got != -1 {
		t.Errorf("empty range should return -1, got %d", got)
	}
}

func TestResampleSignal(t *testing.T) {
	interp := NewInterpolator(Linear)

	in := make([]float64, 44100)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 100 * float64(i) / 44100)
	}
	out := interp.ResampleSignal(in, 44100, 22050)
	if len(out) != 22050 {
		t.Fatalf("len = %d, want 22050", len(out))
	}
	// a 100 Hz tone survives the prefilter nearly unchanged
	if peak := MaxAbs(out); peak < 0.95 || peak > 1.0 {
		t.Errorf("peak after resample = %v", peak)
	}

	same := interp.ResampleSignal(in[:10], 8000, 8000)
	if len(same) != 10 || same[3] != in[3] {
		t.Error("equal rates should copy the input")
	}
}

func TestRoundTo(t *testing.T) {
	if got := RoundTo(127.996, 2); got != 128 {
		t.Errorf("RoundTo = %v, want 128", got)
	}
	if got := RoundTo(119.8449, 2); got != 119.84 {
		t.Errorf("RoundTo = %v, want 119.84", got)
	}
}

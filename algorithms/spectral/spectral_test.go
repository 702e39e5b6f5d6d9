package spectral

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-beat/algorithms/windowing"
)

func sine(freq float64, n, sampleRate int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

func TestSTFTFrameCountBoundary(t *testing.T) {
	stft := NewSTFT()
	tests := []struct {
		samples, hop, want int
	}{
		{22050, 512, 44},  // 22050/512 = 43.07
		{1024, 512, 3},    // exact multiple
		{100, 512, 1},     // shorter than one hop
		{220500, 512, 431}, // 10 s at 22050 Hz
	}

	for _, tt := range tests {
		res, err := stft.ComputeWithWindow(make([]float64, tt.samples), 2048, tt.hop, 22050, nil)
		if err != nil {
			t.Fatal(err)
		}
		if res.TimeFrames != tt.want || len(res.Magnitude) != tt.want {
			t.Errorf("samples=%d: frames=%d, want %d", tt.samples, res.TimeFrames, tt.want)
		}
		if FrameCount(tt.samples, tt.hop) != tt.want {
			t.Errorf("FrameCount(%d, %d) != %d", tt.samples, tt.hop, tt.want)
		}
		exact := float64(tt.samples) / float64(tt.hop)
		if d := float64(tt.want) - exact; d < 0 || d > 1 {
			t.Errorf("frame count %d drifts from %v by more than one", tt.want, exact)
		}
	}
}

func TestSTFTPeakBin(t *testing.T) {
	const sr = 8000
	sig := sine(1000, sr, sr)
	res, err := NewSTFT().ComputeWithWindow(sig, 256, 128, sr, windowing.NewHann(256))
	if err != nil {
		t.Fatal(err)
	}
	if res.FreqBins != 129 {
		t.Fatalf("freq bins = %d, want 129", res.FreqBins)
	}

	frame := res.Magnitude[res.TimeFrames/2]
	best := 0
	for k := range frame {
		if frame[k] > frame[best] {
			best = k
		}
	}
	// 1000 Hz / (8000/256) = bin 32
	if best != 32 {
		t.Errorf("peak bin = %d, want 32", best)
	}
}

func TestSTFTRejectsBadInput(t *testing.T) {
	stft := NewSTFT()
	if _, err := stft.ComputeWithWindow(nil, 2048, 512, 22050, nil); err == nil {
		t.Error("expected error for empty signal")
	}
	if _, err := stft.ComputeWithWindow(make([]float64, 10), 2048, 0, 22050, nil); err == nil {
		t.Error("expected error for zero hop")
	}
	if _, err := stft.ComputeWithWindow(make([]float64, 10), 2048, 512, 22050, windowing.NewHann(16)); err == nil {
		t.Error("expected error for mismatched window")
	}
}

func TestSpectralFlux(t *testing.T) {
	flux := NewSpectralFlux()

	t.Run("silence is flat zero", func(t *testing.T) {
		spec := make([][]float64, 10)
		for i := range spec {
			spec[i] = make([]float64, 5)
		}
		got := flux.Compute(spec)
		if len(got) != 10 {
			t.Fatalf("len = %d, want 10", len(got))
		}
		for _, v := range got {
			if v != 0 {
				t.Fatalf("expected zeros, got %v", got)
			}
		}
	})

	t.Run("energy increase yields positive flux", func(t *testing.T) {
		spec := [][]float64{
			{0.01, 0.01, 0.01},
			{0.01, 0.01, 0.01},
			{1, 1, 1},
			{0.01, 0.01, 0.01},
		}
		got := flux.Compute(spec)
		if got[0] != 0 || got[1] != 0 {
			t.Errorf("steady frames should have zero flux: %v", got)
		}
		if got[2] <= 0 {
			t.Errorf("onset frame flux = %v, want > 0", got[2])
		}
		if got[3] != 0 {
			t.Errorf("decay must not count as onset: %v", got[3])
		}
	})

	t.Run("dB difference against the global peak", func(t *testing.T) {
		spec := [][]float64{
			{1, 1},
			{0.1, 0.1},   // -20 dB
			{1, 0.001},   // 0 dB, -60 dB
			{1e-6, 1e-6}, // floored at -80 dB
			{1, 1},
		}
		want := []float64{0, 0, 10, 0, 80}

		got := flux.Compute(spec)
		for i := range want {
			if math.Abs(got[i]-want[i]) > 1e-9 {
				t.Fatalf("flux = %v, want %v", got, want)
			}
		}
		if spec[1][0] != 0.1 || spec[3][1] != 1e-6 {
			t.Errorf("input spectrogram modified: %v", spec)
		}
	})
}

func TestBandAnalyzer(t *testing.T) {
	const sr = 22050

	t.Run("silent input gives zero bands", func(t *testing.T) {
		bands, err := NewBandAnalyzer(2048, 512).Analyze(make([]float64, sr), sr)
		if err != nil {
			t.Fatal(err)
		}
		for name, series := range map[string][]float64{"low": bands.Low, "mid": bands.Mid, "high": bands.High} {
			if len(series) != FrameCount(sr, 512) {
				t.Errorf("%s: len = %d", name, len(series))
			}
			for _, v := range series {
				if v != 0 || math.IsNaN(v) {
					t.Fatalf("%s: expected zeros, got %v", name, v)
				}
			}
		}
	})

	tests := []struct {
		name     string
		freq     float64
		dominant string
	}{
		{"bass tone", 100, "low"},
		{"mid tone", 1000, "mid"},
		{"high tone", 5000, "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewBandAnalyzer(2048, 512)
			bands, err := analyzer.Analyze(sine(tt.freq, sr, sr), sr)
			if err != nil {
				t.Fatal(err)
			}
			if bands.Frames() != FrameCount(sr, 512) {
				t.Fatalf("frames = %d", bands.Frames())
			}

			for name, series := range map[string][]float64{"low": bands.Low, "mid": bands.Mid, "high": bands.High} {
				for _, v := range series {
					if v < -1 || v > 1 || math.IsNaN(v) {
						t.Fatalf("%s out of range: %v", name, v)
					}
				}
			}

			spec, err := NewSTFT().ComputeWithWindow(sine(tt.freq, sr, sr), 2048, 512, sr, windowing.NewHann(2048))
			if err != nil {
				t.Fatal(err)
			}
			raw := analyzer.RawEnergies(spec)
			mid := spec.TimeFrames / 2
			energy := map[string]float64{"low": raw.Low[mid], "mid": raw.Mid[mid], "high": raw.High[mid]}
			for name, e := range energy {
				if name != tt.dominant && e >= energy[tt.dominant] {
					t.Errorf("%s energy %v >= dominant %s energy %v", name, e, tt.dominant, energy[tt.dominant])
				}
			}
		})
	}
}

func TestAutocorrelate(t *testing.T) {
	x := []float64{1, 2, 0, -1, 3}
	got := NewFFT().Autocorrelate(x, 3)

	for lag := 0; lag <= 3; lag++ {
		want := 0.0
		for n := 0; n+lag < len(x); n++ {
			want += x[n] * x[n+lag]
		}
		if math.Abs(got[lag]-want) > 1e-9 {
			t.Errorf("lag %d: got %v, want %v", lag, got[lag], want)
		}
	}

	if len(NewFFT().Autocorrelate(x, 99)) != len(x) {
		t.Error("maxLag should be clamped to len(x)-1")
	}
}

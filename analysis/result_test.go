package analysis

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-beat/algorithms/spectral"
	"github.com/RyanBlaney/sonido-beat/transcode"
)

func sampleResult(tempo *TempoResult) *AnalysisResult {
	assembler := NewAssembler(2)
	assembler.now = testClock

	buffer := &transcode.SampleBuffer{
		Samples:    []float64{0.1, -0.4, 0.2, 0.2, -0.05, 0.3},
		SampleRate: 6,
		Duration:   1,
	}
	bands := &spectral.FrequencyBands{
		Low:  []float64{0.25, 1, 0.5},
		Mid:  []float64{1, 0.125, 0},
		High: []float64{0, 0.5, 1},
	}
	return assembler.Assemble(buffer, tempo, []float64{0.1, 0.6}, bands)
}

func assertSameResult(t *testing.T, got, want *AnalysisResult) {
	t.Helper()
	if !reflect.DeepEqual(got.Waveform(), want.Waveform()) {
		t.Errorf("waveform = %v, want %v", got.Waveform(), want.Waveform())
	}
	if !reflect.DeepEqual(got.FrequencyBands(), want.FrequencyBands()) {
		t.Errorf("bands = %+v, want %+v", got.FrequencyBands(), want.FrequencyBands())
	}
	if !reflect.DeepEqual(got.BeatPositions(), want.BeatPositions()) {
		t.Errorf("beats = %v, want %v", got.BeatPositions(), want.BeatPositions())
	}
	gotBPM, gotOK := got.BPM()
	wantBPM, wantOK := want.BPM()
	if gotBPM != wantBPM || gotOK != wantOK {
		t.Errorf("bpm = (%v, %v), want (%v, %v)", gotBPM, gotOK, wantBPM, wantOK)
	}
	if got.TempoSource() != want.TempoSource() || got.Duration() != want.Duration() {
		t.Errorf("source/duration = %q/%v, want %q/%v", got.TempoSource(), got.Duration(), want.TempoSource(), want.Duration())
	}
	if !got.CreatedAt().Equal(want.CreatedAt()) {
		t.Errorf("created at = %v, want %v", got.CreatedAt(), want.CreatedAt())
	}
}

func TestResultRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		tempo *TempoResult
	}{
		{"known tempo", &TempoResult{BPM: 127.35, Source: TempoSourceSignal}},
		{"tagged tempo", &TempoResult{BPM: 128, Source: TempoSourceTag}},
		{"unknown tempo", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/json", func(t *testing.T) {
			want := sampleResult(tt.tempo)
			data, err := json.Marshal(want)
			if err != nil {
				t.Fatal(err)
			}
			var got AnalysisResult
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatal(err)
			}
			assertSameResult(t, &got, want)
		})

		t.Run(tt.name+"/yaml", func(t *testing.T) {
			want := sampleResult(tt.tempo)
			data, err := yaml.Marshal(want)
			if err != nil {
				t.Fatal(err)
			}
			var got AnalysisResult
			if err := yaml.Unmarshal(data, &got); err != nil {
				t.Fatal(err)
			}
			assertSameResult(t, &got, want)
		})
	}
}

func TestResultEncoding(t *testing.T) {
	data, err := json.Marshal(sampleResult(nil))
	if err != nil {
		t.Fatal(err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"waveform", "frequency_bands", "beat_positions", "bpm", "duration", "created_at"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if fields["bpm"] != nil {
		t.Errorf("unknown bpm encoded as %v, want null", fields["bpm"])
	}
	if _, ok := fields["tempo_source"]; ok {
		t.Error("tempo_source should be omitted for an unknown tempo")
	}

	out, err := yaml.Marshal(sampleResult(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "bpm: null") {
		t.Errorf("yaml missing null bpm:\n%s", out)
	}
}

func TestAssemble(t *testing.T) {
	beats := []float64{0.1, 0.6}
	bands := &spectral.FrequencyBands{Low: []float64{1}, Mid: []float64{0.5}, High: []float64{0}}
	buffer := &transcode.SampleBuffer{Samples: []float64{0.1, -0.4, 0.2, 0.2, -0.05, 0.3}, SampleRate: 6, Duration: 1}

	result := NewAssembler(2).Assemble(buffer, &TempoResult{BPM: 120, Source: TempoSourceSignal}, beats, bands)

	// signed block peaks -0.4, 0.2, 0.3 scaled by 0.4
	want := []float64{-1, 0.5, 0.75}
	got := result.Waveform()
	if len(got) != len(want) {
		t.Fatalf("waveform = %v, want %v", got, want)
	}
	for i := range want {
		if d := got[i] - want[i]; d > 1e-12 || d < -1e-12 {
			t.Errorf("waveform[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	beats[0] = 99
	bands.Low[0] = 99
	if result.BeatPositions()[0] != 0.1 || result.FrequencyBands().Low[0] != 1 {
		t.Error("result shares memory with its inputs")
	}

	result.BeatPositions()[1] = 42
	if result.BeatPositions()[1] != 0.6 {
		t.Error("accessor exposes internal slice")
	}

	empty := NewAssembler(2).Assemble(buffer, nil, nil, nil)
	if empty.BeatPositions() == nil || len(empty.BeatPositions()) != 0 {
		t.Errorf("beats = %#v, want empty slice", empty.BeatPositions())
	}
	if _, ok := empty.BPM(); ok {
		t.Error("nil tempo should leave bpm unknown")
	}
}

package analysis

import (
	"encoding/json"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-beat/algorithms/spectral"
)

// AnalysisResult is the immutable output of one analysis run. Accessors
// return copies; the serialized form round-trips exactly.
type AnalysisResult struct {
	waveform    []float64
	bands       spectral.FrequencyBands
	beats       []float64
	bpm         *float64
	tempoSource TempoSource
	duration    float64
	createdAt   time.Time
}

// resultRecord is the serialized shape of an AnalysisResult
type resultRecord struct {
	Waveform       []float64               `json:"waveform" yaml:"waveform"`
	FrequencyBands spectral.FrequencyBands `json:"frequency_bands" yaml:"frequency_bands"`
	BeatPositions  []float64               `json:"beat_positions" yaml:"beat_positions"`
	BPM            *float64                `json:"bpm" yaml:"bpm"`
	TempoSource    TempoSource             `json:"tempo_source,omitempty" yaml:"tempo_source,omitempty"`
	Duration       float64                 `json:"duration" yaml:"duration"`
	CreatedAt      time.Time               `json:"created_at" yaml:"created_at"`
}

// Waveform returns the downsampled waveform preview in [-1, 1]
func (r *AnalysisResult) Waveform() []float64 {
	return slices.Clone(nonNil(r.waveform))
}

// FrequencyBands returns the low/mid/high band energies
func (r *AnalysisResult) FrequencyBands() spectral.FrequencyBands {
	return spectral.FrequencyBands{
		Low:  slices.Clone(nonNil(r.bands.Low)),
		Mid:  slices.Clone(nonNil(r.bands.Mid)),
		High: slices.Clone(nonNil(r.bands.High)),
	}
}

// BeatPositions returns the beat timestamps in seconds
func (r *AnalysisResult) BeatPositions() []float64 {
	return slices.Clone(nonNil(r.beats))
}

// BPM returns the tempo; ok is false when the tempo is unknown
func (r *AnalysisResult) BPM() (bpm float64, ok bool) {
	if r.bpm == nil {
		return 0, false
	}
	return *r.bpm, true
}

// TempoSource reports whether the BPM came from a tag or from the signal
func (r *AnalysisResult) TempoSource() TempoSource {
	return r.tempoSource
}

// Duration returns the analyzed clip length in seconds
func (r *AnalysisResult) Duration() float64 {
	return r.duration
}

// CreatedAt returns when the result was assembled
func (r *AnalysisResult) CreatedAt() time.Time {
	return r.createdAt
}

func (r *AnalysisResult) record() resultRecord {
	var bpm *float64
	if r.bpm != nil {
		v := *r.bpm
		bpm = &v
	}
	return resultRecord{
		Waveform:       r.Waveform(),
		FrequencyBands: r.FrequencyBands(),
		BeatPositions:  r.BeatPositions(),
		BPM:            bpm,
		TempoSource:    r.tempoSource,
		Duration:       r.duration,
		CreatedAt:      r.createdAt,
	}
}

func (r *AnalysisResult) fromRecord(rec resultRecord) {
	*r = AnalysisResult{
		waveform: nonNil(rec.Waveform),
		bands: spectral.FrequencyBands{
			Low:  nonNil(rec.FrequencyBands.Low),
			Mid:  nonNil(rec.FrequencyBands.Mid),
			High: nonNil(rec.FrequencyBands.High),
		},
		beats:       nonNil(rec.BeatPositions),
		bpm:         rec.BPM,
		tempoSource: rec.TempoSource,
		duration:    rec.Duration,
		createdAt:   rec.CreatedAt,
	}
}

// MarshalJSON encodes the result; an unknown tempo is encoded as null
func (r *AnalysisResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.record())
}

// UnmarshalJSON decodes a result encoded by MarshalJSON
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var rec resultRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	r.fromRecord(rec)
	return nil
}

// MarshalYAML encodes the result with the same field names as JSON
func (r *AnalysisResult) MarshalYAML() (any, error) {
	return r.record(), nil
}

// UnmarshalYAML decodes a result encoded by MarshalYAML
func (r *AnalysisResult) UnmarshalYAML(node *yaml.Node) error {
	var rec resultRecord
	if err := node.Decode(&rec); err != nil {
		return err
	}
	r.fromRecord(rec)
	return nil
}

func nonNil(s []float64) []float64 {
	if s == nil {
		return []float64{}
	}
	return s
}

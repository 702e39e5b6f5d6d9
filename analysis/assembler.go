package analysis

import (
	"slices"
	"time"

	"github.com/RyanBlaney/sonido-beat/algorithms/spectral"
	"github.com/RyanBlaney/sonido-beat/algorithms/temporal"
	"github.com/RyanBlaney/sonido-beat/transcode"
)

// Assembler merges pipeline outputs into an AnalysisResult
type Assembler struct {
	envelope    *temporal.Envelope
	waveformHop int
	now         func() time.Time
}

// NewAssembler creates an assembler that decimates the waveform preview by waveformHop
func NewAssembler(waveformHop int) *Assembler {
	return &Assembler{
		envelope:    temporal.NewEnvelope(),
		waveformHop: waveformHop,
		now:         time.Now,
	}
}

// Assemble builds the result. tempo is nil when the tempo is unknown. The
// result shares no memory with its inputs.
func (a *Assembler) Assemble(buffer *transcode.SampleBuffer, tempo *TempoResult, beats []float64, bands *spectral.FrequencyBands) *AnalysisResult {
	result := &AnalysisResult{
		waveform:  a.envelope.Preview(buffer.Samples, a.waveformHop),
		beats:     nonNil(slices.Clone(beats)),
		duration:  buffer.Duration,
		createdAt: a.now().UTC().Round(0),
	}

	if bands != nil {
		result.bands = spectral.FrequencyBands{
			Low:  nonNil(slices.Clone(bands.Low)),
			Mid:  nonNil(slices.Clone(bands.Mid)),
			High: nonNil(slices.Clone(bands.High)),
		}
	}

	if tempo != nil {
		bpm := tempo.BPM
		result.bpm = &bpm
		result.tempoSource = tempo.Source
	}

	return result
}

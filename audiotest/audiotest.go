// Package audiotest generates synthetic audio fixtures for tests.
package audiotest

import (
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Sine returns seconds of a unit-amplitude sine at freq Hz
func Sine(freq, seconds float64, sampleRate int) []float64 {
	n := int(float64(sampleRate) * seconds)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

// ClickTrack returns a click track at bpm: a 10 ms 1000 Hz burst on every
// beat starting at t=0, with 100 Hz, 1000 Hz and 5000 Hz tones at 0.3, 0.2
// and 0.1 amplitude mixed underneath. The result is scaled into [-1, 1].
func ClickTrack(bpm, seconds float64, sampleRate int) []float64 {
	audioLen := int(float64(sampleRate) * seconds)
	out := make([]float64, audioLen)

	beatSamples := int(float64(sampleRate) / (bpm / 60))
	click := Sine(1000, 0.01, sampleRate)
	for i := 0; i < audioLen; i += beatSamples {
		if i+len(click) <= audioLen {
			copy(out[i:], click)
		}
	}

	tones := []struct{ freq, amp float64 }{{100, 0.3}, {1000, 0.2}, {5000, 0.1}}
	for _, tone := range tones {
		for i := range out {
			out[i] += tone.amp * math.Sin(2*math.Pi*tone.freq*float64(i)/float64(sampleRate))
		}
	}

	peak := 0.0
	for _, v := range out {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak > 1 {
		for i := range out {
			out[i] /= peak
		}
	}
	return out
}

// WriteWAV writes mono samples in [-1, 1] as a 16-bit PCM WAV file
func WriteWAV(path string, samples []float64, sampleRate int) error {
	return WriteWAVChannels(path, samples, sampleRate, 1)
}

// WriteWAVChannels writes interleaved samples as a 16-bit PCM WAV file
func WriteWAVChannels(path string, samples []float64, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(math.Round(math.Max(-1, math.Min(1, v)) * 32767))
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// WriteFloatWAV writes mono samples as a 32-bit IEEE float WAV file
func WriteFloatWAV(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	// the encoder writes 32-bit ints verbatim, so pass the float bit patterns
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(int32(math.Float32bits(float32(v))))
	}

	enc := wav.NewEncoder(f, sampleRate, 32, 1, 3)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 32,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

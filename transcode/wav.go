package transcode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

// Format tags of the WAVE fmt chunk
const (
	wavFormatPCM        = 0x0001
	wavFormatFloat      = 0x0003
	wavFormatExtensible = 0xFFFE
)

// maxFmtChunk bounds the fmt chunk read; the extensible layout is 40 bytes
const maxFmtChunk = 1024

// errUnsupportedEncoding marks a well-formed WAV whose sample encoding is
// not decoded natively. The loader hands such files to a transcoder.
var errUnsupportedEncoding = errors.New("unsupported WAV encoding")

// pcmData is interleaved PCM normalized to [-1, 1]
type pcmData struct {
	samples    []float64
	sampleRate int
	channels   int
	bitDepth   int
}

// frames returns the number of samples per channel
func (p *pcmData) frames() int {
	if p.channels <= 0 {
		return 0
	}
	return len(p.samples) / p.channels
}

// truncate keeps at most maxFrames frames
func (p *pcmData) truncate(maxFrames int) {
	if maxFrames >= 0 && p.frames() > maxFrames {
		p.samples = p.samples[:maxFrames*p.channels]
	}
}

// mono averages the channels of each frame
func (p *pcmData) mono() []float64 {
	if p.channels == 1 {
		out := make([]float64, len(p.samples))
		copy(out, p.samples)
		return out
	}

	n := p.frames()
	out := make([]float64, n)
	for i := range n {
		sum := 0.0
		for c := range p.channels {
			sum += p.samples[i*p.channels+c]
		}
		out[i] = sum / float64(p.channels)
	}
	return out
}

// isWAVHeader reports whether header starts with a RIFF/WAVE signature
func isWAVHeader(header []byte) bool {
	return len(header) >= 12 &&
		bytes.Equal(header[0:4], []byte("RIFF")) &&
		bytes.Equal(header[8:12], []byte("WAVE"))
}

// readWAV decodes an integer PCM or 32-bit float WAV file
func readWAV(path string) (*pcmData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return decodeWAV(f)
}

func decodeWAV(r io.ReadSeeker) (*pcmData, error) {
	encoding, err := wavEncoding(r)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	bitDepth := int(decoder.BitDepth)
	switch {
	case encoding == wavFormatPCM:
	case encoding == wavFormatFloat && bitDepth == 32:
	default:
		return nil, fmt.Errorf("%w %d (%d-bit)", errUnsupportedEncoding, encoding, bitDepth)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not read PCM buffer: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("WAV file contains no audio data")
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}

	var samples []float64
	if encoding == wavFormatFloat {
		samples = float32BitsToFloat(buf.Data)
	} else {
		samples = intToFloat(buf.Data, bitDepth)
	}

	return &pcmData{
		samples:    samples,
		sampleRate: int(decoder.SampleRate),
		channels:   channels,
		bitDepth:   bitDepth,
	}, nil
}

// wavEncoding returns the format tag of the fmt chunk. WAVE_FORMAT_EXTENSIBLE
// resolves to the first two bytes of its sub-format GUID, which carry the
// plain format tag.
func wavEncoding(r io.ReadSeeker) (uint16, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	parser := riff.New(r)
	if err := parser.ParseHeaders(); err != nil {
		return 0, err
	}
	if parser.Format != riff.WavFormatID {
		return 0, fmt.Errorf("RIFF container is %q, not WAVE", parser.Format[:])
	}

	for {
		chunk, err := parser.NextChunk()
		if err != nil {
			return 0, fmt.Errorf("fmt chunk not found: %w", err)
		}
		if chunk.ID != riff.FmtID {
			chunk.Drain()
			continue
		}

		if chunk.Size < 16 || chunk.Size > maxFmtChunk {
			return 0, fmt.Errorf("invalid fmt chunk size: %d", chunk.Size)
		}
		body := make([]byte, chunk.Size)
		if _, err := io.ReadFull(chunk, body); err != nil {
			return 0, fmt.Errorf("could not read fmt chunk: %w", err)
		}

		tag := binary.LittleEndian.Uint16(body[0:2])
		if tag == wavFormatExtensible {
			// cbSize, valid bits and channel mask precede the sub-format
			if len(body) < 26 {
				return 0, fmt.Errorf("extensible fmt chunk too short: %d", len(body))
			}
			tag = binary.LittleEndian.Uint16(body[24:26])
		}
		return tag, nil
	}
}

// intToFloat scales integer samples of the given bit depth to [-1, 1].
// 8-bit WAV samples are unsigned.
func intToFloat(data []int, bitDepth int) []float64 {
	out := make([]float64, len(data))
	if bitDepth == 8 {
		for i, v := range data {
			out[i] = float64(v-128) / 128.0
		}
		return out
	}

	scale := math.Pow(2, float64(bitDepth-1))
	for i, v := range data {
		out[i] = float64(v) / scale
	}
	return out
}

// float32BitsToFloat reinterprets 32-bit samples read as integers as IEEE
// floats
func float32BitsToFloat(data []int) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(math.Float32frombits(uint32(int32(v))))
	}
	return out
}

// writeWAV encodes interleaved 16-bit samples as a PCM WAV file
func writeWAV(w io.WriteSeeker, data []int, sampleRate, channels int) error {
	encoder := wav.NewEncoder(w, sampleRate, 16, channels, wavFormatPCM)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("data writing error: %w", err)
	}
	return encoder.Close()
}

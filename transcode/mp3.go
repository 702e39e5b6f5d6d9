package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"

	sonidoerrors "github.com/RyanBlaney/sonido-beat/errors"
)

// MP3Transcoder converts MP3 files to a 16-bit stereo WAV intermediate
// with the pure-Go go-mp3 decoder
type MP3Transcoder struct {
	// MaxDuration in seconds stops decoding early, 0 decodes everything
	MaxDuration float64
}

// NewMP3Transcoder creates an MP3 transcoder
func NewMP3Transcoder(maxDuration float64) *MP3Transcoder {
	return &MP3Transcoder{MaxDuration: maxDuration}
}

// Name identifies the transcoder in errors and logs
func (t *MP3Transcoder) Name() string {
	return "go-mp3"
}

// CanTranscode accepts .mp3 files and files that start with an ID3 tag or an
// MPEG audio frame sync
func (t *MP3Transcoder) CanTranscode(path string, header []byte) bool {
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		return true
	}
	if len(header) >= 3 && bytes.Equal(header[:3], []byte("ID3")) {
		return true
	}
	return len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0
}

// Transcode decodes src and writes the PCM to dst as WAV
func (t *MP3Transcoder) Transcode(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	decoder, err := mp3.NewDecoder(in)
	if err != nil {
		return sonidoerrors.NewDecodeError(src, "mp3", fmt.Errorf("creating MP3 decoder: %w", err))
	}

	// go-mp3 always outputs signed 16-bit little-endian stereo
	const (
		numChannels   = 2
		bytesPerFrame = 2 * numChannels
	)

	maxBytes := int64(-1)
	if t.MaxDuration > 0 {
		maxBytes = int64(t.MaxDuration*float64(decoder.SampleRate())) * bytesPerFrame
	}

	var pcm []int
	chunk := make([]byte, 64*1024)
	var total int64
	for maxBytes < 0 || total < maxBytes {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := decoder.Read(chunk)
		n -= n % 2
		for i := 0; i+1 < n; i += 2 {
			pcm = append(pcm, int(int16(binary.LittleEndian.Uint16(chunk[i:]))))
		}
		total += int64(n)

		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return sonidoerrors.NewDecodeError(src, "mp3", fmt.Errorf("decoding MP3: %w", readErr))
		}
	}

	if len(pcm) < numChannels {
		return sonidoerrors.NewDecodeError(src, "mp3", fmt.Errorf("MP3 file contains no audio data"))
	}
	pcm = pcm[:len(pcm)-len(pcm)%numChannels]

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	return writeWAV(out, pcm, decoder.SampleRate(), numChannels)
}

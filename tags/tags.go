// Package tags reads tempo metadata embedded in audio containers.
package tags

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	sonidoerrors "github.com/RyanBlaney/sonido-beat/errors"
	"github.com/RyanBlaney/sonido-beat/logging"
)

// bpmKeys are the raw tag keys holding a tempo, by container:
// ID3v2.3/2.4 TBPM, ID3v2.2 TBP, MP4 tmpo, Vorbis comment BPM
var bpmKeys = []string{"TBPM", "TBP", "tmpo", "tempo", "bpm", "BPM"}

// BPMTag is a tempo value found in file metadata
type BPMTag struct {
	Value  float64
	Key    string
	Format string
}

// Reader reads tempo tags from files
type Reader struct {
	logger logging.Logger
}

// NewReader creates a tag reader
func NewReader() *Reader {
	return &Reader{
		logger: logging.WithFields(logging.Fields{
			"component": "tag_reader",
		}),
	}
}

// ReadBPM returns the tempo tag of path. ok is false when the file has no
// tags, no tempo tag, or a tempo that does not parse as a finite number.
// Only a missing or unreadable file is an error.
func (r *Reader) ReadBPM(path string) (bpm BPMTag, ok bool, err error) {
	logger := r.logger.WithFields(logging.Fields{
		"function": "ReadBPM",
		"path":     path,
	})

	f, err := os.Open(path)
	if err != nil {
		return BPMTag{}, false, sonidoerrors.NewNotFoundError(path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if !errors.Is(err, tag.ErrNoTagsFound) {
			logger.Debug("Failed to read tags", logging.Fields{"error": err.Error()})
		}
		return BPMTag{}, false, nil
	}

	raw := m.Raw()
	for _, key := range bpmKeys {
		v, present := raw[key]
		if !present {
			continue
		}
		value, parseErr := parseBPM(v)
		if parseErr != nil {
			logger.Debug("Ignoring unparsable tempo tag", logging.Fields{
				"key":   key,
				"value": fmt.Sprint(v),
			})
			continue
		}
		return BPMTag{Value: value, Key: key, Format: string(m.Format())}, true, nil
	}

	return BPMTag{}, false, nil
}

// parseBPM converts a raw tag value to a finite float
func parseBPM(v any) (float64, error) {
	var value float64
	switch t := v.(type) {
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimRight(t, "\x00")), 64)
		if err != nil {
			return 0, err
		}
		value = parsed
	case int:
		value = float64(t)
	case int64:
		value = float64(t)
	case uint16:
		value = float64(t)
	case float64:
		value = t
	case []byte:
		if len(t) == 2 {
			value = float64(int(t[0])<<8 | int(t[1]))
		} else {
			return parseBPM(string(t))
		}
	default:
		return 0, fmt.Errorf("unsupported tempo tag type %T", v)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("tempo tag is not finite")
	}
	return value, nil
}

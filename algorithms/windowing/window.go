package windowing

import (
	"fmt"

	"github.com/mjibson/go-dsp/window"
)

// Kind names a window function
type Kind string

const (
	KindHann        Kind = "hann"
	KindHamming     Kind = "hamming"
	KindBlackman    Kind = "blackman"
	KindRectangular Kind = "rectangular"
)

// ParseKind validates a window name. The empty string selects Hann.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case "", KindHann:
		return KindHann, nil
	case KindHamming, KindBlackman, KindRectangular:
		return Kind(name), nil
	default:
		return "", fmt.Errorf("unknown window type %q", name)
	}
}

// Window holds precomputed periodic window coefficients of a fixed size.
// Periodic (DFT-even) windows are the right choice for overlapping STFT frames.
type Window struct {
	kind         Kind
	size         int
	coefficients []float64
}

// New creates a periodic window of the given kind and size
func New(kind Kind, size int) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive: %d", size)
	}

	var gen func(int) []float64
	switch kind {
	case "", KindHann:
		kind, gen = KindHann, window.Hann
	case KindHamming:
		gen = window.Hamming
	case KindBlackman:
		gen = window.Blackman
	case KindRectangular:
		gen = window.Rectangular
	default:
		return nil, fmt.Errorf("unknown window type %q", kind)
	}

	// go-dsp generates symmetric windows; drop the last point of an L+1
	// window to get the periodic form
	coeffs := gen(size + 1)[:size]

	return &Window{
		kind:         kind,
		size:         size,
		coefficients: coeffs,
	}, nil
}

// NewHann creates a periodic Hann window
func NewHann(size int) *Window {
	w, err := New(KindHann, size)
	if err != nil {
		panic(err)
	}
	return w
}

// ApplyInPlace applies the window to a signal in-place
func (w *Window) ApplyInPlace(signal []float64) error {
	if len(signal) != w.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.size)
	}

	for i := range w.size {
		signal[i] *= w.coefficients[i]
	}

	return nil
}

// GetCoefficients returns a copy of the window coefficients
func (w *Window) GetCoefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}

// GetSize returns the window size
func (w *Window) GetSize() int {
	return w.size
}

// GetType returns the window type
func (w *Window) GetType() Kind {
	return w.kind
}

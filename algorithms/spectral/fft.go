package spectral

import (
	"github.com/mjibson/go-dsp/fft"

	"github.com/RyanBlaney/sonido-beat/algorithms/common"
)

// FFT provides Fast Fourier Transform functionality on top of mjibson/go-dsp
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real signal.
// go-dsp handles any size, using radix-2 for powers of two and Bluestein otherwise.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFTReal(x)
}

// ComputeInverseReal computes inverse FFT and returns real part only
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := fft.IFFT(x)
	realResult := make([]float64, len(result))

	for i, val := range result {
		realResult[i] = real(val)
	}

	return realResult
}

// Autocorrelate returns the raw (unnormalized) autocorrelation of x for lags
// 0..maxLag, r[k] = sum_n x[n]*x[n+k]. The signal is zero-padded to avoid
// circular wrap-around.
func (f *FFT) Autocorrelate(x []float64, maxLag int) []float64 {
	if len(x) == 0 || maxLag < 0 {
		return []float64{}
	}
	maxLag = min(maxLag, len(x)-1)

	n := common.NextPowerOfTwo(2 * len(x))
	padded := make([]float64, n)
	copy(padded, x)

	spectrum := fft.FFTReal(padded)
	for i, c := range spectrum {
		re, im := real(c), imag(c)
		spectrum[i] = complex(re*re+im*im, 0)
	}

	full := f.ComputeInverseReal(spectrum)
	return full[:maxLag+1]
}

package common

// InterpolationType defines interpolation method
type InterpolationType int

const (
	Linear InterpolationType = iota
	Nearest
)

// Interpolator provides sample-rate conversion for decoded PCM
type Interpolator struct {
	method InterpolationType
}

// NewInterpolator creates a new interpolator
func NewInterpolator(method InterpolationType) *Interpolator {
	return &Interpolator{
		method: method,
	}
}

// Interpolate performs interpolation at fractional index
func (interp *Interpolator) Interpolate(data []float64, index float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	if index <= 0 {
		return data[0]
	}
	if index >= float64(len(data)-1) {
		return data[len(data)-1]
	}

	i := int(index)
	frac := index - float64(i)

	if interp.method == Nearest {
		if frac >= 0.5 {
			return data[i+1]
		}
		return data[i]
	}
	return data[i] + frac*(data[i+1]-data[i])
}

// ResampleSignal resamples a signal to a new sample rate. When downsampling,
// a moving-average prefilter spanning the rate ratio limits aliasing.
func (interp *Interpolator) ResampleSignal(signal []float64, originalRate, targetRate int) []float64 {
	if len(signal) == 0 || originalRate <= 0 || targetRate <= 0 || originalRate == targetRate {
		out := make([]float64, len(signal))
		copy(out, signal)
		return out
	}

	ratio := float64(originalRate) / float64(targetRate)
	newLength := int(float64(len(signal)) / ratio)
	if newLength <= 0 {
		return []float64{}
	}

	source := signal
	if ratio > 1 {
		source = boxFilter(signal, int(ratio+0.5))
	}

	resampled := make([]float64, newLength)
	for i := range resampled {
		resampled[i] = interp.Interpolate(source, float64(i)*ratio)
	}

	return resampled
}

// boxFilter is a centered moving average of the given width
func boxFilter(signal []float64, width int) []float64 {
	if width <= 1 {
		return signal
	}
	half := width / 2
	prefix := make([]float64, len(signal)+1)
	for i, v := range signal {
		prefix[i+1] = prefix[i] + v
	}

	out := make([]float64, len(signal))
	for i := range signal {
		lo := max(i-half, 0)
		hi := min(i+half+1, len(signal))
		out[i] = (prefix[hi] - prefix[lo]) / float64(hi-lo)
	}
	return out
}

package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions used across algorithms using gonum for robustness

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// StandardDeviation calculates the sample standard deviation
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.StdDev(data, nil)
}

// Median returns the median without modifying data
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Norm(data, 2) / math.Sqrt(float64(len(data)))
}

// MaxAbs returns the largest absolute value in data
func MaxAbs(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Max(math.Abs(floats.Max(data)), math.Abs(floats.Min(data)))
}

// ArgMaxRange returns the index of the largest value in data[lo:hi]
// (hi exclusive) or -1 when the range is empty
func ArgMaxRange(data []float64, lo, hi int) int {
	lo = max(lo, 0)
	hi = min(hi, len(data))
	if lo >= hi {
		return -1
	}
	return lo + floats.MaxIdx(data[lo:hi])
}

// LocalMaxima returns indices i where data[i] > data[i-1] and data[i] >= data[i+1].
// The last element counts as a maximum when it exceeds its predecessor.
func LocalMaxima(data []float64) []int {
	var peaks []int
	for i := 1; i < len(data); i++ {
		if data[i] <= data[i-1] {
			continue
		}
		if i == len(data)-1 || data[i] >= data[i+1] {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// ParabolicPeak refines an integer peak index by fitting a parabola through
// the peak and its two neighbours. Edge indices are returned unchanged.
func ParabolicPeak(data []float64, idx int) float64 {
	if idx <= 0 || idx >= len(data)-1 {
		return float64(idx)
	}
	a, b, c := data[idx-1], data[idx], data[idx+1]
	denom := a - 2*b + c
	if denom == 0 {
		return float64(idx)
	}
	offset := 0.5 * (a - c) / denom
	if offset > 0.5 || offset < -0.5 {
		return float64(idx)
	}
	return float64(idx) + offset
}

// RoundTo rounds value to the given number of decimal places
func RoundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}

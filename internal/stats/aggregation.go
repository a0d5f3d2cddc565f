package stats

import (
	"math"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance calculates the sample variance (n-1 denominator)
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := Mean(values)
	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	return sumSquaredDiff / float64(len(values)-1)
}

// StdDev calculates the sample standard deviation
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// Max returns the maximum value
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Sum returns the sum of all values
func Sum(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum
}

// CountIf returns how many values satisfy pred
func CountIf(values []float64, pred func(float64) bool) int {
	n := 0
	for _, v := range values {
		if pred(v) {
			n++
		}
	}
	return n
}

// AbsDiffs returns |values[i]-values[i-1]| for i >= 1
func AbsDiffs(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = math.Abs(values[i] - values[i-1])
	}
	return out
}

// Finite replaces NaN and ±Inf with 0
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

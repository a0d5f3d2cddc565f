package stats

import "math"

// Rolling applies fn over a trailing window of size window ending at each index.
// Positions with fewer than minPeriods values available yield NaN.
func Rolling(values []float64, window, minPeriods int, fn func([]float64) float64) []float64 {
	out := make([]float64, len(values))
	if window < 1 {
		window = 1
	}
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		w := values[start : i+1]
		if len(w) < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = fn(w)
	}
	return out
}

// RollingMean is the trailing mean with min_periods=1
func RollingMean(values []float64, window int) []float64 {
	return Rolling(values, window, 1, Mean)
}

// RollingMax is the trailing max with min_periods=1
func RollingMax(values []float64, window int) []float64 {
	return Rolling(values, window, 1, Max)
}

// RollingStdDev is the trailing sample standard deviation; positions with fewer
// than two values available are 0 rather than NaN
func RollingStdDev(values []float64, window int) []float64 {
	out := Rolling(values, window, 2, StdDev)
	for i, v := range out {
		out[i] = Finite(v)
	}
	return out
}

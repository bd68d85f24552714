package ta

import "math"

// SMA returns the simple moving average of the last n values.
func SMA(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		sum += vals[i]
	}
	return sum / float64(n)
}

// Alpha returns the EMA smoothing factor 2/(n+1).
func Alpha(n int) float64 {
	return 2.0 / (float64(n) + 1.0)
}

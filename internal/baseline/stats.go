package baseline

import "math"

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []int64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum int64
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

// SampleStddev returns the sample standard deviation of xs using the
// n-1 denominator. Fewer than two samples yield 0.
func SampleStddev(xs []int64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}

	mean := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := float64(x) - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

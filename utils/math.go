// Package utils contains small numeric and concurrency helpers shared by the image packages.
package utils

import (
	"math"
	"math/rand"
)

// Square returns n*n. Math.pow( x, 2 ) is slow, this is faster.
func Square(n float64) float64 {
	return n * n
}

// RoundHalfEven rounds to the nearest integer, ties going to the even neighbor. Pixel coordinates
// are snapped this way everywhere so that forward and backward mappings agree on ties.
func RoundHalfEven(x float64) int {
	return int(math.RoundToEven(x))
}

// ClampToUint8 rounds v half to even and clips it to [0, 255]. NaN maps to 0.
func ClampToUint8(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.RoundToEven(v)
	switch {
	case v <= 0:
		return 0
	case v >= math.MaxUint8:
		return math.MaxUint8
	default:
		return uint8(v)
	}
}

// SampleRandomIntRange samples a random integer within a range given by [min, max]
// using the given rand.Rand.
func SampleRandomIntRange(minVal, maxVal int, r *rand.Rand) int {
	return r.Intn(maxVal-minVal+1) + minVal
}

// SampleWithoutReplacement draws k distinct indices uniformly from [0, n) using the given
// rand.Rand. It runs a partial Fisher-Yates shuffle so only k draws are consumed. It panics if
// k > n.
func SampleWithoutReplacement(n, k int, r *rand.Rand) []int {
	if k > n {
		panic("cannot sample more items than the population holds")
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j := SampleRandomIntRange(i, n-1, r)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

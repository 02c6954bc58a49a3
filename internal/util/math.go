package util

import (
	"cmp"
	"math"
	"slices"
)

func Clamp[T cmp.Ordered](value, lo, hi T) T {
	return min(hi, max(lo, value))
}

// Median returns the middle value, averaging the two middle values for
// even-length input. Empty input yields 0. The input is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// MedianRounded is the integer median used for display: the averaged middle
// of an even-length list is rounded half away from zero.
func MedianRounded(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return int64(math.Round(float64(sorted[mid-1]+sorted[mid]) / 2))
	}
	return sorted[mid]
}

// RoundTo rounds half away from zero to the given number of decimals.
func RoundTo(value float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(value*scale) / scale
}

func UniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; !exists {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}

	return result
}

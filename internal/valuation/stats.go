package valuation

import (
	"math"
	"sort"
)

// median returns nil for an empty sample.
func median(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	s := sortedCopy(xs)
	v := percentileSorted(s, 50)
	return &v
}

// iqr is P75 - P25 with linear interpolation between closest ranks.
func iqr(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	s := sortedCopy(xs)
	v := percentileSorted(s, 75) - percentileSorted(s, 25)
	return &v
}

func sortedCopy(xs []float64) []float64 {
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	return s
}

// percentileSorted expects a non-empty ascending slice and p in [0,100].
func percentileSorted(s []float64, p float64) float64 {
	if len(s) == 1 {
		return s[0]
	}
	rank := p / 100 * float64(len(s)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return s[lo]
	}
	return s[lo] + (s[hi]-s[lo])*(rank-float64(lo))
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func ptr(f float64) *float64 { return &f }

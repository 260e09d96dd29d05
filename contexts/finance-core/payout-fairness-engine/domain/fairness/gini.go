package fairness

import (
	"math"
	"sort"
)

const (
	CategoryExcellent = "excellent"
	CategoryGood      = "good"
	CategoryFair      = "fair"
	CategoryPoor      = "poor"
	CategoryExtreme   = "extreme"
)

// Gini returns the Gini coefficient of amounts clamped to [0,1]. Negative
// entries count as zero. Fewer than two values or a non-positive total yield 0.
func Gini(amounts []float64) float64 {
	n := len(amounts)
	if n <= 1 {
		return 0
	}
	sorted := make([]float64, n)
	total := 0.0
	for i, v := range amounts {
		if v < 0 || math.IsNaN(v) {
			v = 0
		}
		sorted[i] = v
		total += v
	}
	if total <= 0 || math.IsInf(total, 0) {
		return 0
	}
	sort.Float64s(sorted)

	weightedSum := 0.0
	for i, v := range sorted {
		weightedSum += float64(i+1) * v
	}
	nf := float64(n)
	g := 2*weightedSum/(nf*total) - (nf+1)/nf
	return clamp(g, 0, 1)
}

func Categorize(gini float64, buckets GiniBuckets) string {
	switch {
	case gini < buckets.Excellent:
		return CategoryExcellent
	case gini < buckets.Good:
		return CategoryGood
	case gini < buckets.Fair:
		return CategoryFair
	case gini < buckets.Poor:
		return CategoryPoor
	default:
		return CategoryExtreme
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

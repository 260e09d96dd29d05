package fairness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGiniEqualVectorIsZero(t *testing.T) {
	assert.InDelta(t, 0.0, Gini([]float64{250, 250, 250, 250}), 1e-12)
}

func TestGiniSingleHolderIsNMinusOneOverN(t *testing.T) {
	for _, n := range []int{2, 3, 4, 10} {
		amounts := make([]float64, n)
		amounts[n-1] = 500
		assert.InDelta(t, float64(n-1)/float64(n), Gini(amounts), 1e-12, "n=%d", n)
	}
}

func TestGiniIsOrderInvariant(t *testing.T) {
	assert.InDelta(t, Gini([]float64{1, 5, 3, 9}), Gini([]float64{9, 3, 5, 1}), 1e-12)
	assert.InDelta(t, Gini([]float64{800, 100, 100}), Gini([]float64{100, 800, 100}), 1e-12)
}

func TestGiniStaysWithinBounds(t *testing.T) {
	vectors := [][]float64{
		{0, 0, 1},
		{1, 2, 3, 4, 5},
		{1e9, 1, 1},
		{-50, 10, 20},
		{0.01, 0.02},
	}
	for _, v := range vectors {
		g := Gini(v)
		assert.GreaterOrEqual(t, g, 0.0)
		assert.LessOrEqual(t, g, 1.0)
	}
}

func TestGiniDegenerateInputs(t *testing.T) {
	assert.Equal(t, 0.0, Gini(nil))
	assert.Equal(t, 0.0, Gini([]float64{42}))
	assert.Equal(t, 0.0, Gini([]float64{0, 0, 0}))
}

func TestGiniKnownValue(t *testing.T) {
	assert.InDelta(t, 0.466667, Gini([]float64{800, 100, 100}), 1e-6)
}

func TestCategorizeBuckets(t *testing.T) {
	buckets := DefaultThresholds().Buckets
	cases := map[float64]string{
		0.0:  CategoryExcellent,
		0.29: CategoryExcellent,
		0.30: CategoryGood,
		0.39: CategoryGood,
		0.40: CategoryFair,
		0.59: CategoryFair,
		0.60: CategoryPoor,
		0.69: CategoryPoor,
		0.70: CategoryExtreme,
		1.0:  CategoryExtreme,
	}
	for g, want := range cases {
		assert.Equal(t, want, Categorize(g, buckets), "gini=%v", g)
	}
}

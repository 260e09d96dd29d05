package fairness

import (
	"math"
	"testing"

	domainerrors "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/errors"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSplitProportionalShares(t *testing.T) {
	shares, err := CalculateSplit(1000, []WeightedContributor{
		{ContributorID: "alice", Weight: 30},
		{ContributorID: "bob", Weight: 25},
		{ContributorID: "carol", Weight: 20},
	})
	require.NoError(t, err)
	require.Len(t, shares, 3)

	assert.Equal(t, "alice", shares[0].ContributorID)
	assert.Equal(t, 400.00, shares[0].Amount)
	assert.Equal(t, 333.33, shares[1].Amount)
	assert.Equal(t, 266.67, shares[2].Amount)
	assert.Equal(t, 40.00, shares[0].Percentage)
	assert.Equal(t, 33.33, shares[1].Percentage)
	assert.Equal(t, 26.67, shares[2].Percentage)
}

func TestCalculateSplitSumsExactly(t *testing.T) {
	cases := []struct {
		bounty  float64
		weights []float64
	}{
		{1000, []float64{30, 25, 15}},
		{100, []float64{1, 1, 1}},
		{0.05, []float64{1, 1, 1, 1, 1, 1, 1}},
		{12345.67, []float64{0.1, 0.2, 0.3, 0.4}},
		{999.99, []float64{7, 0, 13, 2.5, 1e-3}},
	}
	for _, tc := range cases {
		input := make([]WeightedContributor, len(tc.weights))
		for i, w := range tc.weights {
			input[i] = WeightedContributor{ContributorID: string(rune('a' + i)), Weight: w}
		}
		shares, err := CalculateSplit(tc.bounty, input)
		require.NoError(t, err)

		var cents, points int64
		for _, s := range shares {
			cents += int64(math.Round(s.Amount * 100))
			points += int64(math.Round(s.Percentage * 100))
		}
		assert.Equal(t, int64(math.Round(tc.bounty*100)), cents, "bounty=%v", tc.bounty)
		assert.Equal(t, int64(10000), points, "bounty=%v", tc.bounty)
	}
}

func TestCalculateSplitResidualGoesToFirstLargest(t *testing.T) {
	shares, err := CalculateSplit(100, []WeightedContributor{
		{ContributorID: "a", Weight: 1},
		{ContributorID: "b", Weight: 1},
		{ContributorID: "c", Weight: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{33.34, 33.33, 33.33}, []float64{shares[0].Amount, shares[1].Amount, shares[2].Amount})
	assert.Equal(t, []float64{33.34, 33.33, 33.33}, []float64{shares[0].Percentage, shares[1].Percentage, shares[2].Percentage})
}

func TestCalculateSplitFewerCentsThanContributorsKeepsWeightOrder(t *testing.T) {
	shares, err := CalculateSplit(0.02, []WeightedContributor{
		{ContributorID: "a", Weight: 1.1},
		{ContributorID: "b", Weight: 1},
		{ContributorID: "c", Weight: 1},
	})
	require.NoError(t, err)
	require.Len(t, shares, 3)
	assert.Equal(t, []float64{0.01, 0.01, 0}, []float64{shares[0].Amount, shares[1].Amount, shares[2].Amount})

	var cents int64
	for _, s := range shares {
		assert.GreaterOrEqual(t, shares[0].Amount, s.Amount, "largest weight got less than %s", s.ContributorID)
		cents += int64(math.Round(s.Amount * 100))
	}
	assert.Equal(t, int64(2), cents)
}

func TestCalculateSplitSingleContributorTakesAll(t *testing.T) {
	for _, w := range []float64{0, 0.3, 42} {
		shares, err := CalculateSplit(750.5, []WeightedContributor{{ContributorID: "solo", Weight: w}})
		require.NoError(t, err)
		require.Len(t, shares, 1)
		assert.Equal(t, 100.0, shares[0].Percentage)
		assert.Equal(t, 750.5, shares[0].Amount)
	}
}

func TestCalculateSplitEmptyListIsEmpty(t *testing.T) {
	shares, err := CalculateSplit(100, nil)
	require.NoError(t, err)
	assert.Empty(t, shares)
}

func TestCalculateSplitRejectsInvalidInput(t *testing.T) {
	_, err := CalculateSplit(0, []WeightedContributor{{ContributorID: "a", Weight: 1}})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = CalculateSplit(-10, []WeightedContributor{{ContributorID: "a", Weight: 1}})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = CalculateSplit(100, []WeightedContributor{{ContributorID: "a", Weight: 1}, {ContributorID: "b", Weight: -1}})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = CalculateSplit(100, []WeightedContributor{{ContributorID: "a", Weight: 0}, {ContributorID: "b", Weight: 0}})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = CalculateSplit(100, []WeightedContributor{{ContributorID: " ", Weight: 1}})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCalculateSplitIsDeterministic(t *testing.T) {
	input := []WeightedContributor{
		{ContributorID: "a", Weight: 3.3},
		{ContributorID: "b", Weight: 1.7},
		{ContributorID: "c", Weight: 5},
	}
	first, err := CalculateSplit(321.09, input)
	require.NoError(t, err)
	second, err := CalculateSplit(321.09, input)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("split not deterministic (-first +second):\n%s", diff)
	}
}

package fairness

import (
	"fmt"
	"math"
	"sort"
	"strings"

	domainerrors "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/errors"
)

type WeightedContributor struct {
	ContributorID string  `json:"contributor_id"`
	Weight        float64 `json:"weight"`
}

type Share struct {
	ContributorID string  `json:"contributor_id"`
	Weight        float64 `json:"weight"`
	Percentage    float64 `json:"percentage"`
	Amount        float64 `json:"amount"`
}

const basisPointsTotal = 10000

// CalculateSplit divides bounty proportionally to weights. Amounts are settled
// in whole cents and percentages in basis points, each rounded half to even,
// with the residual assigned to the largest weight so that amounts sum to the
// bounty and percentages sum to 100 exactly. Output preserves input order.
func CalculateSplit(bounty float64, weights []WeightedContributor) ([]Share, error) {
	if math.IsNaN(bounty) || math.IsInf(bounty, 0) || bounty <= 0 {
		return nil, fmt.Errorf("%w: bounty must be positive", domainerrors.ErrValidation)
	}
	bountyCents := int64(math.RoundToEven(bounty * 100))
	if bountyCents <= 0 {
		return nil, fmt.Errorf("%w: bounty rounds to zero cents", domainerrors.ErrValidation)
	}
	if len(weights) == 0 {
		return []Share{}, nil
	}

	total := 0.0
	largest := 0
	for i, w := range weights {
		if strings.TrimSpace(w.ContributorID) == "" {
			return nil, fmt.Errorf("%w: contributor id is required", domainerrors.ErrValidation)
		}
		if math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) || w.Weight < 0 {
			return nil, fmt.Errorf("%w: weight for %s must be a non-negative number", domainerrors.ErrValidation, w.ContributorID)
		}
		total += w.Weight
		if w.Weight > weights[largest].Weight {
			largest = i
		}
	}

	if len(weights) == 1 {
		return []Share{{
			ContributorID: weights[0].ContributorID,
			Weight:        weights[0].Weight,
			Percentage:    100,
			Amount:        float64(bountyCents) / 100,
		}}, nil
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: weights must not all be zero", domainerrors.ErrValidation)
	}

	cents := apportion(bountyCents, weights, total, largest)
	points := apportion(basisPointsTotal, weights, total, largest)

	shares := make([]Share, len(weights))
	for i, w := range weights {
		shares[i] = Share{
			ContributorID: w.ContributorID,
			Weight:        w.Weight,
			Percentage:    float64(points[i]) / 100,
			Amount:        float64(cents[i]) / 100,
		}
	}
	return shares, nil
}

func apportion(units int64, weights []WeightedContributor, total float64, largest int) []int64 {
	out := make([]int64, len(weights))
	var assigned int64
	for i, w := range weights {
		out[i] = int64(math.RoundToEven(float64(units) * w.Weight / total))
		assigned += out[i]
	}
	if residual := units - assigned; residual >= 0 {
		out[largest] += residual
		return out
	}

	// Rounding handed out more units than exist. Take one unit back from each
	// of the entries that were rounded up furthest, so a larger weight never
	// ends below a smaller one. Each such entry was rounded up by at most half
	// a unit, so there are always enough of them.
	deficit := assigned - units
	excess := make([]float64, len(weights))
	order := make([]int, len(weights))
	for i, w := range weights {
		excess[i] = float64(out[i]) - float64(units)*w.Weight/total
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ea, eb := excess[order[a]], excess[order[b]]
		if ea != eb {
			return ea > eb
		}
		return order[a] > order[b]
	})
	for _, i := range order[:deficit] {
		out[i]--
	}
	return out
}

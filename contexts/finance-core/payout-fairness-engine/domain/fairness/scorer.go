package fairness

import "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/entities"

// Score combines the Gini coefficient with flag counts into [0,1].
func Score(gini float64, redFlags, greenFlags int, thresholds Thresholds) float64 {
	raw := 1 -
		thresholds.GiniWeight*gini -
		thresholds.RedFlagPenalty*float64(redFlags) +
		thresholds.GreenFlagBonus*float64(greenFlags)
	return clamp(raw, 0, 1)
}

// Analysis is the full derived result of one audit computation. It is the
// unit cached by input hash.
type Analysis struct {
	Evaluation      Evaluation                `json:"evaluation"`
	GiniCategory    string                    `json:"gini_category"`
	FairnessScore   float64                   `json:"fairness_score"`
	Recommendations []entities.Recommendation `json:"recommendations"`
}

func Analyze(input RuleInput, thresholds Thresholds) Analysis {
	eval := Evaluate(input, thresholds)
	return Analysis{
		Evaluation:      eval,
		GiniCategory:    Categorize(eval.Gini, thresholds.Buckets),
		FairnessScore:   Score(eval.Gini, len(eval.RedFlags), len(eval.GreenFlags), thresholds),
		Recommendations: Recommend(eval, input.Manifest != nil, thresholds),
	}
}

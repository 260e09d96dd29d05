package fairness

import "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/entities"

type recommendationText struct {
	severity entities.Severity
	title    string
	message  string
}

var redFlagRecommendations = map[entities.FlagID]recommendationText{
	entities.FlagSingleContributorDominance: {
		entities.SeverityCritical,
		"Rebalance dominant share",
		"One contributor holds most of the payout. Confirm the share is backed by recorded work or redistribute toward other contributors.",
	},
	entities.FlagUnpaidWorkDetected: {
		entities.SeverityCritical,
		"Pay every contributor with recorded work",
		"At least one contributor with recorded work receives nothing. Add a payout entry or document why the work is excluded.",
	},
	entities.FlagExtremeInequality: {
		entities.SeverityCritical,
		"Reduce payout inequality",
		"The payout distribution is extremely unequal. Review weights against the contribution record before approving.",
	},
	entities.FlagMissingAttribution: {
		entities.SeverityCritical,
		"Complete the composition manifest",
		"Contributors with recorded work are absent from the composition manifest. Add attribution entries for them.",
	},
	entities.FlagSuspiciousTiming: {
		entities.SeverityWarning,
		"Re-sign the manifest ahead of payout",
		"The composition manifest was signed too close to or after the distribution. Have contributors confirm it before funds move.",
	},
	entities.FlagUnexplainedVariance: {
		entities.SeverityCritical,
		"Explain payout variance",
		"Payout shares differ from manifest weights. Record a rationale for each deviation or align the distribution with the manifest.",
	},
	entities.FlagNoDiverseRoles: {
		entities.SeverityWarning,
		"Recognise non-code contributions",
		"All recorded contributions share a single type. Check whether design, review or research work went unrecorded.",
	},
	entities.FlagExploitationPattern: {
		entities.SeverityCritical,
		"Review contributor dispute history",
		"A participant has a dispute history that matches known exploitation patterns. Escalate the distribution for manual review.",
	},
}

// Recommend returns fixed-text recommendations for an evaluation. Order is
// red flags in canonical order followed by general findings.
func Recommend(eval Evaluation, manifestPresent bool, thresholds Thresholds) []entities.Recommendation {
	out := make([]entities.Recommendation, 0, len(eval.RedFlags)+2)
	for _, flag := range eval.RedFlags {
		text, ok := redFlagRecommendations[flag.ID]
		if !ok {
			continue
		}
		out = append(out, entities.Recommendation{
			Severity: text.severity,
			FlagID:   flag.ID,
			Title:    text.title,
			Message:  text.message,
		})
	}

	if !manifestPresent {
		out = append(out, entities.Recommendation{
			Severity: entities.SeverityWarning,
			Title:    "Publish a composition manifest",
			Message:  "No composition manifest exists for this challenge. A signed manifest makes the split auditable.",
		})
	}
	if eval.Gini > thresholds.ElevatedGini && eval.Gini <= thresholds.ExtremeGini && !eval.HasRed(entities.FlagExtremeInequality) {
		out = append(out, entities.Recommendation{
			Severity: entities.SeverityWarning,
			Title:    "Watch payout concentration",
			Message:  "Inequality is elevated but below the extreme threshold. Double-check the largest shares.",
		})
	}
	if len(eval.RedFlags) == 0 && len(eval.GreenFlags) >= thresholds.ReferenceGreenFlags {
		out = append(out, entities.Recommendation{
			Severity: entities.SeveritySuggestion,
			Title:    "Share this distribution as a reference",
			Message:  "No issues were found and most fairness signals are present. Consider using this split as a template.",
		})
	}
	return out
}

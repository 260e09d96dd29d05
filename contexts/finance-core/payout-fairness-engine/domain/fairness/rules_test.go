package fairness

import (
	"testing"
	"time"

	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/entities"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var distributedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func contribution(contributorID string, kind entities.ContributionType) entities.ContributionRecord {
	return entities.ContributionRecord{
		ContributionID: "c-" + contributorID + "-" + string(kind),
		ChallengeID:    "ch-1",
		ContributorID:  contributorID,
		Type:           kind,
		TokenValue:     1,
		CreatedAt:      distributedAt.Add(-72 * time.Hour),
	}
}

func distribution(amounts map[string]float64, order ...string) entities.PayoutDistribution {
	d := entities.PayoutDistribution{
		DistributionID: "dist-1",
		ChallengeID:    "ch-1",
		Source:         entities.SourceProposedDistribution,
		CreatedAt:      distributedAt,
	}
	for _, id := range order {
		d.Entries = append(d.Entries, entities.DistributionEntry{ContributorID: id, Amount: amounts[id]})
	}
	return d
}

func signedManifest(signedBefore time.Duration, weights map[string]float64, order ...string) *entities.CompositionManifest {
	signedAt := distributedAt.Add(-signedBefore)
	m := &entities.CompositionManifest{
		ManifestID:  "man-1",
		ChallengeID: "ch-1",
		SignedAt:    &signedAt,
		CreatedAt:   signedAt,
	}
	for _, id := range order {
		m.Entries = append(m.Entries, entities.ManifestEntry{ContributorID: id, Weight: weights[id]})
	}
	return m
}

func flagIDs(flags []entities.Flag) []entities.FlagID {
	out := make([]entities.FlagID, 0, len(flags))
	for _, f := range flags {
		out = append(out, f.ID)
	}
	return out
}

func TestEvaluateDominantContributorScenario(t *testing.T) {
	input := RuleInput{
		Contributions: []entities.ContributionRecord{
			contribution("a", entities.ContributionCode),
			contribution("b", entities.ContributionDesign),
			contribution("c", entities.ContributionTesting),
		},
		Distribution: distribution(map[string]float64{"a": 800, "b": 100, "c": 100}, "a", "b", "c"),
	}

	analysis := Analyze(input, DefaultThresholds())
	eval := analysis.Evaluation

	assert.InDelta(t, 0.466667, eval.Gini, 1e-6)
	assert.Equal(t, []entities.FlagID{entities.FlagSingleContributorDominance}, flagIDs(eval.RedFlags))
	assert.Equal(t, []entities.FlagID{
		entities.FlagDiverseContributionTypes,
		entities.FlagAllContributorsPaid,
	}, flagIDs(eval.GreenFlags))
	assert.Equal(t, CategoryFair, analysis.GiniCategory)
	assert.InDelta(t, 1-0.3*0.466667-0.15+0.10, analysis.FairnessScore, 1e-6)

	require.NotEmpty(t, analysis.Recommendations)
	assert.Equal(t, entities.SeverityCritical, analysis.Recommendations[0].Severity)
	assert.Equal(t, entities.FlagSingleContributorDominance, analysis.Recommendations[0].FlagID)
}

func TestEvaluateCleanProportionalScenario(t *testing.T) {
	input := RuleInput{
		Contributions: []entities.ContributionRecord{
			contribution("alice", entities.ContributionCode),
			contribution("bob", entities.ContributionDesign),
			contribution("carol", entities.ContributionResearch),
		},
		Manifest: signedManifest(48*time.Hour,
			map[string]float64{"alice": 0.4, "bob": 0.3333, "carol": 0.2667},
			"alice", "bob", "carol"),
		Distribution: distribution(map[string]float64{"alice": 400, "bob": 333.33, "carol": 266.67}, "alice", "bob", "carol"),
	}

	analysis := Analyze(input, DefaultThresholds())

	assert.InDelta(t, 0.0889, analysis.Evaluation.Gini, 1e-4)
	assert.Empty(t, analysis.Evaluation.RedFlags)
	assert.Empty(t, analysis.Evaluation.Warnings)
	assert.Equal(t, []entities.FlagID{
		entities.FlagDiverseContributionTypes,
		entities.FlagAllContributorsPaid,
		entities.FlagFairDistribution,
		entities.FlagTransparentManifest,
	}, flagIDs(analysis.Evaluation.GreenFlags))
	assert.Equal(t, CategoryExcellent, analysis.GiniCategory)
	assert.Equal(t, 1.0, analysis.FairnessScore)
	require.Len(t, analysis.Recommendations, 1)
	assert.Equal(t, entities.SeveritySuggestion, analysis.Recommendations[0].Severity)
}

func TestDominanceBoundaryIsStrict(t *testing.T) {
	contribs := []entities.ContributionRecord{
		contribution("a", entities.ContributionCode),
		contribution("b", entities.ContributionReview),
	}

	atLimit := Evaluate(RuleInput{
		Contributions: contribs,
		Distribution:  distribution(map[string]float64{"a": 700, "b": 300}, "a", "b"),
	}, DefaultThresholds())
	assert.False(t, atLimit.HasRed(entities.FlagSingleContributorDominance))

	overLimit := Evaluate(RuleInput{
		Contributions: contribs,
		Distribution:  distribution(map[string]float64{"a": 701, "b": 299}, "a", "b"),
	}, DefaultThresholds())
	assert.True(t, overLimit.HasRed(entities.FlagSingleContributorDominance))
}

func TestUnpaidWorkCountsMissingPayeesAsZero(t *testing.T) {
	eval := Evaluate(RuleInput{
		Contributions: []entities.ContributionRecord{
			contribution("a", entities.ContributionCode),
			contribution("b", entities.ContributionCode),
			contribution("c", entities.ContributionDocumentation),
		},
		Distribution: distribution(map[string]float64{"a": 500, "b": 500}, "a", "b"),
	}, DefaultThresholds())

	assert.True(t, eval.HasRed(entities.FlagUnpaidWorkDetected))
	assert.NotContains(t, flagIDs(eval.GreenFlags), entities.FlagAllContributorsPaid)
	require.Len(t, eval.Payouts, 3)
	assert.Equal(t, 0.0, eval.Payouts[2].Amount)
	assert.InDelta(t, Gini([]float64{500, 500, 0}), eval.Gini, 1e-12)
}

func TestSuspiciousTimingWindow(t *testing.T) {
	contribs := []entities.ContributionRecord{contribution("a", entities.ContributionCode)}
	dist := distribution(map[string]float64{"a": 100}, "a")
	weights := map[string]float64{"a": 1}

	cases := []struct {
		name         string
		signedBefore time.Duration
		suspicious   bool
		transparent  bool
	}{
		{"signed thirty minutes before", 30 * time.Minute, true, false},
		{"signed after distribution", -2 * time.Hour, true, false},
		{"signed exactly one hour before", time.Hour, false, false},
		{"signed exactly one day before", 24 * time.Hour, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eval := Evaluate(RuleInput{
				Contributions: contribs,
				Manifest:      signedManifest(tc.signedBefore, weights, "a"),
				Distribution:  dist,
			}, DefaultThresholds())
			assert.Equal(t, tc.suspicious, eval.HasRed(entities.FlagSuspiciousTiming))
			assert.Equal(t, tc.transparent, containsFlag(eval.GreenFlags, entities.FlagTransparentManifest))
		})
	}
}

func TestManifestRulesAndCanonicalOrder(t *testing.T) {
	input := RuleInput{
		Contributions: []entities.ContributionRecord{
			contribution("c", entities.ContributionCode),
			contribution("a", entities.ContributionCode),
			contribution("b", entities.ContributionCode),
		},
		Manifest:     signedManifest(10*time.Minute, map[string]float64{"a": 0.5, "b": 0.5}, "a", "b"),
		Distribution: distribution(map[string]float64{"a": 700, "b": 300}, "a", "b"),
		Reputation: map[string]entities.ReputationRecord{
			"a": {ContributorID: "a", DisputesAgainst: 3, LeadershipScore: 90},
		},
	}

	eval := Evaluate(input, DefaultThresholds())
	want := []entities.FlagID{
		entities.FlagUnpaidWorkDetected,
		entities.FlagMissingAttribution,
		entities.FlagSuspiciousTiming,
		entities.FlagUnexplainedVariance,
		entities.FlagNoDiverseRoles,
		entities.FlagExploitationPattern,
	}
	if diff := cmp.Diff(want, flagIDs(eval.RedFlags)); diff != "" {
		t.Fatalf("unexpected red flags (-want +got):\n%s", diff)
	}
	assert.Empty(t, eval.GreenFlags)
}

func TestExploitationPatternConditions(t *testing.T) {
	base := RuleInput{
		Contributions: []entities.ContributionRecord{contribution("a", entities.ContributionCode)},
		Distribution:  distribution(map[string]float64{"a": 100}, "a"),
	}
	cases := []struct {
		rep  entities.ReputationRecord
		want bool
	}{
		{entities.ReputationRecord{DisputesAgainst: 3, LeadershipScore: 95}, true},
		{entities.ReputationRecord{DisputesAgainst: 1, LeadershipScore: 40}, true},
		{entities.ReputationRecord{DisputesAgainst: 0, LeadershipScore: 10}, false},
		{entities.ReputationRecord{DisputesAgainst: 2, LeadershipScore: 50}, false},
	}
	for _, tc := range cases {
		input := base
		input.Reputation = map[string]entities.ReputationRecord{"a": tc.rep}
		eval := Evaluate(input, DefaultThresholds())
		assert.Equal(t, tc.want, eval.HasRed(entities.FlagExploitationPattern), "rep=%+v", tc.rep)
	}
}

func TestManifestWeightSumProducesWarning(t *testing.T) {
	eval := Evaluate(RuleInput{
		Contributions: []entities.ContributionRecord{contribution("a", entities.ContributionCode)},
		Manifest:      signedManifest(48*time.Hour, map[string]float64{"a": 0.9}, "a"),
		Distribution:  distribution(map[string]float64{"a": 100}, "a"),
	}, DefaultThresholds())
	require.Len(t, eval.Warnings, 1)
	assert.Contains(t, eval.Warnings[0], "0.9000")
}

func TestEvaluateIsDeterministic(t *testing.T) {
	input := RuleInput{
		Contributions: []entities.ContributionRecord{
			contribution("a", entities.ContributionCode),
			contribution("b", entities.ContributionIdea),
		},
		Distribution: distribution(map[string]float64{"a": 10, "b": 90}, "a", "b"),
		Reputation: map[string]entities.ReputationRecord{
			"b": {ContributorID: "b", DisputesAgainst: 5},
			"a": {ContributorID: "a", DisputesAgainst: 4},
		},
	}
	first := Analyze(input, DefaultThresholds())
	second := Analyze(input, DefaultThresholds())
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("analysis not deterministic (-first +second):\n%s", diff)
	}
}

func containsFlag(flags []entities.Flag, id entities.FlagID) bool {
	for _, f := range flags {
		if f.ID == id {
			return true
		}
	}
	return false
}

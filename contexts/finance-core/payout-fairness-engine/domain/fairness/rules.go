package fairness

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/entities"
)

type RuleInput struct {
	Contributions []entities.ContributionRecord        `json:"contributions"`
	Manifest      *entities.CompositionManifest        `json:"manifest,omitempty"`
	Distribution  entities.PayoutDistribution          `json:"distribution"`
	Reputation    map[string]entities.ReputationRecord `json:"reputation,omitempty"`
}

type ContributorPayout struct {
	ContributorID string  `json:"contributor_id"`
	Amount        float64 `json:"amount"`
	HasWork       bool    `json:"has_work"`
}

type Evaluation struct {
	Gini       float64             `json:"gini"`
	Payouts    []ContributorPayout `json:"payouts"`
	RedFlags   []entities.Flag     `json:"red_flags"`
	GreenFlags []entities.Flag     `json:"green_flags"`
	Warnings   []string            `json:"warnings,omitempty"`
}

func (e Evaluation) HasRed(id entities.FlagID) bool {
	for _, f := range e.RedFlags {
		if f.ID == id {
			return true
		}
	}
	return false
}

type ruleContext struct {
	input      RuleInput
	thresholds Thresholds
	payouts    []ContributorPayout
	byID       map[string]float64
	total      float64
	gini       float64
	types      map[entities.ContributionType]struct{}
}

type rule struct {
	id    entities.FlagID
	kind  entities.FlagKind
	check func(rc ruleContext) (string, bool)
}

// Canonical order. Flags are emitted in this order regardless of input order.
var rules = []rule{
	{entities.FlagSingleContributorDominance, entities.FlagKindRed, checkDominance},
	{entities.FlagUnpaidWorkDetected, entities.FlagKindRed, checkUnpaidWork},
	{entities.FlagExtremeInequality, entities.FlagKindRed, checkExtremeInequality},
	{entities.FlagMissingAttribution, entities.FlagKindRed, checkMissingAttribution},
	{entities.FlagSuspiciousTiming, entities.FlagKindRed, checkSuspiciousTiming},
	{entities.FlagUnexplainedVariance, entities.FlagKindRed, checkUnexplainedVariance},
	{entities.FlagNoDiverseRoles, entities.FlagKindRed, checkNoDiverseRoles},
	{entities.FlagExploitationPattern, entities.FlagKindRed, checkExploitation},

	{entities.FlagDiverseContributionTypes, entities.FlagKindGreen, checkDiverseTypes},
	{entities.FlagAllContributorsPaid, entities.FlagKindGreen, checkAllPaid},
	{entities.FlagFairDistribution, entities.FlagKindGreen, checkFairDistribution},
	{entities.FlagTransparentManifest, entities.FlagKindGreen, checkTransparentManifest},
}

// Evaluate runs every rule against input. It is pure: identical input and
// thresholds always produce an identical Evaluation.
func Evaluate(input RuleInput, thresholds Thresholds) Evaluation {
	rc := newRuleContext(input, thresholds)
	eval := Evaluation{
		Gini:       rc.gini,
		Payouts:    rc.payouts,
		RedFlags:   []entities.Flag{},
		GreenFlags: []entities.Flag{},
		Warnings:   manifestWarnings(input.Manifest, thresholds),
	}
	for _, r := range rules {
		detail, fired := r.check(rc)
		if !fired {
			continue
		}
		flag := entities.Flag{ID: r.id, Kind: r.kind, Detail: detail}
		if r.kind == entities.FlagKindRed {
			eval.RedFlags = append(eval.RedFlags, flag)
		} else {
			eval.GreenFlags = append(eval.GreenFlags, flag)
		}
	}
	return eval
}

func newRuleContext(input RuleInput, thresholds Thresholds) ruleContext {
	rc := ruleContext{
		input:      input,
		thresholds: thresholds,
		byID:       make(map[string]float64),
		types:      make(map[entities.ContributionType]struct{}),
	}

	index := make(map[string]int)
	for _, c := range input.Contributions {
		id := strings.TrimSpace(c.ContributorID)
		rc.types[c.Type] = struct{}{}
		if id == "" {
			continue
		}
		if _, seen := index[id]; !seen {
			index[id] = len(rc.payouts)
			rc.payouts = append(rc.payouts, ContributorPayout{ContributorID: id, HasWork: true})
		}
	}
	for _, e := range input.Distribution.Entries {
		id := strings.TrimSpace(e.ContributorID)
		if id == "" {
			continue
		}
		i, seen := index[id]
		if !seen {
			i = len(rc.payouts)
			index[id] = i
			rc.payouts = append(rc.payouts, ContributorPayout{ContributorID: id})
		}
		rc.payouts[i].Amount += e.Amount
	}

	amounts := make([]float64, len(rc.payouts))
	for i, p := range rc.payouts {
		amounts[i] = p.Amount
		rc.byID[p.ContributorID] = p.Amount
		if p.Amount > 0 {
			rc.total += p.Amount
		}
	}
	if rc.payouts == nil {
		rc.payouts = []ContributorPayout{}
	}
	rc.gini = Gini(amounts)
	return rc
}

func checkDominance(rc ruleContext) (string, bool) {
	if rc.total <= 0 {
		return "", false
	}
	top := ContributorPayout{}
	for _, p := range rc.payouts {
		if p.Amount > top.Amount {
			top = p
		}
	}
	share := top.Amount / rc.total
	if share <= rc.thresholds.DominanceShare {
		return "", false
	}
	return fmt.Sprintf("contributor %s received %.2f%% of the total payout (limit %.2f%%)",
		top.ContributorID, share*100, rc.thresholds.DominanceShare*100), true
}

func checkUnpaidWork(rc ruleContext) (string, bool) {
	var unpaid []string
	for _, p := range rc.payouts {
		if p.HasWork && p.Amount <= 0 {
			unpaid = append(unpaid, p.ContributorID)
		}
	}
	if len(unpaid) == 0 {
		return "", false
	}
	sort.Strings(unpaid)
	return fmt.Sprintf("contributors with recorded work but no payout: %s", strings.Join(unpaid, ", ")), true
}

func checkExtremeInequality(rc ruleContext) (string, bool) {
	if rc.gini <= rc.thresholds.ExtremeGini {
		return "", false
	}
	return fmt.Sprintf("gini coefficient %.4f exceeds %.2f", rc.gini, rc.thresholds.ExtremeGini), true
}

func checkMissingAttribution(rc ruleContext) (string, bool) {
	if rc.input.Manifest == nil {
		return "", false
	}
	listed := make(map[string]struct{}, len(rc.input.Manifest.Entries))
	for _, e := range rc.input.Manifest.Entries {
		listed[strings.TrimSpace(e.ContributorID)] = struct{}{}
	}
	var missing []string
	for _, p := range rc.payouts {
		if !p.HasWork {
			continue
		}
		if _, ok := listed[p.ContributorID]; !ok {
			missing = append(missing, p.ContributorID)
		}
	}
	if len(missing) == 0 {
		return "", false
	}
	sort.Strings(missing)
	return fmt.Sprintf("contributors missing from composition manifest: %s", strings.Join(missing, ", ")), true
}

func checkSuspiciousTiming(rc ruleContext) (string, bool) {
	m := rc.input.Manifest
	if m == nil || !m.Signed() || rc.input.Distribution.CreatedAt.IsZero() {
		return "", false
	}
	lead := rc.input.Distribution.CreatedAt.Sub(*m.SignedAt)
	if lead >= rc.thresholds.SuspiciousSigningWindow {
		return "", false
	}
	if lead < 0 {
		return fmt.Sprintf("manifest signed %s after the distribution was created", (-lead).Round(time.Second)), true
	}
	return fmt.Sprintf("manifest signed only %s before the distribution was created (minimum %s)",
		lead.Round(time.Second), rc.thresholds.SuspiciousSigningWindow), true
}

func checkUnexplainedVariance(rc ruleContext) (string, bool) {
	m := rc.input.Manifest
	if m == nil || rc.total <= 0 {
		return "", false
	}
	weights := make(map[string]float64)
	var order []string
	for _, e := range m.Entries {
		id := strings.TrimSpace(e.ContributorID)
		if _, seen := weights[id]; !seen {
			order = append(order, id)
		}
		weights[id] += e.Weight
	}
	var details []string
	for _, id := range order {
		share := math.Max(rc.byID[id], 0) / rc.total
		if math.Abs(weights[id]-share) > rc.thresholds.VarianceTolerance {
			details = append(details, fmt.Sprintf("%s weight %.4f vs payout share %.4f", id, weights[id], share))
		}
	}
	if len(details) == 0 {
		return "", false
	}
	return "manifest weights diverge from payout shares: " + strings.Join(details, "; "), true
}

func checkNoDiverseRoles(rc ruleContext) (string, bool) {
	if len(rc.input.Contributions) == 0 || len(rc.types) != 1 {
		return "", false
	}
	var only entities.ContributionType
	for t := range rc.types {
		only = t
	}
	return fmt.Sprintf("all %d contributions are of type %s", len(rc.input.Contributions), only), true
}

func checkExploitation(rc ruleContext) (string, bool) {
	if len(rc.input.Reputation) == 0 {
		return "", false
	}
	ids := make([]string, 0, len(rc.input.Reputation))
	for id := range rc.input.Reputation {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var details []string
	for _, id := range ids {
		rep := rc.input.Reputation[id]
		switch {
		case rep.DisputesAgainst >= rc.thresholds.ExploitationDisputes:
			details = append(details, fmt.Sprintf("%s has %d disputes against", id, rep.DisputesAgainst))
		case rep.LeadershipScore < rc.thresholds.LowLeadershipScore && rep.DisputesAgainst > 0:
			details = append(details, fmt.Sprintf("%s has leadership score %.0f with %d disputes against",
				id, rep.LeadershipScore, rep.DisputesAgainst))
		}
	}
	if len(details) == 0 {
		return "", false
	}
	return "reputation history suggests exploitation: " + strings.Join(details, "; "), true
}

func checkDiverseTypes(rc ruleContext) (string, bool) {
	if len(rc.types) < rc.thresholds.DiverseTypeCount {
		return "", false
	}
	return fmt.Sprintf("%d distinct contribution types recorded", len(rc.types)), true
}

func checkAllPaid(rc ruleContext) (string, bool) {
	workers := 0
	for _, p := range rc.payouts {
		if !p.HasWork {
			continue
		}
		workers++
		if p.Amount <= 0 {
			return "", false
		}
	}
	if workers == 0 {
		return "", false
	}
	return fmt.Sprintf("all %d contributors received a payout", workers), true
}

func checkFairDistribution(rc ruleContext) (string, bool) {
	if rc.total <= 0 || rc.gini >= rc.thresholds.FairGini {
		return "", false
	}
	return fmt.Sprintf("gini coefficient %.4f is below %.2f", rc.gini, rc.thresholds.FairGini), true
}

func checkTransparentManifest(rc ruleContext) (string, bool) {
	m := rc.input.Manifest
	if m == nil || !m.Signed() || rc.input.Distribution.CreatedAt.IsZero() {
		return "", false
	}
	lead := rc.input.Distribution.CreatedAt.Sub(*m.SignedAt)
	if lead < rc.thresholds.TransparentSigningLead {
		return "", false
	}
	return fmt.Sprintf("manifest signed %s before the distribution was created", lead.Round(time.Second)), true
}

func manifestWarnings(m *entities.CompositionManifest, thresholds Thresholds) []string {
	if m == nil || len(m.Entries) == 0 {
		return nil
	}
	sum := 0.0
	for _, e := range m.Entries {
		sum += e.Weight
	}
	if math.Abs(sum-1) <= thresholds.ManifestWeightTolerance {
		return nil
	}
	return []string{fmt.Sprintf("manifest weights sum to %.4f, expected 1.00 within %.2f",
		sum, thresholds.ManifestWeightTolerance)}
}

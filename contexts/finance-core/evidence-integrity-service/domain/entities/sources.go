package entities

import "time"

type PayoutRow struct {
	ContributorID    string
	ContributionType string
	Weight           float64
	Amount           float64
}

type ManifestSignature struct {
	ManifestID string
	SignedAt   *time.Time
	Entries    int
}

func (m *ManifestSignature) Signed() bool {
	return m != nil && m.SignedAt != nil && !m.SignedAt.IsZero()
}

// ChallengeSummary is the mandatory input of every package.
type ChallengeSummary struct {
	ChallengeID        string
	Title              string
	Status             string
	LeaderID           string
	BountyAmount       float64
	CreatedAt          time.Time
	CompletedAt        *time.Time
	DistributionSource string
	Payouts            []PayoutRow
	Manifest           *ManifestSignature
	// ContributionTypes and ManifestWeights annotate payout rows by
	// contributor id.
	ContributionTypes map[string]string
	ManifestWeights   map[string]float64
}

type PayoutEntry struct {
	ContributorID string
	Amount        float64
}

// ResolvedPayouts is the distribution a fairness audit is computed from.
type ResolvedPayouts struct {
	Source  string
	Entries []PayoutEntry
}

// WithPayouts replaces the payout table with resolved, one row per
// contributor in first-seen order. Weight is the manifest weight when the
// manifest names the contributor, otherwise the share of the paid total.
func (s ChallengeSummary) WithPayouts(resolved ResolvedPayouts) ChallengeSummary {
	amounts := make(map[string]float64, len(resolved.Entries))
	var order []string
	total := 0.0
	for _, entry := range resolved.Entries {
		if _, seen := amounts[entry.ContributorID]; !seen {
			order = append(order, entry.ContributorID)
		}
		amounts[entry.ContributorID] += entry.Amount
		total += entry.Amount
	}

	s.DistributionSource = resolved.Source
	s.Payouts = make([]PayoutRow, 0, len(order))
	for _, id := range order {
		weight, ok := s.ManifestWeights[id]
		if !ok && total > 0 {
			weight = amounts[id] / total
		}
		s.Payouts = append(s.Payouts, PayoutRow{
			ContributorID:    id,
			ContributionType: s.ContributionTypes[id],
			Weight:           weight,
			Amount:           amounts[id],
		})
	}
	return s
}

type TimelineEvent struct {
	EventID    string
	EventType  string
	Actor      string
	Summary    string
	OccurredAt time.Time
}

type FileHash struct {
	FileName  string
	SHA256    string
	SizeBytes int64
}

type FairnessFlag struct {
	ID     string
	Kind   string
	Detail string
}

// FairnessSnapshot is the subset of a fairness audit a package embeds.
type FairnessSnapshot struct {
	AuditID            string
	GiniCoefficient    float64
	GiniCategory       string
	FairnessScore      float64
	RedFlags           []FairnessFlag
	GreenFlags         []FairnessFlag
	Recommendations    []string
	IncompleteSections []string
	CreatedAt          time.Time
}

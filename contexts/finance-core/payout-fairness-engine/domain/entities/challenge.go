package entities

import "time"

type ContributionType string

const (
	ContributionCode          ContributionType = "CODE"
	ContributionDesign        ContributionType = "DESIGN"
	ContributionIdea          ContributionType = "IDEA"
	ContributionResearch      ContributionType = "RESEARCH"
	ContributionReview        ContributionType = "REVIEW"
	ContributionDocumentation ContributionType = "DOCUMENTATION"
	ContributionTesting       ContributionType = "TESTING"
	ContributionLeadership    ContributionType = "LEADERSHIP"
	ContributionOther         ContributionType = "OTHER"
)

func (t ContributionType) Valid() bool {
	switch t {
	case ContributionCode, ContributionDesign, ContributionIdea, ContributionResearch,
		ContributionReview, ContributionDocumentation, ContributionTesting,
		ContributionLeadership, ContributionOther:
		return true
	default:
		return false
	}
}

type Challenge struct {
	ChallengeID  string
	Title        string
	BountyAmount float64
	Status       string
	LeaderID     string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// ContributionRecord is read-only work evidence for one contributor.
type ContributionRecord struct {
	ContributionID string
	ChallengeID    string
	ContributorID  string
	Type           ContributionType
	TokenValue     float64
	CreatedAt      time.Time
}

type ManifestEntry struct {
	ContributorID string
	Type          ContributionType
	Weight        float64
	Reference     string
}

type CompositionManifest struct {
	ManifestID  string
	ChallengeID string
	Entries     []ManifestEntry
	SignedAt    *time.Time
	CreatedAt   time.Time
}

func (m CompositionManifest) Signed() bool {
	return m.SignedAt != nil && !m.SignedAt.IsZero()
}

// DistributionSource names where payout amounts came from. It is resolved once
// at the start of an audit and never mixed.
type DistributionSource string

const (
	SourceProposedDistribution DistributionSource = "PROPOSED_DISTRIBUTION"
	SourceRealizedPayments     DistributionSource = "REALIZED_PAYMENTS"
)

type DistributionEntry struct {
	ContributorID string
	Amount        float64
	Rationale     string
	EvidenceRefs  []string
}

type PayoutDistribution struct {
	DistributionID string
	ChallengeID    string
	Entries        []DistributionEntry
	Source         DistributionSource
	CreatedAt      time.Time
}

type Payment struct {
	PaymentID     string
	ChallengeID   string
	ContributorID string
	Amount        float64
	Status        string
	CreatedAt     time.Time
}

// Counted reports whether the payment contributes to realized payouts.
func (p Payment) Counted() bool {
	switch p.Status {
	case "failed", "cancelled", "refunded":
		return false
	default:
		return true
	}
}

type ReputationRecord struct {
	ContributorID   string
	DisputesRaised  int
	DisputesAgainst int
	LeadershipScore float64
}

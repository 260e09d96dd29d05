package entities

import "time"

type FlagID string

const (
	FlagSingleContributorDominance FlagID = "SINGLE_CONTRIBUTOR_DOMINANCE"
	FlagUnpaidWorkDetected         FlagID = "UNPAID_WORK_DETECTED"
	FlagExtremeInequality          FlagID = "EXTREME_INEQUALITY"
	FlagMissingAttribution         FlagID = "MISSING_ATTRIBUTION"
	FlagSuspiciousTiming           FlagID = "SUSPICIOUS_TIMING"
	FlagUnexplainedVariance        FlagID = "UNEXPLAINED_VARIANCE"
	FlagNoDiverseRoles             FlagID = "NO_DIVERSE_ROLES"
	FlagExploitationPattern        FlagID = "EXPLOITATION_PATTERN"

	FlagDiverseContributionTypes FlagID = "DIVERSE_CONTRIBUTION_TYPES"
	FlagAllContributorsPaid      FlagID = "ALL_CONTRIBUTORS_PAID"
	FlagFairDistribution         FlagID = "FAIR_DISTRIBUTION"
	FlagTransparentManifest      FlagID = "TRANSPARENT_MANIFEST"
)

type FlagKind string

const (
	FlagKindRed   FlagKind = "red"
	FlagKindGreen FlagKind = "green"
)

type Flag struct {
	ID     FlagID   `json:"id"`
	Kind   FlagKind `json:"kind"`
	Detail string   `json:"detail"`
}

type Severity string

const (
	SeverityCritical   Severity = "CRITICAL"
	SeverityWarning    Severity = "WARNING"
	SeveritySuggestion Severity = "SUGGESTION"
)

type Recommendation struct {
	Severity Severity `json:"severity"`
	FlagID   FlagID   `json:"flag_id,omitempty"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
}

// FairnessAuditRecord is immutable once stored. A re-audit appends a new record.
type FairnessAuditRecord struct {
	AuditID            string
	ChallengeID        string
	GiniCoefficient    float64
	GiniCategory       string
	FairnessScore      float64
	RedFlags           []Flag
	GreenFlags         []Flag
	Recommendations    []Recommendation
	EvidenceLinks      []string
	DistributionSource DistributionSource
	IncompleteSections []string
	Warnings           []string
	InputHash          string
	CreatedAt          time.Time
}

func (r FairnessAuditRecord) Incomplete() bool {
	return len(r.IncompleteSections) > 0
}

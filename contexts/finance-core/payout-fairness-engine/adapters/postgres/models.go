package postgresadapter

import (
	"encoding/json"
	"time"

	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/entities"
)

type challengeModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	Title        string     `gorm:"column:title"`
	BountyAmount float64    `gorm:"column:bounty_amount"`
	Status       string     `gorm:"column:status"`
	LeaderID     string     `gorm:"column:leader_id"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
}

func (challengeModel) TableName() string {
	return "challenges"
}

func (m challengeModel) toEntity() entities.Challenge {
	return entities.Challenge{
		ChallengeID:  m.ID,
		Title:        m.Title,
		BountyAmount: m.BountyAmount,
		Status:       m.Status,
		LeaderID:     m.LeaderID,
		CreatedAt:    m.CreatedAt.UTC(),
		CompletedAt:  normalizeOptionalTime(m.CompletedAt),
	}
}

type contributionModel struct {
	ID               string    `gorm:"column:id;primaryKey"`
	ChallengeID      string    `gorm:"column:challenge_id"`
	ContributorID    string    `gorm:"column:contributor_id"`
	ContributionType string    `gorm:"column:contribution_type"`
	TokenValue       float64   `gorm:"column:token_value"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (contributionModel) TableName() string {
	return "challenge_contributions"
}

func (m contributionModel) toEntity() entities.ContributionRecord {
	return entities.ContributionRecord{
		ContributionID: m.ID,
		ChallengeID:    m.ChallengeID,
		ContributorID:  m.ContributorID,
		Type:           entities.ContributionType(m.ContributionType),
		TokenValue:     m.TokenValue,
		CreatedAt:      m.CreatedAt.UTC(),
	}
}

type manifestModel struct {
	ID          string     `gorm:"column:id;primaryKey"`
	ChallengeID string     `gorm:"column:challenge_id"`
	SignedAt    *time.Time `gorm:"column:signed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
}

func (manifestModel) TableName() string {
	return "composition_manifests"
}

type manifestEntryModel struct {
	ManifestID       string  `gorm:"column:manifest_id;primaryKey"`
	Position         int     `gorm:"column:position;primaryKey"`
	ContributorID    string  `gorm:"column:contributor_id"`
	ContributionType string  `gorm:"column:contribution_type"`
	Weight           float64 `gorm:"column:weight"`
	Reference        string  `gorm:"column:reference"`
}

func (manifestEntryModel) TableName() string {
	return "composition_manifest_entries"
}

type distributionModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	ChallengeID string    `gorm:"column:challenge_id"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (distributionModel) TableName() string {
	return "payout_distributions"
}

type distributionEntryModel struct {
	DistributionID string  `gorm:"column:distribution_id;primaryKey"`
	Position       int     `gorm:"column:position;primaryKey"`
	ContributorID  string  `gorm:"column:contributor_id"`
	Amount         float64 `gorm:"column:amount"`
	Rationale      string  `gorm:"column:rationale"`
	EvidenceRefs   []byte  `gorm:"column:evidence_refs;type:jsonb"`
}

func (distributionEntryModel) TableName() string {
	return "payout_distribution_entries"
}

type paymentModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	ChallengeID   string    `gorm:"column:challenge_id"`
	ContributorID string    `gorm:"column:contributor_id"`
	Amount        float64   `gorm:"column:amount"`
	Status        string    `gorm:"column:status"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (paymentModel) TableName() string {
	return "payments"
}

type reputationModel struct {
	ContributorID   string  `gorm:"column:contributor_id;primaryKey"`
	DisputesRaised  int     `gorm:"column:disputes_raised"`
	DisputesAgainst int     `gorm:"column:disputes_against"`
	LeadershipScore float64 `gorm:"column:leadership_score"`
}

func (reputationModel) TableName() string {
	return "contributor_reputation"
}

type auditModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	ChallengeID        string    `gorm:"column:challenge_id"`
	GiniCoefficient    float64   `gorm:"column:gini_coefficient"`
	GiniCategory       string    `gorm:"column:gini_category"`
	FairnessScore      float64   `gorm:"column:fairness_score"`
	RedFlags           []byte    `gorm:"column:red_flags;type:jsonb"`
	GreenFlags         []byte    `gorm:"column:green_flags;type:jsonb"`
	Recommendations    []byte    `gorm:"column:recommendations;type:jsonb"`
	EvidenceLinks      []byte    `gorm:"column:evidence_links;type:jsonb"`
	DistributionSource string    `gorm:"column:distribution_source"`
	IncompleteSections []byte    `gorm:"column:incomplete_sections;type:jsonb"`
	Warnings           []byte    `gorm:"column:warnings;type:jsonb"`
	InputHash          string    `gorm:"column:input_hash"`
	CreatedAt          time.Time `gorm:"column:created_at"`
}

func (auditModel) TableName() string {
	return "fairness_audits"
}

func auditModelFromEntity(record entities.FairnessAuditRecord) (auditModel, error) {
	row := auditModel{
		ID:                 record.AuditID,
		ChallengeID:        record.ChallengeID,
		GiniCoefficient:    record.GiniCoefficient,
		GiniCategory:       record.GiniCategory,
		FairnessScore:      record.FairnessScore,
		DistributionSource: string(record.DistributionSource),
		InputHash:          record.InputHash,
		CreatedAt:          record.CreatedAt.UTC(),
	}
	fields := []struct {
		dst *[]byte
		src any
	}{
		{&row.RedFlags, record.RedFlags},
		{&row.GreenFlags, record.GreenFlags},
		{&row.Recommendations, record.Recommendations},
		{&row.EvidenceLinks, record.EvidenceLinks},
		{&row.IncompleteSections, record.IncompleteSections},
		{&row.Warnings, record.Warnings},
	}
	for _, f := range fields {
		raw, err := json.Marshal(f.src)
		if err != nil {
			return auditModel{}, err
		}
		*f.dst = raw
	}
	return row, nil
}

func (m auditModel) toEntity() (entities.FairnessAuditRecord, error) {
	record := entities.FairnessAuditRecord{
		AuditID:            m.ID,
		ChallengeID:        m.ChallengeID,
		GiniCoefficient:    m.GiniCoefficient,
		GiniCategory:       m.GiniCategory,
		FairnessScore:      m.FairnessScore,
		DistributionSource: entities.DistributionSource(m.DistributionSource),
		InputHash:          m.InputHash,
		CreatedAt:          m.CreatedAt.UTC(),
	}
	fields := []struct {
		src []byte
		dst any
	}{
		{m.RedFlags, &record.RedFlags},
		{m.GreenFlags, &record.GreenFlags},
		{m.Recommendations, &record.Recommendations},
		{m.EvidenceLinks, &record.EvidenceLinks},
		{m.IncompleteSections, &record.IncompleteSections},
		{m.Warnings, &record.Warnings},
	}
	for _, f := range fields {
		if len(f.src) == 0 {
			continue
		}
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return entities.FairnessAuditRecord{}, err
		}
	}
	return record, nil
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (eventDedupModel) TableName() string {
	return "fairness_event_dedup"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "fairness_outbox"
}

package postgresadapter

import (
	"encoding/json"
	"time"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
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

type contributionModel struct {
	ContributorID    string    `gorm:"column:contributor_id"`
	ContributionType string    `gorm:"column:contribution_type"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (contributionModel) TableName() string {
	return "challenge_contributions"
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
	ManifestID    string  `gorm:"column:manifest_id"`
	ContributorID string  `gorm:"column:contributor_id"`
	Weight        float64 `gorm:"column:weight"`
}

func (manifestEntryModel) TableName() string {
	return "composition_manifest_entries"
}

type eventModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	EntityType string    `gorm:"column:entity_type"`
	EntityID   string    `gorm:"column:entity_id"`
	EventType  string    `gorm:"column:event_type"`
	Actor      string    `gorm:"column:actor"`
	Summary    string    `gorm:"column:summary"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
}

func (eventModel) TableName() string {
	return "challenge_events"
}

type fileModel struct {
	ChallengeID string `gorm:"column:challenge_id"`
	FileName    string `gorm:"column:file_name"`
	SHA256      string `gorm:"column:sha256"`
	SizeBytes   int64  `gorm:"column:size_bytes"`
}

func (fileModel) TableName() string {
	return "challenge_files"
}

type artifactModel struct {
	ID                    string    `gorm:"column:id;primaryKey"`
	ChallengeID           string    `gorm:"column:challenge_id"`
	Kind                  string    `gorm:"column:kind"`
	Flags                 []byte    `gorm:"column:inclusion_flags;type:jsonb"`
	FileName              string    `gorm:"column:file_name"`
	StorageKey            string    `gorm:"column:storage_key"`
	ContentType           string    `gorm:"column:content_type"`
	SizeBytes             int64     `gorm:"column:size_bytes"`
	SHA256                string    `gorm:"column:sha256"`
	VerificationReference string    `gorm:"column:verification_reference"`
	SupersedesID          *string   `gorm:"column:supersedes_id"`
	FairnessAuditID       string    `gorm:"column:fairness_audit_id"`
	IncompleteSections    []byte    `gorm:"column:incomplete_sections;type:jsonb"`
	CreatedAt             time.Time `gorm:"column:created_at"`
}

func (artifactModel) TableName() string {
	return "evidence_artifacts"
}

func artifactModelFromEntity(a entities.EvidenceArtifact) (artifactModel, error) {
	flags, err := json.Marshal(a.Flags)
	if err != nil {
		return artifactModel{}, err
	}
	incomplete := a.IncompleteSections
	if incomplete == nil {
		incomplete = []string{}
	}
	sections, err := json.Marshal(incomplete)
	if err != nil {
		return artifactModel{}, err
	}
	row := artifactModel{
		ID:                    a.ArtifactID,
		ChallengeID:           a.ChallengeID,
		Kind:                  string(a.Kind),
		Flags:                 flags,
		FileName:              a.FileName,
		StorageKey:            a.StorageKey,
		ContentType:           a.ContentType,
		SizeBytes:             a.SizeBytes,
		SHA256:                a.SHA256,
		VerificationReference: a.VerificationReference,
		FairnessAuditID:       a.FairnessAuditID,
		IncompleteSections:    sections,
		CreatedAt:             a.CreatedAt.UTC(),
	}
	if a.SupersedesID != "" {
		supersedes := a.SupersedesID
		row.SupersedesID = &supersedes
	}
	return row, nil
}

func (m artifactModel) toEntity() (entities.EvidenceArtifact, error) {
	artifact := entities.EvidenceArtifact{
		ArtifactID:            m.ID,
		ChallengeID:           m.ChallengeID,
		Kind:                  entities.PackageKind(m.Kind),
		FileName:              m.FileName,
		StorageKey:            m.StorageKey,
		ContentType:           m.ContentType,
		SizeBytes:             m.SizeBytes,
		SHA256:                m.SHA256,
		VerificationReference: m.VerificationReference,
		FairnessAuditID:       m.FairnessAuditID,
		CreatedAt:             m.CreatedAt.UTC(),
	}
	if m.SupersedesID != nil {
		artifact.SupersedesID = *m.SupersedesID
	}
	if len(m.Flags) > 0 {
		if err := json.Unmarshal(m.Flags, &artifact.Flags); err != nil {
			return entities.EvidenceArtifact{}, err
		}
	}
	if len(m.IncompleteSections) > 0 {
		if err := json.Unmarshal(m.IncompleteSections, &artifact.IncompleteSections); err != nil {
			return entities.EvidenceArtifact{}, err
		}
	}
	return artifact, nil
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
	return "evidence_outbox"
}

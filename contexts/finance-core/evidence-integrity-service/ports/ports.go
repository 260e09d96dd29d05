package ports

import (
	"context"
	"time"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
	contractsv1 "oddlybrilliant/contracts/gen/events/v1"
	"oddlybrilliant/internal/shared/outbox"
)

// ChallengeSummaryReader is mandatory; a missing challenge surfaces as domain
// ErrNotFound.
type ChallengeSummaryReader interface {
	GetChallengeSummary(ctx context.Context, challengeID string) (entities.ChallengeSummary, error)
}

// EventReader returns up to limit of the most recent events, oldest first.
type EventReader interface {
	ListEvents(ctx context.Context, entityType string, entityID string, limit int) ([]entities.TimelineEvent, error)
}

type FileHashReader interface {
	ListFileHashes(ctx context.Context, challengeID string) ([]entities.FileHash, error)
}

// PayoutReader yields the distribution the fairness audit resolved for the
// challenge. found is false when neither a distribution nor payments exist.
type PayoutReader interface {
	ResolvePayouts(ctx context.Context, challengeID string) (entities.ResolvedPayouts, bool, error)
}

type AuditSnapshotReader interface {
	LatestAudit(ctx context.Context, challengeID string) (entities.FairnessSnapshot, bool, error)
}

// BlobStore holds rendered package bytes. ReadBytes of a missing key returns
// domain ErrNotFound.
type BlobStore interface {
	WriteBytes(ctx context.Context, key string, data []byte, contentType string) error
	ReadBytes(ctx context.Context, key string) ([]byte, error)
	DeleteBytes(ctx context.Context, key string) error
}

// ArtifactRepository is append-only. CreateArtifact stores the metadata and
// its outbox event atomically.
type ArtifactRepository interface {
	CreateArtifact(ctx context.Context, artifact entities.EvidenceArtifact, event EventEnvelope) error
	GetArtifact(ctx context.Context, artifactID string) (entities.EvidenceArtifact, error)
	GetArtifactByReference(ctx context.Context, reference string) (entities.EvidenceArtifact, error)
	ListArtifactsByChallenge(ctx context.Context, challengeID string) ([]entities.EvidenceArtifact, error)
}

type Renderer interface {
	Render(ctx context.Context, doc entities.Document) ([]byte, error)
	ContentType() string
	Extension() string
}

type Metrics interface {
	ObservePackage(kind string, status string, sizeBytes int64)
	ObserveVerification(valid bool)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage = outbox.Message

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

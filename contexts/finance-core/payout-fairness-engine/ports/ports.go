package ports

import (
	"context"
	"time"

	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/entities"
	contractsv1 "oddlybrilliant/contracts/gen/events/v1"
	"oddlybrilliant/internal/shared/outbox"
)

// DataAccess is the read side the audit consumes. Missing challenges surface
// as domain ErrNotFound; a missing manifest or distribution is reported with
// found=false rather than an error.
type DataAccess interface {
	GetChallenge(ctx context.Context, challengeID string) (entities.Challenge, error)
	ListContributions(ctx context.Context, challengeID string) ([]entities.ContributionRecord, error)
	GetManifest(ctx context.Context, challengeID string) (entities.CompositionManifest, bool, error)
	GetLatestPayoutDistribution(ctx context.Context, challengeID string) (entities.PayoutDistribution, bool, error)
	ListPayments(ctx context.Context, challengeID string) ([]entities.Payment, error)
}

// ReputationReader is optional. Failures are absorbed by the audit.
type ReputationReader interface {
	GetReputation(ctx context.Context, contributorIDs []string) (map[string]entities.ReputationRecord, error)
}

// AuditLog is append-only. RecordAuditResult persists the record and its
// outbox event atomically.
type AuditLog interface {
	RecordAuditResult(ctx context.Context, record entities.FairnessAuditRecord, event EventEnvelope) error
	ListAuditsByChallenge(ctx context.Context, challengeID string) ([]entities.FairnessAuditRecord, error)
}

type AnalysisCache interface {
	CheckCache(ctx context.Context, inputHash string, out any) (bool, float64, error)
	SetCache(ctx context.Context, inputHash string, result any, confidence float64, ttl time.Duration) error
}

type Metrics interface {
	ObserveAudit(outcome string, duration time.Duration, gini float64, redFlags int)
}

// EventDedupStore reserves event ids so a redelivered event is handled once.
// ReleaseEvent drops a reservation whose handling failed, so the next delivery
// retries it; a reservation held for a different payload is left alone.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
	ReleaseEvent(ctx context.Context, eventID string, payloadHash string) error
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

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

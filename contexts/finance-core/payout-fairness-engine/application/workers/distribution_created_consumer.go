package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/application"
	domainerrors "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/errors"
	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/ports"
)

const (
	DistributionCreatedTopic = "payout.distribution_created"
	defaultDistributionCG    = "payout-fairness-engine-distribution-cg"
)

// DistributionCreatedConsumer audits a challenge whenever a new payout
// distribution is proposed for it.
type DistributionCreatedConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Audits        application.Service
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Disabled      bool
	Logger        *slog.Logger
}

func (c DistributionCreatedConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("distribution consumer disabled by feature flag",
			"event", "fairness_distribution_consumer_disabled",
			"module", "finance-core/payout-fairness-engine",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultDistributionCG
	}
	if err := c.Subscriber.Subscribe(ctx, DistributionCreatedTopic, group, c.handle); err != nil {
		logger.Error("distribution consumer subscribe failed",
			"event", "fairness_distribution_consumer_subscribe_failed",
			"module", "finance-core/payout-fairness-engine",
			"layer", "worker",
			"topic", DistributionCreatedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("distribution consumer subscription active",
		"event", "fairness_distribution_consumer_started",
		"module", "finance-core/payout-fairness-engine",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c DistributionCreatedConsumer) handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	payloadHash := hashPayload(event.Data)
	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, payloadHash, c.now().Add(c.dedupTTL()))
	if err != nil {
		logger.Error("distribution event dedupe failed",
			"event", "fairness_distribution_event_dedupe_failed",
			"module", "finance-core/payout-fairness-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if alreadyProcessed {
		logger.Debug("payout.distribution_created replay skipped",
			"event", "fairness_distribution_created_replayed",
			"module", "finance-core/payout-fairness-engine",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload struct {
		ChallengeID string `json:"challenge_id"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("payout.distribution_created payload decode failed",
			"event", "fairness_distribution_created_decode_failed",
			"module", "finance-core/payout-fairness-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	challengeID := strings.TrimSpace(payload.ChallengeID)
	if challengeID == "" {
		challengeID = strings.TrimSpace(event.PartitionKey)
	}

	record, err := c.Audits.RunFairnessAudit(ctx, challengeID)
	if err != nil {
		// Unknown challenges cannot succeed on redelivery.
		if errors.Is(err, domainerrors.ErrNotFound) ||
			errors.Is(err, domainerrors.ErrDistributionNotFound) ||
			errors.Is(err, domainerrors.ErrInvalidRequest) {
			logger.Warn("payout.distribution_created audit skipped",
				"event", "fairness_distribution_created_skipped",
				"module", "finance-core/payout-fairness-engine",
				"layer", "worker",
				"event_id", event.EventID,
				"challenge_id", challengeID,
				"error", err.Error(),
			)
			return nil
		}
		// Anything else may succeed on redelivery, which the reservation
		// would otherwise swallow as a replay.
		if releaseErr := c.Dedup.ReleaseEvent(context.WithoutCancel(ctx), event.EventID, payloadHash); releaseErr != nil {
			logger.Error("distribution event release failed",
				"event", "fairness_distribution_event_release_failed",
				"module", "finance-core/payout-fairness-engine",
				"layer", "worker",
				"event_id", event.EventID,
				"error", releaseErr.Error(),
			)
		}
		logger.Warn("payout.distribution_created audit failed",
			"event", "fairness_distribution_created_audit_failed",
			"module", "finance-core/payout-fairness-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"challenge_id", challengeID,
			"error", err.Error(),
		)
		return err
	}

	logger.Info("payout.distribution_created consumed",
		"event", "fairness_distribution_created_consumed",
		"module", "finance-core/payout-fairness-engine",
		"layer", "worker",
		"event_id", event.EventID,
		"challenge_id", challengeID,
		"audit_id", record.AuditID,
	)
	return nil
}

func (c DistributionCreatedConsumer) now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (c DistributionCreatedConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/application"
	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/ports"
)

// OutboxRelay publishes persisted audit events to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending rows, marking each published
// only after the broker accepted it. It stops on the first failure.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("fairness outbox list failed",
			"event", "fairness_outbox_list_failed",
			"module", "finance-core/payout-fairness-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		logger.Debug("fairness outbox relay found no pending rows",
			"event", "fairness_outbox_relay_noop",
			"module", "finance-core/payout-fairness-engine",
			"layer", "worker",
			"batch_size", limit,
		)
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("fairness outbox decode failed",
				"event", "fairness_outbox_decode_failed",
				"module", "finance-core/payout-fairness-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("fairness outbox publish failed",
				"event", "fairness_outbox_publish_failed",
				"module", "finance-core/payout-fairness-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("fairness outbox mark published failed",
				"event", "fairness_outbox_mark_published_failed",
				"module", "finance-core/payout-fairness-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Info("fairness outbox relay cycle completed",
		"event", "fairness_outbox_relay_completed",
		"module", "finance-core/payout-fairness-engine",
		"layer", "worker",
		"published_count", len(pending),
	)
	return nil
}

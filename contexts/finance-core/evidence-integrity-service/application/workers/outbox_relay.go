package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/application"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/ports"
)

// OutboxRelay publishes persisted evidence events to the event bus.
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
		logger.Error("evidence outbox list failed",
			"event", "evidence_outbox_list_failed",
			"module", "finance-core/evidence-integrity-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		logger.Debug("evidence outbox relay found no pending rows",
			"event", "evidence_outbox_relay_noop",
			"module", "finance-core/evidence-integrity-service",
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
			logger.Error("evidence outbox decode failed",
				"event", "evidence_outbox_decode_failed",
				"module", "finance-core/evidence-integrity-service",
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
			logger.Error("evidence outbox publish failed",
				"event", "evidence_outbox_publish_failed",
				"module", "finance-core/evidence-integrity-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("evidence outbox mark published failed",
				"event", "evidence_outbox_mark_published_failed",
				"module", "finance-core/evidence-integrity-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Info("evidence outbox relay cycle completed",
		"event", "evidence_outbox_relay_completed",
		"module", "finance-core/evidence-integrity-service",
		"layer", "worker",
		"published_count", len(pending),
	)
	return nil
}

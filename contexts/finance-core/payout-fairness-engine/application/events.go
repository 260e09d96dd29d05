package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/entities"
	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/ports"
)

const (
	EventAuditCompleted = "fairness.audit_completed"
	sourceService       = "payout-fairness-engine"
)

// auditCompletedEvent returns a zero envelope when emission is disabled; the
// audit log skips envelopes without an id.
func (s Service) auditCompletedEvent(ctx context.Context, record entities.FairnessAuditRecord) (ports.EventEnvelope, error) {
	if s.DisableAuditCompletedEventEmission {
		return ports.EventEnvelope{}, nil
	}
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	redFlags := make([]string, 0, len(record.RedFlags))
	for _, f := range record.RedFlags {
		redFlags = append(redFlags, string(f.ID))
	}
	data, err := json.Marshal(map[string]any{
		"audit_id":            record.AuditID,
		"challenge_id":        record.ChallengeID,
		"gini_coefficient":    record.GiniCoefficient,
		"gini_category":       record.GiniCategory,
		"fairness_score":      record.FairnessScore,
		"red_flags":           redFlags,
		"green_flag_count":    len(record.GreenFlags),
		"distribution_source": string(record.DistributionSource),
		"incomplete_sections": record.IncompleteSections,
		"input_hash":          record.InputHash,
		"created_at":          record.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          strings.TrimSpace(eventID),
		EventType:        EventAuditCompleted,
		OccurredAt:       record.CreatedAt.UTC(),
		SourceService:    sourceService,
		TraceID:          strings.TrimSpace(eventID),
		SchemaVersion:    1,
		PartitionKeyPath: "challenge_id",
		PartitionKey:     record.ChallengeID,
		Data:             data,
	}, nil
}

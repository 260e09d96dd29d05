package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/entities"
	domainerrors "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/errors"
	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/ports"
	"oddlybrilliant/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the tables this service owns. Challenge, contribution and
// payout tables belong to upstream systems and are only read.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&auditModel{}, &eventDedupModel{}, &outboxModel{})
}

func (r *Repository) GetChallenge(ctx context.Context, challengeID string) (entities.Challenge, error) {
	var row challengeModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(challengeID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Challenge{}, domainerrors.ErrNotFound
		}
		return entities.Challenge{}, r.logError("fairness_repo_get_challenge_failed", err,
			"challenge_id", strings.TrimSpace(challengeID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListContributions(ctx context.Context, challengeID string) ([]entities.ContributionRecord, error) {
	var rows []contributionModel
	if err := r.db.WithContext(ctx).
		Where("challenge_id = ?", strings.TrimSpace(challengeID)).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("fairness_repo_list_contributions_failed", err,
			"challenge_id", strings.TrimSpace(challengeID),
		)
	}
	items := make([]entities.ContributionRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetManifest(ctx context.Context, challengeID string) (entities.CompositionManifest, bool, error) {
	var row manifestModel
	err := r.db.WithContext(ctx).
		Where("challenge_id = ?", strings.TrimSpace(challengeID)).
		Order("created_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.CompositionManifest{}, false, nil
		}
		return entities.CompositionManifest{}, false, r.logError("fairness_repo_get_manifest_failed", err,
			"challenge_id", strings.TrimSpace(challengeID),
		)
	}

	var entries []manifestEntryModel
	if err := r.db.WithContext(ctx).
		Where("manifest_id = ?", row.ID).
		Order("position ASC").
		Find(&entries).Error; err != nil {
		return entities.CompositionManifest{}, false, r.logError("fairness_repo_list_manifest_entries_failed", err,
			"manifest_id", row.ID,
		)
	}
	manifest := entities.CompositionManifest{
		ManifestID:  row.ID,
		ChallengeID: row.ChallengeID,
		SignedAt:    normalizeOptionalTime(row.SignedAt),
		CreatedAt:   row.CreatedAt.UTC(),
	}
	for _, entry := range entries {
		manifest.Entries = append(manifest.Entries, entities.ManifestEntry{
			ContributorID: entry.ContributorID,
			Type:          entities.ContributionType(entry.ContributionType),
			Weight:        entry.Weight,
			Reference:     entry.Reference,
		})
	}
	return manifest, true, nil
}

func (r *Repository) GetLatestPayoutDistribution(ctx context.Context, challengeID string) (entities.PayoutDistribution, bool, error) {
	var row distributionModel
	err := r.db.WithContext(ctx).
		Where("challenge_id = ?", strings.TrimSpace(challengeID)).
		Order("created_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.PayoutDistribution{}, false, nil
		}
		return entities.PayoutDistribution{}, false, r.logError("fairness_repo_get_distribution_failed", err,
			"challenge_id", strings.TrimSpace(challengeID),
		)
	}

	var entries []distributionEntryModel
	if err := r.db.WithContext(ctx).
		Where("distribution_id = ?", row.ID).
		Order("position ASC").
		Find(&entries).Error; err != nil {
		return entities.PayoutDistribution{}, false, r.logError("fairness_repo_list_distribution_entries_failed", err,
			"distribution_id", row.ID,
		)
	}
	distribution := entities.PayoutDistribution{
		DistributionID: row.ID,
		ChallengeID:    row.ChallengeID,
		Source:         entities.SourceProposedDistribution,
		CreatedAt:      row.CreatedAt.UTC(),
	}
	for _, entry := range entries {
		var refs []string
		if len(entry.EvidenceRefs) > 0 {
			if err := json.Unmarshal(entry.EvidenceRefs, &refs); err != nil {
				return entities.PayoutDistribution{}, false, r.logError("fairness_repo_decode_evidence_refs_failed", err,
					"distribution_id", row.ID,
				)
			}
		}
		distribution.Entries = append(distribution.Entries, entities.DistributionEntry{
			ContributorID: entry.ContributorID,
			Amount:        entry.Amount,
			Rationale:     entry.Rationale,
			EvidenceRefs:  refs,
		})
	}
	return distribution, true, nil
}

func (r *Repository) ListPayments(ctx context.Context, challengeID string) ([]entities.Payment, error) {
	var rows []paymentModel
	if err := r.db.WithContext(ctx).
		Where("challenge_id = ?", strings.TrimSpace(challengeID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("fairness_repo_list_payments_failed", err,
			"challenge_id", strings.TrimSpace(challengeID),
		)
	}
	items := make([]entities.Payment, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Payment{
			PaymentID:     row.ID,
			ChallengeID:   row.ChallengeID,
			ContributorID: row.ContributorID,
			Amount:        row.Amount,
			Status:        row.Status,
			CreatedAt:     row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) GetReputation(ctx context.Context, contributorIDs []string) (map[string]entities.ReputationRecord, error) {
	out := make(map[string]entities.ReputationRecord)
	if len(contributorIDs) == 0 {
		return out, nil
	}
	var rows []reputationModel
	if err := r.db.WithContext(ctx).
		Where("contributor_id IN ?", contributorIDs).
		Find(&rows).Error; err != nil {
		return nil, r.logError("fairness_repo_get_reputation_failed", err,
			"contributors", len(contributorIDs),
		)
	}
	for _, row := range rows {
		out[row.ContributorID] = entities.ReputationRecord{
			ContributorID:   row.ContributorID,
			DisputesRaised:  row.DisputesRaised,
			DisputesAgainst: row.DisputesAgainst,
			LeadershipScore: row.LeadershipScore,
		}
	}
	return out, nil
}

// RecordAuditResult inserts the audit and its outbox row in one transaction.
// Audit rows are never updated.
func (r *Repository) RecordAuditResult(ctx context.Context, record entities.FairnessAuditRecord, event ports.EventEnvelope) error {
	row, err := auditModelFromEntity(record)
	if err != nil {
		return r.logError("fairness_repo_encode_audit_failed", err,
			"audit_id", record.AuditID,
		)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				r.logWarn("fairness_repo_record_audit_conflict",
					"audit_id", row.ID,
					"challenge_id", row.ChallengeID,
				)
				return domainerrors.ErrConflict
			}
			return r.logError("fairness_repo_record_audit_failed", err,
				"audit_id", row.ID,
				"challenge_id", row.ChallengeID,
			)
		}
		if strings.TrimSpace(event.EventID) == "" {
			return nil
		}
		return r.appendOutbox(ctx, tx, event)
	})
}

func (r *Repository) ListAuditsByChallenge(ctx context.Context, challengeID string) ([]entities.FairnessAuditRecord, error) {
	var rows []auditModel
	if err := r.db.WithContext(ctx).
		Where("challenge_id = ?", strings.TrimSpace(challengeID)).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("fairness_repo_list_audits_failed", err,
			"challenge_id", strings.TrimSpace(challengeID),
		)
	}
	items := make([]entities.FairnessAuditRecord, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, r.logError("fairness_repo_decode_audit_failed", err,
				"audit_id", row.ID,
			)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: payloadHash,
		ExpiresAt:   expiresAt.UTC(),
	}
	if row.EventID == "" {
		return false, domainerrors.ErrInvalidRequest
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return false, r.logError("fairness_repo_reserve_event_failed", result.Error,
			"event_id", row.EventID,
		)
	}
	if result.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("fairness_repo_reserve_event_load_failed", err,
			"event_id", row.EventID,
		)
	}
	if existing.PayloadHash != payloadHash {
		r.logWarn("fairness_repo_reserve_event_payload_conflict",
			"event_id", row.EventID,
		)
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) ReleaseEvent(ctx context.Context, eventID string, payloadHash string) error {
	id := strings.TrimSpace(eventID)
	if err := r.db.WithContext(ctx).
		Where("event_id = ? AND payload_hash = ?", id, payloadHash).
		Delete(&eventDedupModel{}).Error; err != nil {
		return r.logError("fairness_repo_release_event_failed", err,
			"event_id", id,
		)
	}
	return nil
}

func (r *Repository) appendOutbox(ctx context.Context, tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("fairness_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	createResult := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if createResult.Error != nil {
		return r.logError("fairness_repo_append_outbox_insert_failed", createResult.Error,
			"outbox_id", row.OutboxID,
			"event_type", row.EventType,
		)
	}
	if createResult.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := tx.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).
		Error; err != nil {
		return r.logError("fairness_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		r.logWarn("fairness_repo_append_outbox_payload_conflict",
			"outbox_id", row.OutboxID,
			"event_type", row.EventType,
		)
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("fairness_repo_list_pending_outbox_failed", err,
			"limit", limit,
		)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			Status:       row.Status,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("fairness_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("fairness_repo_mark_outbox_published_not_found",
			"outbox_id", strings.TrimSpace(outboxID),
		)
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "finance-core/payout-fairness-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("fairness repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+6)
	fields = append(fields,
		"event", event,
		"module", "finance-core/payout-fairness-engine",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("fairness repository warning", fields...)
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	t := value.UTC()
	return &t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.DataAccess = (*Repository)(nil)
var _ ports.ReputationReader = (*Repository)(nil)
var _ ports.AuditLog = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)

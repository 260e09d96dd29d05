package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
	domainerrors "oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/errors"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/ports"
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

// Migrate creates the tables this service owns. Everything else is read from
// upstream systems.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&artifactModel{}, &outboxModel{})
}

// GetChallengeSummary reads the challenge with the annotations its payout
// table needs. The payout rows themselves come from the PayoutReader.
func (r *Repository) GetChallengeSummary(ctx context.Context, challengeID string) (entities.ChallengeSummary, error) {
	challengeID = strings.TrimSpace(challengeID)
	var challenge challengeModel
	if err := r.db.WithContext(ctx).Where("id = ?", challengeID).First(&challenge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ChallengeSummary{}, domainerrors.ErrNotFound
		}
		return entities.ChallengeSummary{}, r.logError("evidence_repo_get_challenge_failed", err,
			"challenge_id", challengeID,
		)
	}
	summary := entities.ChallengeSummary{
		ChallengeID:  challenge.ID,
		Title:        challenge.Title,
		Status:       challenge.Status,
		LeaderID:     challenge.LeaderID,
		BountyAmount: challenge.BountyAmount,
		CreatedAt:    challenge.CreatedAt.UTC(),
	}
	if challenge.CompletedAt != nil {
		completed := challenge.CompletedAt.UTC()
		summary.CompletedAt = &completed
	}

	types, err := r.contributionTypes(ctx, challengeID)
	if err != nil {
		return entities.ChallengeSummary{}, err
	}
	manifest, weights, err := r.manifest(ctx, challengeID)
	if err != nil {
		return entities.ChallengeSummary{}, err
	}
	summary.Manifest = manifest
	summary.ContributionTypes = types
	summary.ManifestWeights = weights
	return summary, nil
}

func (r *Repository) contributionTypes(ctx context.Context, challengeID string) (map[string]string, error) {
	var rows []contributionModel
	if err := r.db.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("evidence_repo_list_contributions_failed", err,
			"challenge_id", challengeID,
		)
	}
	types := make(map[string]string, len(rows))
	for _, row := range rows {
		if _, seen := types[row.ContributorID]; !seen {
			types[row.ContributorID] = row.ContributionType
		}
	}
	return types, nil
}

func (r *Repository) manifest(ctx context.Context, challengeID string) (*entities.ManifestSignature, map[string]float64, error) {
	var row manifestModel
	err := r.db.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, r.logError("evidence_repo_get_manifest_failed", err,
			"challenge_id", challengeID,
		)
	}
	var entries []manifestEntryModel
	if err := r.db.WithContext(ctx).Where("manifest_id = ?", row.ID).Find(&entries).Error; err != nil {
		return nil, nil, r.logError("evidence_repo_list_manifest_entries_failed", err,
			"manifest_id", row.ID,
		)
	}
	weights := make(map[string]float64, len(entries))
	for _, entry := range entries {
		weights[entry.ContributorID] += entry.Weight
	}
	signature := &entities.ManifestSignature{
		ManifestID: row.ID,
		Entries:    len(entries),
	}
	if row.SignedAt != nil {
		signed := row.SignedAt.UTC()
		signature.SignedAt = &signed
	}
	return signature, weights, nil
}

func (r *Repository) ListEvents(ctx context.Context, entityType string, entityID string, limit int) ([]entities.TimelineEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []eventModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, strings.TrimSpace(entityID)).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("evidence_repo_list_events_failed", err,
			"entity_type", entityType,
			"entity_id", strings.TrimSpace(entityID),
		)
	}
	items := make([]entities.TimelineEvent, len(rows))
	for i, row := range rows {
		items[len(rows)-1-i] = entities.TimelineEvent{
			EventID:    row.ID,
			EventType:  row.EventType,
			Actor:      row.Actor,
			Summary:    row.Summary,
			OccurredAt: row.OccurredAt.UTC(),
		}
	}
	return items, nil
}

func (r *Repository) ListFileHashes(ctx context.Context, challengeID string) ([]entities.FileHash, error) {
	var rows []fileModel
	if err := r.db.WithContext(ctx).
		Where("challenge_id = ?", strings.TrimSpace(challengeID)).
		Order("file_name ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("evidence_repo_list_files_failed", err,
			"challenge_id", strings.TrimSpace(challengeID),
		)
	}
	items := make([]entities.FileHash, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.FileHash{
			FileName:  row.FileName,
			SHA256:    row.SHA256,
			SizeBytes: row.SizeBytes,
		})
	}
	return items, nil
}

// CreateArtifact inserts the metadata row and its outbox event in one
// transaction. Artifact rows are never updated.
func (r *Repository) CreateArtifact(ctx context.Context, artifact entities.EvidenceArtifact, event ports.EventEnvelope) error {
	row, err := artifactModelFromEntity(artifact)
	if err != nil {
		return r.logError("evidence_repo_encode_artifact_failed", err,
			"artifact_id", artifact.ArtifactID,
		)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				r.logWarn("evidence_repo_create_artifact_conflict",
					"artifact_id", row.ID,
					"challenge_id", row.ChallengeID,
				)
				return domainerrors.ErrConflict
			}
			return r.logError("evidence_repo_create_artifact_failed", err,
				"artifact_id", row.ID,
				"challenge_id", row.ChallengeID,
			)
		}
		if strings.TrimSpace(event.EventID) == "" {
			return nil
		}
		return r.appendOutbox(ctx, tx, event)
	})
}

func (r *Repository) GetArtifact(ctx context.Context, artifactID string) (entities.EvidenceArtifact, error) {
	return r.findArtifact(ctx, "id = ?", strings.TrimSpace(artifactID))
}

func (r *Repository) GetArtifactByReference(ctx context.Context, reference string) (entities.EvidenceArtifact, error) {
	return r.findArtifact(ctx, "verification_reference = ?", strings.TrimSpace(reference))
}

func (r *Repository) findArtifact(ctx context.Context, where string, value string) (entities.EvidenceArtifact, error) {
	var row artifactModel
	if err := r.db.WithContext(ctx).Where(where, value).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.EvidenceArtifact{}, domainerrors.ErrNotFound
		}
		return entities.EvidenceArtifact{}, r.logError("evidence_repo_get_artifact_failed", err,
			"lookup", where,
		)
	}
	artifact, err := row.toEntity()
	if err != nil {
		return entities.EvidenceArtifact{}, r.logError("evidence_repo_decode_artifact_failed", err,
			"artifact_id", row.ID,
		)
	}
	return artifact, nil
}

func (r *Repository) ListArtifactsByChallenge(ctx context.Context, challengeID string) ([]entities.EvidenceArtifact, error) {
	var rows []artifactModel
	if err := r.db.WithContext(ctx).
		Where("challenge_id = ?", strings.TrimSpace(challengeID)).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("evidence_repo_list_artifacts_failed", err,
			"challenge_id", strings.TrimSpace(challengeID),
		)
	}
	items := make([]entities.EvidenceArtifact, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, r.logError("evidence_repo_decode_artifact_failed", err,
				"artifact_id", row.ID,
			)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) appendOutbox(ctx context.Context, tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("evidence_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
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
	result := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return r.logError("evidence_repo_append_outbox_insert_failed", result.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := tx.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("evidence_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		r.logWarn("evidence_repo_append_outbox_payload_conflict",
			"outbox_id", row.OutboxID,
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
		return nil, r.logError("evidence_repo_list_pending_outbox_failed", err,
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
		return r.logError("evidence_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "finance-core/evidence-integrity-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("evidence repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+6)
	fields = append(fields,
		"event", event,
		"module", "finance-core/evidence-integrity-service",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("evidence repository warning", fields...)
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ChallengeSummaryReader = (*Repository)(nil)
var _ ports.EventReader = (*Repository)(nil)
var _ ports.FileHashReader = (*Repository)(nil)
var _ ports.ArtifactRepository = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)

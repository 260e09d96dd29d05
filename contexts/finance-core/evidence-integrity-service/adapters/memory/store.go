package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
	domainerrors "oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/errors"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/ports"
	"oddlybrilliant/internal/shared/outbox"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	summaries map[string]entities.ChallengeSummary
	events    map[string][]entities.TimelineEvent
	files     map[string][]entities.FileHash
	audits    map[string]entities.FairnessSnapshot
	blobs     map[string]blob
	artifacts map[string]entities.EvidenceArtifact
	outbox    map[string]ports.OutboxMessage
}

type blob struct {
	data        []byte
	contentType string
}

func NewStore() *Store {
	return &Store{
		summaries: make(map[string]entities.ChallengeSummary),
		events:    make(map[string][]entities.TimelineEvent),
		files:     make(map[string][]entities.FileHash),
		audits:    make(map[string]entities.FairnessSnapshot),
		blobs:     make(map[string]blob),
		artifacts: make(map[string]entities.EvidenceArtifact),
		outbox:    make(map[string]ports.OutboxMessage),
	}
}

func (s *Store) PutSummary(summary entities.ChallengeSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[strings.TrimSpace(summary.ChallengeID)] = summary
}

func (s *Store) AddEvent(entityType string, entityID string, event entities.TimelineEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entityType + "/" + strings.TrimSpace(entityID)
	s.events[key] = append(s.events[key], event)
}

func (s *Store) AddFileHash(challengeID string, file entities.FileHash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(challengeID)
	s.files[id] = append(s.files[id], file)
}

func (s *Store) PutAudit(challengeID string, snapshot entities.FairnessSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits[strings.TrimSpace(challengeID)] = snapshot
}

func (s *Store) GetChallengeSummary(_ context.Context, challengeID string) (entities.ChallengeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.summaries[strings.TrimSpace(challengeID)]
	if !ok {
		return entities.ChallengeSummary{}, domainerrors.ErrNotFound
	}
	return item, nil
}

func (s *Store) ListEvents(_ context.Context, entityType string, entityID string, limit int) ([]entities.TimelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := append([]entities.TimelineEvent(nil), s.events[entityType+"/"+strings.TrimSpace(entityID)]...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OccurredAt.Before(items[j].OccurredAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items, nil
}

func (s *Store) ListFileHashes(_ context.Context, challengeID string) ([]entities.FileHash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]entities.FileHash(nil), s.files[strings.TrimSpace(challengeID)]...), nil
}

func (s *Store) LatestAudit(_ context.Context, challengeID string) (entities.FairnessSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.audits[strings.TrimSpace(challengeID)]
	return item, ok, nil
}

func (s *Store) WriteBytes(_ context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(key) == "" {
		return domainerrors.ErrInvalidRequest
	}
	s.blobs[key] = blob{
		data:        append([]byte(nil), data...),
		contentType: contentType,
	}
	return nil
}

func (s *Store) ReadBytes(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.blobs[key]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return append([]byte(nil), item.data...), nil
}

func (s *Store) DeleteBytes(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, key)
	return nil
}

// BlobCount reports how many keys hold bytes.
func (s *Store) BlobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

func (s *Store) CreateArtifact(_ context.Context, artifact entities.EvidenceArtifact, event ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(artifact.ArtifactID)
	if id == "" || strings.TrimSpace(artifact.ChallengeID) == "" {
		return domainerrors.ErrInvalidRequest
	}
	if _, exists := s.artifacts[id]; exists {
		return domainerrors.ErrConflict
	}
	for _, existing := range s.artifacts {
		if existing.VerificationReference == artifact.VerificationReference {
			return domainerrors.ErrConflict
		}
	}
	if strings.TrimSpace(event.EventID) != "" {
		if err := s.appendOutboxLocked(event); err != nil {
			return err
		}
	}
	artifact.IncompleteSections = append([]string{}, artifact.IncompleteSections...)
	s.artifacts[id] = artifact
	return nil
}

func (s *Store) GetArtifact(_ context.Context, artifactID string) (entities.EvidenceArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.artifacts[strings.TrimSpace(artifactID)]
	if !ok {
		return entities.EvidenceArtifact{}, domainerrors.ErrNotFound
	}
	return item, nil
}

func (s *Store) GetArtifactByReference(_ context.Context, reference string) (entities.EvidenceArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.artifacts {
		if item.VerificationReference == strings.TrimSpace(reference) {
			return item, nil
		}
	}
	return entities.EvidenceArtifact{}, domainerrors.ErrNotFound
}

func (s *Store) ListArtifactsByChallenge(_ context.Context, challengeID string) ([]entities.EvidenceArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.EvidenceArtifact, 0)
	for _, item := range s.artifacts {
		if item.ChallengeID == strings.TrimSpace(challengeID) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ArtifactID > items[j].ArtifactID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) appendOutboxLocked(envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	s.outbox[outboxID] = ports.OutboxMessage{
		OutboxID:     outboxID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.Pending() {
			items = append(items, row)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrNotFound
	}
	ts := publishedAt.UTC()
	row.Status = outbox.StatusPublished
	row.PublishedAt = &ts
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.ChallengeSummaryReader = (*Store)(nil)
var _ ports.EventReader = (*Store)(nil)
var _ ports.FileHashReader = (*Store)(nil)
var _ ports.AuditSnapshotReader = (*Store)(nil)
var _ ports.BlobStore = (*Store)(nil)
var _ ports.ArtifactRepository = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)

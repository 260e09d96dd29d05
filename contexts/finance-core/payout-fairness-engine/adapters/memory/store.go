package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/entities"
	domainerrors "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/errors"
	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/ports"
	"oddlybrilliant/internal/shared/outbox"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	challenges    map[string]entities.Challenge
	contributions map[string][]entities.ContributionRecord
	manifests     map[string]entities.CompositionManifest
	distributions map[string][]entities.PayoutDistribution
	payments      map[string][]entities.Payment
	reputation    map[string]entities.ReputationRecord
	audits        map[string]entities.FairnessAuditRecord
	eventDedup    map[string]dedupRecord
	outbox        map[string]ports.OutboxMessage
}

type dedupRecord struct {
	PayloadHash string
	ExpiresAt   time.Time
}

func NewStore() *Store {
	return &Store{
		challenges:    make(map[string]entities.Challenge),
		contributions: make(map[string][]entities.ContributionRecord),
		manifests:     make(map[string]entities.CompositionManifest),
		distributions: make(map[string][]entities.PayoutDistribution),
		payments:      make(map[string][]entities.Payment),
		reputation:    make(map[string]entities.ReputationRecord),
		audits:        make(map[string]entities.FairnessAuditRecord),
		eventDedup:    make(map[string]dedupRecord),
		outbox:        make(map[string]ports.OutboxMessage),
	}
}

func (s *Store) PutChallenge(challenge entities.Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[strings.TrimSpace(challenge.ChallengeID)] = challenge
}

func (s *Store) AddContribution(record entities.ContributionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(record.ChallengeID)
	s.contributions[id] = append(s.contributions[id], record)
}

func (s *Store) PutManifest(manifest entities.CompositionManifest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests[strings.TrimSpace(manifest.ChallengeID)] = manifest
}

func (s *Store) AddDistribution(distribution entities.PayoutDistribution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(distribution.ChallengeID)
	s.distributions[id] = append(s.distributions[id], distribution)
}

func (s *Store) AddPayment(payment entities.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(payment.ChallengeID)
	s.payments[id] = append(s.payments[id], payment)
}

func (s *Store) PutReputation(record entities.ReputationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reputation[strings.TrimSpace(record.ContributorID)] = record
}

func (s *Store) GetChallenge(_ context.Context, challengeID string) (entities.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.challenges[strings.TrimSpace(challengeID)]
	if !ok {
		return entities.Challenge{}, domainerrors.ErrNotFound
	}
	return item, nil
}

func (s *Store) ListContributions(_ context.Context, challengeID string) ([]entities.ContributionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := append([]entities.ContributionRecord(nil), s.contributions[strings.TrimSpace(challengeID)]...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) GetManifest(_ context.Context, challengeID string) (entities.CompositionManifest, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.manifests[strings.TrimSpace(challengeID)]
	return item, ok, nil
}

func (s *Store) GetLatestPayoutDistribution(_ context.Context, challengeID string) (entities.PayoutDistribution, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.distributions[strings.TrimSpace(challengeID)]
	if len(items) == 0 {
		return entities.PayoutDistribution{}, false, nil
	}
	latest := items[0]
	for _, item := range items[1:] {
		if item.CreatedAt.After(latest.CreatedAt) {
			latest = item
		}
	}
	return latest, true, nil
}

func (s *Store) ListPayments(_ context.Context, challengeID string) ([]entities.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]entities.Payment(nil), s.payments[strings.TrimSpace(challengeID)]...), nil
}

func (s *Store) GetReputation(_ context.Context, contributorIDs []string) (map[string]entities.ReputationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]entities.ReputationRecord)
	for _, id := range contributorIDs {
		if record, ok := s.reputation[strings.TrimSpace(id)]; ok {
			out[record.ContributorID] = record
		}
	}
	return out, nil
}

func (s *Store) RecordAuditResult(_ context.Context, record entities.FairnessAuditRecord, event ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(record.AuditID)
	if id == "" || strings.TrimSpace(record.ChallengeID) == "" {
		return domainerrors.ErrInvalidRequest
	}
	if _, exists := s.audits[id]; exists {
		return domainerrors.ErrConflict
	}
	if strings.TrimSpace(event.EventID) != "" {
		if err := s.appendOutboxLocked(event); err != nil {
			return err
		}
	}
	s.audits[id] = record
	return nil
}

func (s *Store) ListAuditsByChallenge(_ context.Context, challengeID string) ([]entities.FairnessAuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.FairnessAuditRecord, 0)
	for _, item := range s.audits {
		if item.ChallengeID == strings.TrimSpace(challengeID) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].AuditID > items[j].AuditID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	if key == "" {
		return false, domainerrors.ErrInvalidRequest
	}
	if existing, ok := s.eventDedup[key]; ok && existing.ExpiresAt.After(time.Now().UTC()) {
		if existing.PayloadHash != payloadHash {
			return false, domainerrors.ErrConflict
		}
		return true, nil
	}
	s.eventDedup[key] = dedupRecord{
		PayloadHash: payloadHash,
		ExpiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) ReleaseEvent(_ context.Context, eventID string, payloadHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	if existing, ok := s.eventDedup[key]; ok && existing.PayloadHash == payloadHash {
		delete(s.eventDedup, key)
	}
	return nil
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

var _ ports.DataAccess = (*Store)(nil)
var _ ports.ReputationReader = (*Store)(nil)
var _ ports.AuditLog = (*Store)(nil)
var _ ports.EventDedupStore = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)

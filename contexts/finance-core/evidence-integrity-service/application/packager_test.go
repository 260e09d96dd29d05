package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/adapters/memory"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/adapters/render"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/application"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
	domainerrors "oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/errors"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type failingEvents struct{}

func (failingEvents) ListEvents(context.Context, string, string, int) ([]entities.TimelineEvent, error) {
	return nil, errors.New("event store timeout")
}

type failingSummaries struct{}

func (failingSummaries) GetChallengeSummary(context.Context, string) (entities.ChallengeSummary, error) {
	return entities.ChallengeSummary{}, errors.New("challenge store unavailable")
}

type failingCommit struct {
	*memory.Store
}

func (failingCommit) CreateArtifact(context.Context, entities.EvidenceArtifact, ports.EventEnvelope) error {
	return errors.New("metadata insert failed")
}

// corruptingBlobs flips the last byte on write so the read-back check fails.
type corruptingBlobs struct {
	*memory.Store
}

func (c corruptingBlobs) WriteBytes(ctx context.Context, key string, data []byte, contentType string) error {
	corrupted := append([]byte(nil), data...)
	corrupted[len(corrupted)-1] ^= 0xFF
	return c.Store.WriteBytes(ctx, key, corrupted, contentType)
}

// cancellingBlobs cancels the caller once the bytes have been confirmed.
type cancellingBlobs struct {
	*memory.Store
	cancel context.CancelFunc
}

func (c cancellingBlobs) ReadBytes(ctx context.Context, key string) ([]byte, error) {
	data, err := c.Store.ReadBytes(ctx, key)
	c.cancel()
	return data, err
}

type recordingMetrics struct {
	packages      []string
	verifications []bool
}

func (m *recordingMetrics) ObservePackage(_ string, status string, _ int64) {
	m.packages = append(m.packages, status)
}

func (m *recordingMetrics) ObserveVerification(valid bool) {
	m.verifications = append(m.verifications, valid)
}

var packageNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

func seededStore() *memory.Store {
	store := memory.NewStore()
	signed := packageNow.Add(-72 * time.Hour)
	store.PutSummary(entities.ChallengeSummary{
		ChallengeID:        "challenge-1",
		Title:              "Fix the parser",
		Status:             "completed",
		LeaderID:           "alice",
		BountyAmount:       1000,
		CreatedAt:          packageNow.Add(-30 * 24 * time.Hour),
		DistributionSource: "PROPOSED_DISTRIBUTION",
		Payouts: []entities.PayoutRow{
			{ContributorID: "alice", ContributionType: "CODE", Weight: 0.4, Amount: 400},
			{ContributorID: "bob", ContributionType: "DESIGN", Weight: 0.6, Amount: 600},
		},
		Manifest: &entities.ManifestSignature{ManifestID: "manifest-1", SignedAt: &signed, Entries: 2},
	})
	for i := 0; i < 60; i++ {
		store.AddEvent("challenge", "challenge-1", entities.TimelineEvent{
			EventID:    "event-" + strconv.Itoa(i),
			EventType:  "challenge.updated",
			OccurredAt: packageNow.Add(-time.Duration(60-i) * time.Hour),
		})
	}
	store.AddFileHash("challenge-1", entities.FileHash{FileName: "b.go", SHA256: "bb", SizeBytes: 2})
	store.AddFileHash("challenge-1", entities.FileHash{FileName: "a.go", SHA256: "aa", SizeBytes: 1})
	store.PutAudit("challenge-1", entities.FairnessSnapshot{
		AuditID:         "audit-1",
		GiniCoefficient: 0.1,
		GiniCategory:    "excellent",
		FairnessScore:   0.95,
		CreatedAt:       packageNow.Add(-time.Hour),
	})
	return store
}

func newPackager(store *memory.Store) application.Packager {
	return application.Packager{
		Summaries:     store,
		Events:        store,
		Files:         store,
		Audits:        store,
		Blobs:         store,
		Artifacts:     store,
		Renderer:      render.JSONRenderer{},
		Clock:         fixedClock{now: packageNow},
		IDGen:         store,
		VerifyBaseURL: "https://audit.example.test/",
		Upstream:      application.UpstreamPolicy{RetryAttempts: 1},
	}
}

func newVerifier(store *memory.Store) application.Verifier {
	return application.Verifier{
		Artifacts: store,
		Blobs:     store,
		Upstream:  application.UpstreamPolicy{RetryAttempts: 1},
	}
}

var allSections = entities.InclusionFlags{Timeline: true, FileHashes: true, Signatures: true, AIAnalysis: true}

func TestGeneratePackageCommitsVerifiableArtifact(t *testing.T) {
	store := seededStore()
	metrics := &recordingMetrics{}
	packager := newPackager(store)
	packager.Metrics = metrics

	artifact, err := packager.GeneratePackage(context.Background(), application.GeneratePackageCommand{
		ChallengeID: "challenge-1",
		Kind:        entities.KindPayoutAudit,
		Flags:       allSections,
	})
	if err != nil {
		t.Fatalf("generate package failed: %v", err)
	}
	if artifact.Incomplete() {
		t.Fatalf("expected complete package, got %v", artifact.IncompleteSections)
	}
	if artifact.FairnessAuditID != "audit-1" {
		t.Fatalf("expected fairness audit linked, got %q", artifact.FairnessAuditID)
	}
	if artifact.StorageKey != "evidence/challenge-1/"+artifact.ArtifactID+".json" {
		t.Fatalf("unexpected storage key %q", artifact.StorageKey)
	}

	data, err := store.ReadBytes(context.Background(), artifact.StorageKey)
	if err != nil {
		t.Fatalf("read stored bytes failed: %v", err)
	}
	if int64(len(data)) != artifact.SizeBytes {
		t.Fatalf("size mismatch: stored %d recorded %d", len(data), artifact.SizeBytes)
	}
	var doc entities.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode stored document failed: %v", err)
	}
	if len(doc.Timeline) != 50 {
		t.Fatalf("expected timeline capped at 50 events, got %d", len(doc.Timeline))
	}
	if !doc.Timeline[0].OccurredAt.Before(doc.Timeline[49].OccurredAt) {
		t.Fatalf("expected chronological timeline")
	}
	if doc.Files[0].FileName != "a.go" {
		t.Fatalf("expected files sorted by name, got %+v", doc.Files)
	}
	wantURL := "https://audit.example.test/api/v1/evidence/verify/" + artifact.VerificationReference
	if doc.Verification.URL != wantURL {
		t.Fatalf("expected verify url %q, got %q", wantURL, doc.Verification.URL)
	}

	result, err := newVerifier(store).VerifyPackage(context.Background(), artifact.VerificationReference)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !result.Valid || result.RecomputedSHA256 != artifact.SHA256 || !result.RecordedAt.Equal(packageNow) {
		t.Fatalf("expected valid verification, got %+v", result)
	}

	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 1 || pending[0].EventType != application.EventPackageGenerated {
		t.Fatalf("expected one %s outbox row, got %+v", application.EventPackageGenerated, pending)
	}
	if len(metrics.packages) != 1 || metrics.packages[0] != "generated" {
		t.Fatalf("expected generated metric, got %v", metrics.packages)
	}
}

func TestGeneratePackageSupersedesPreviousOfSameKind(t *testing.T) {
	store := seededStore()
	packager := newPackager(store)
	cmd := application.GeneratePackageCommand{ChallengeID: "challenge-1", Kind: entities.KindComplianceReport}

	first, err := packager.GeneratePackage(context.Background(), cmd)
	if err != nil {
		t.Fatalf("first package failed: %v", err)
	}
	packager.Clock = fixedClock{now: packageNow.Add(time.Minute)}
	second, err := packager.GeneratePackage(context.Background(), cmd)
	if err != nil {
		t.Fatalf("second package failed: %v", err)
	}
	if first.SupersedesID != "" {
		t.Fatalf("first package must not supersede anything")
	}
	if second.SupersedesID != first.ArtifactID {
		t.Fatalf("expected second to supersede %s, got %q", first.ArtifactID, second.SupersedesID)
	}

	items, err := newVerifier(store).ListPackages(context.Background(), "challenge-1")
	if err != nil {
		t.Fatalf("list packages failed: %v", err)
	}
	if len(items) != 2 || items[0].ArtifactID != second.ArtifactID {
		t.Fatalf("expected newest first, got %+v", items)
	}
	firstResult, _ := newVerifier(store).VerifyPackage(context.Background(), first.VerificationReference)
	if !firstResult.Valid {
		t.Fatalf("superseded package must still verify")
	}
}

func TestGeneratePackageMarksFailedSectionsIncomplete(t *testing.T) {
	store := seededStore()
	store.PutSummary(entities.ChallengeSummary{ChallengeID: "challenge-2", BountyAmount: 10})
	packager := newPackager(store)
	packager.Events = failingEvents{}

	artifact, err := packager.GeneratePackage(context.Background(), application.GeneratePackageCommand{
		ChallengeID: "challenge-2",
		Kind:        entities.KindIncidentEvidence,
		Flags:       allSections,
	})
	if err != nil {
		t.Fatalf("optional failures must not abort, got %v", err)
	}
	want := []string{entities.SectionAIAnalysis, entities.SectionSignatures, entities.SectionTimeline}
	if len(artifact.IncompleteSections) != len(want) {
		t.Fatalf("expected incomplete %v, got %v", want, artifact.IncompleteSections)
	}
	for i := range want {
		if artifact.IncompleteSections[i] != want[i] {
			t.Fatalf("expected incomplete %v, got %v", want, artifact.IncompleteSections)
		}
	}
}

func TestGeneratePackageRequiresChallengeSummary(t *testing.T) {
	store := seededStore()
	packager := newPackager(store)

	_, err := packager.GeneratePackage(context.Background(), application.GeneratePackageCommand{
		ChallengeID: "missing",
		Kind:        entities.KindPayoutAudit,
	})
	if !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	packager.Summaries = failingSummaries{}
	_, err = packager.GeneratePackage(context.Background(), application.GeneratePackageCommand{
		ChallengeID: "challenge-1",
		Kind:        entities.KindPayoutAudit,
	})
	if !errors.Is(err, domainerrors.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
	if store.BlobCount() != 0 {
		t.Fatalf("expected no bytes written, got %d", store.BlobCount())
	}

	_, err = packager.GeneratePackage(context.Background(), application.GeneratePackageCommand{
		ChallengeID: "challenge-1",
		Kind:        "RECEIPT",
	})
	if !errors.Is(err, domainerrors.ErrInvalidRequest) {
		t.Fatalf("expected invalid request for unknown kind, got %v", err)
	}
}

func TestGeneratePackageDeletesBytesWhenCommitFails(t *testing.T) {
	store := seededStore()
	packager := newPackager(store)
	packager.Artifacts = failingCommit{Store: store}

	_, err := packager.GeneratePackage(context.Background(), application.GeneratePackageCommand{
		ChallengeID: "challenge-1",
		Kind:        entities.KindPayoutAudit,
	})
	if !errors.Is(err, domainerrors.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if store.BlobCount() != 0 {
		t.Fatalf("expected bytes removed after failed commit, got %d", store.BlobCount())
	}
}

func TestGeneratePackageRejectsUnconfirmedWrite(t *testing.T) {
	store := seededStore()
	packager := newPackager(store)
	packager.Blobs = corruptingBlobs{Store: store}

	_, err := packager.GeneratePackage(context.Background(), application.GeneratePackageCommand{
		ChallengeID: "challenge-1",
		Kind:        entities.KindPayoutAudit,
	})
	if !errors.Is(err, domainerrors.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if store.BlobCount() != 0 {
		t.Fatalf("expected corrupted bytes removed, got %d", store.BlobCount())
	}
	items, _ := store.ListArtifactsByChallenge(context.Background(), "challenge-1")
	if len(items) != 0 {
		t.Fatalf("expected no metadata committed, got %d", len(items))
	}
}

func TestGeneratePackageCancelledBeforeCommit(t *testing.T) {
	store := seededStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	packager := newPackager(store)
	packager.Blobs = cancellingBlobs{Store: store, cancel: cancel}

	_, err := packager.GeneratePackage(ctx, application.GeneratePackageCommand{
		ChallengeID: "challenge-1",
		Kind:        entities.KindEthicsCertification,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if store.BlobCount() != 0 {
		t.Fatalf("expected uncommitted bytes discarded, got %d", store.BlobCount())
	}
	items, _ := store.ListArtifactsByChallenge(context.Background(), "challenge-1")
	if len(items) != 0 {
		t.Fatalf("expected no metadata committed, got %d", len(items))
	}
}

package application_test

import (
	"context"
	"errors"
	"testing"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/application"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
	domainerrors "oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/errors"
)

func generateFor(t *testing.T, packager application.Packager) entities.EvidenceArtifact {
	t.Helper()
	artifact, err := packager.GeneratePackage(context.Background(), application.GeneratePackageCommand{
		ChallengeID: "challenge-1",
		Kind:        entities.KindPayoutAudit,
		Flags:       entities.InclusionFlags{FileHashes: true},
	})
	if err != nil {
		t.Fatalf("generate package failed: %v", err)
	}
	return artifact
}

func TestVerifyPackageDetectsSingleByteTamper(t *testing.T) {
	store := seededStore()
	artifact := generateFor(t, newPackager(store))

	data, err := store.ReadBytes(context.Background(), artifact.StorageKey)
	if err != nil {
		t.Fatalf("read stored bytes failed: %v", err)
	}
	data[len(data)/2] ^= 0x01
	if err := store.WriteBytes(context.Background(), artifact.StorageKey, data, artifact.ContentType); err != nil {
		t.Fatalf("overwrite stored bytes failed: %v", err)
	}

	metrics := &recordingMetrics{}
	verifier := newVerifier(store)
	verifier.Metrics = metrics

	result, err := verifier.VerifyPackage(context.Background(), artifact.VerificationReference)
	if err != nil {
		t.Fatalf("verify must not error on tamper, got %v", err)
	}
	if result.Valid {
		t.Fatalf("expected tampered package to be invalid")
	}
	if result.RecordedSHA256 != artifact.SHA256 || result.RecomputedSHA256 == artifact.SHA256 {
		t.Fatalf("expected differing hashes, got %+v", result)
	}
	if len(metrics.verifications) != 1 || metrics.verifications[0] {
		t.Fatalf("expected one invalid verification metric, got %v", metrics.verifications)
	}

	_, _, err = verifier.DownloadPackage(context.Background(), artifact.ArtifactID)
	if !errors.Is(err, domainerrors.ErrIntegrityViolation) {
		t.Fatalf("expected integrity violation on download, got %v", err)
	}
}

func TestVerifyPackageFailsClosedOnMissingBytes(t *testing.T) {
	store := seededStore()
	artifact := generateFor(t, newPackager(store))
	if err := store.DeleteBytes(context.Background(), artifact.StorageKey); err != nil {
		t.Fatalf("delete bytes failed: %v", err)
	}

	result, err := newVerifier(store).VerifyPackage(context.Background(), artifact.VerificationReference)
	if err != nil {
		t.Fatalf("verify must not error on missing bytes, got %v", err)
	}
	if result.Valid || result.Reason == "" {
		t.Fatalf("expected invalid result with a reason, got %+v", result)
	}
	if result.ArtifactID != artifact.ArtifactID {
		t.Fatalf("expected artifact id reported, got %q", result.ArtifactID)
	}
}

func TestVerifyPackageReferenceHandling(t *testing.T) {
	store := seededStore()
	verifier := newVerifier(store)

	if _, err := verifier.VerifyPackage(context.Background(), "   "); !errors.Is(err, domainerrors.ErrInvalidRequest) {
		t.Fatalf("expected invalid request for blank reference, got %v", err)
	}

	result, err := verifier.VerifyPackage(context.Background(), "0000deadbeef")
	if err != nil {
		t.Fatalf("unknown reference must not error, got %v", err)
	}
	if result.Valid || result.ArtifactID != "" {
		t.Fatalf("expected invalid result without artifact, got %+v", result)
	}
}

func TestDownloadPackageReturnsIntactBytes(t *testing.T) {
	store := seededStore()
	artifact := generateFor(t, newPackager(store))

	got, data, err := newVerifier(store).DownloadPackage(context.Background(), artifact.ArtifactID)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if got.ArtifactID != artifact.ArtifactID || int64(len(data)) != artifact.SizeBytes {
		t.Fatalf("unexpected download %+v (%d bytes)", got, len(data))
	}

	if _, _, err := newVerifier(store).DownloadPackage(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

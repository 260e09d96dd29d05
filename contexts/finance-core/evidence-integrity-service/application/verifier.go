package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
	domainerrors "oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/errors"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/ports"
)

const (
	reasonUnknownReference = "unknown verification reference"
	reasonLookupFailed     = "artifact lookup failed"
	reasonBytesMissing     = "stored bytes missing"
	reasonReadFailed       = "stored bytes unreadable"
	reasonHashMismatch     = "stored bytes do not match recorded hash"
	reasonInternal         = "verification aborted"
)

type Verifier struct {
	Artifacts ports.ArtifactRepository
	Blobs     ports.BlobStore
	Metrics   ports.Metrics
	Upstream  UpstreamPolicy
	Logger    *slog.Logger
}

// VerifyPackage recomputes the hash of the stored bytes behind reference. It
// fails closed: every lookup or read failure is reported as invalid. The only
// error returned is ErrInvalidRequest for a blank reference.
func (v Verifier) VerifyPackage(ctx context.Context, reference string) (result entities.VerificationResult, err error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return entities.VerificationResult{}, domainerrors.ErrInvalidRequest
	}
	logger := ResolveLogger(v.Logger)
	defer func() {
		if r := recover(); r != nil {
			result = entities.VerificationResult{Valid: false, Reason: reasonInternal}
			err = nil
			logger.Error("evidence verification panicked",
				"event", "evidence_verification_panic",
				"module", "finance-core/evidence-integrity-service",
				"layer", "application",
				"reference", reference,
				"panic", fmt.Sprint(r),
			)
		}
		if v.Metrics != nil {
			v.Metrics.ObserveVerification(result.Valid)
		}
	}()

	artifact, err := call(ctx, v.Upstream, func(ctx context.Context) (entities.EvidenceArtifact, error) {
		return v.Artifacts.GetArtifactByReference(ctx, reference)
	})
	if err != nil {
		reason := reasonLookupFailed
		if errors.Is(err, domainerrors.ErrNotFound) {
			reason = reasonUnknownReference
		}
		logger.Warn("evidence verification lookup failed",
			"event", "evidence_verification_lookup_failed",
			"module", "finance-core/evidence-integrity-service",
			"layer", "application",
			"reference", reference,
			"error", err.Error(),
		)
		return entities.VerificationResult{Valid: false, Reason: reason}, nil
	}

	result, _ = v.check(ctx, artifact)
	level := slog.LevelInfo
	if !result.Valid {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "evidence package verified",
		"event", "evidence_package_verified",
		"module", "finance-core/evidence-integrity-service",
		"layer", "application",
		"artifact_id", artifact.ArtifactID,
		"valid", result.Valid,
		"reason", result.Reason,
	)
	return result, nil
}

// ListPackages returns the challenge's artifacts, newest first.
func (v Verifier) ListPackages(ctx context.Context, challengeID string) ([]entities.EvidenceArtifact, error) {
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return nil, domainerrors.ErrInvalidRequest
	}
	items, err := v.Artifacts.ListArtifactsByChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// DownloadPackage returns the stored bytes only while they still hash to the
// recorded value.
func (v Verifier) DownloadPackage(ctx context.Context, artifactID string) (entities.EvidenceArtifact, []byte, error) {
	artifactID = strings.TrimSpace(artifactID)
	if artifactID == "" {
		return entities.EvidenceArtifact{}, nil, domainerrors.ErrInvalidRequest
	}
	artifact, err := v.Artifacts.GetArtifact(ctx, artifactID)
	if err != nil {
		return entities.EvidenceArtifact{}, nil, err
	}
	result, data := v.check(ctx, artifact)
	if !result.Valid {
		ResolveLogger(v.Logger).Warn("evidence download refused",
			"event", "evidence_download_refused",
			"module", "finance-core/evidence-integrity-service",
			"layer", "application",
			"artifact_id", artifact.ArtifactID,
			"reason", result.Reason,
		)
		return entities.EvidenceArtifact{}, nil, fmt.Errorf("%w: %s", domainerrors.ErrIntegrityViolation, result.Reason)
	}
	return artifact, data, nil
}

func (v Verifier) check(ctx context.Context, artifact entities.EvidenceArtifact) (entities.VerificationResult, []byte) {
	result := entities.VerificationResult{
		ArtifactID:     artifact.ArtifactID,
		RecordedSHA256: artifact.SHA256,
		RecordedAt:     artifact.CreatedAt,
	}
	data, err := call(ctx, v.Upstream, func(ctx context.Context) ([]byte, error) {
		return v.Blobs.ReadBytes(ctx, artifact.StorageKey)
	})
	if err != nil {
		result.Reason = reasonReadFailed
		if errors.Is(err, domainerrors.ErrNotFound) {
			result.Reason = reasonBytesMissing
		}
		return result, nil
	}
	result.RecomputedSHA256 = hashBytes(data)
	if artifact.SHA256 == "" || result.RecomputedSHA256 != artifact.SHA256 {
		result.Reason = reasonHashMismatch
		return result, nil
	}
	result.Valid = true
	return result, data
}

package httpadapter

import (
	"context"
	"fmt"
	"log/slog"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/application"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
	domainerrors "oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/errors"
	httptransport "oddlybrilliant/contexts/finance-core/evidence-integrity-service/transport/http"
)

type Handler struct {
	Packages application.Packager
	Verifier application.Verifier
	Logger   *slog.Logger
}

func (h Handler) GeneratePackageHandler(
	ctx context.Context,
	challengeID string,
	req httptransport.GeneratePackageRequest,
) (httptransport.PackageResponse, error) {
	if err := req.Validate(); err != nil {
		return httptransport.PackageResponse{}, fmt.Errorf("%w: %s", domainerrors.ErrInvalidRequest, err.Error())
	}
	artifact, err := h.Packages.GeneratePackage(ctx, application.GeneratePackageCommand{
		ChallengeID: challengeID,
		Kind:        entities.PackageKind(req.Kind),
		Flags: entities.InclusionFlags{
			Timeline:   req.Flags.Timeline,
			FileHashes: req.Flags.FileHashes,
			Signatures: req.Flags.Signatures,
			AIAnalysis: req.Flags.AIAnalysis,
		},
	})
	if err != nil {
		return httptransport.PackageResponse{}, err
	}
	return mapArtifact(artifact), nil
}

func (h Handler) ListPackagesHandler(ctx context.Context, challengeID string) (httptransport.PackageListResponse, error) {
	items, err := h.Verifier.ListPackages(ctx, challengeID)
	if err != nil {
		return httptransport.PackageListResponse{}, err
	}
	resp := httptransport.PackageListResponse{
		ChallengeID: challengeID,
		Items:       make([]httptransport.PackageResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, mapArtifact(item))
	}
	return resp, nil
}

func (h Handler) VerifyPackageHandler(ctx context.Context, reference string) (httptransport.VerificationResponse, error) {
	result, err := h.Verifier.VerifyPackage(ctx, reference)
	if err != nil {
		return httptransport.VerificationResponse{}, err
	}
	resp := httptransport.VerificationResponse{
		Valid:            result.Valid,
		ArtifactID:       result.ArtifactID,
		SHA256:           result.RecordedSHA256,
		RecomputedSHA256: result.RecomputedSHA256,
		Reason:           result.Reason,
	}
	if !result.RecordedAt.IsZero() {
		recorded := result.RecordedAt.UTC()
		resp.RecordedAt = &recorded
	}
	return resp, nil
}

func (h Handler) DownloadPackageHandler(ctx context.Context, artifactID string) (httptransport.PackageContent, error) {
	artifact, data, err := h.Verifier.DownloadPackage(ctx, artifactID)
	if err != nil {
		return httptransport.PackageContent{}, err
	}
	return httptransport.PackageContent{
		FileName:    artifact.FileName,
		ContentType: artifact.ContentType,
		SHA256:      artifact.SHA256,
		Data:        data,
	}, nil
}

func mapArtifact(a entities.EvidenceArtifact) httptransport.PackageResponse {
	incomplete := a.IncompleteSections
	if incomplete == nil {
		incomplete = []string{}
	}
	return httptransport.PackageResponse{
		ArtifactID:            a.ArtifactID,
		ChallengeID:           a.ChallengeID,
		Kind:                  string(a.Kind),
		FileName:              a.FileName,
		ContentType:           a.ContentType,
		SizeBytes:             a.SizeBytes,
		SHA256:                a.SHA256,
		VerificationReference: a.VerificationReference,
		Include: httptransport.InclusionFlagsDTO{
			Timeline:   a.Flags.Timeline,
			FileHashes: a.Flags.FileHashes,
			Signatures: a.Flags.Signatures,
			AIAnalysis: a.Flags.AIAnalysis,
		},
		SupersedesID:       a.SupersedesID,
		FairnessAuditID:    a.FairnessAuditID,
		IncompleteSections: incomplete,
		CreatedAt:          a.CreatedAt,
	}
}

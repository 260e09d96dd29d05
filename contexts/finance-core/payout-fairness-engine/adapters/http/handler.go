package httpadapter

import (
	"context"
	"fmt"
	"log/slog"

	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/application"
	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/entities"
	domainerrors "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/errors"
	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/fairness"
	httptransport "oddlybrilliant/contexts/finance-core/payout-fairness-engine/transport/http"
)

type Handler struct {
	Audits application.Service
	Logger *slog.Logger
}

func (h Handler) RunFairnessAuditHandler(ctx context.Context, challengeID string) (httptransport.FairnessAuditResponse, error) {
	record, err := h.Audits.RunFairnessAudit(ctx, challengeID)
	if err != nil {
		return httptransport.FairnessAuditResponse{}, err
	}
	return mapAudit(record), nil
}

func (h Handler) AuditHistoryHandler(ctx context.Context, challengeID string) (httptransport.AuditHistoryResponse, error) {
	items, err := h.Audits.GetAuditHistory(ctx, challengeID)
	if err != nil {
		return httptransport.AuditHistoryResponse{}, err
	}
	resp := httptransport.AuditHistoryResponse{
		ChallengeID: challengeID,
		Items:       make([]httptransport.FairnessAuditResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, mapAudit(item))
	}
	return resp, nil
}

func (h Handler) CalculateSplitHandler(ctx context.Context, req httptransport.CalculateSplitRequest) (httptransport.CalculateSplitResponse, error) {
	if err := req.Validate(); err != nil {
		return httptransport.CalculateSplitResponse{}, fmt.Errorf("%w: %s", domainerrors.ErrValidation, err.Error())
	}
	weights := make([]fairness.WeightedContributor, 0, len(req.Contributors))
	for _, c := range req.Contributors {
		weights = append(weights, fairness.WeightedContributor{
			ContributorID: c.ContributorID,
			Weight:        c.Weight,
		})
	}
	shares, err := h.Audits.CalculateSplit(ctx, req.Bounty, weights)
	if err != nil {
		return httptransport.CalculateSplitResponse{}, err
	}
	resp := httptransport.CalculateSplitResponse{
		Bounty: req.Bounty,
		Shares: make([]httptransport.SplitShareResponse, 0, len(shares)),
	}
	for _, share := range shares {
		resp.Shares = append(resp.Shares, httptransport.SplitShareResponse{
			ContributorID: share.ContributorID,
			Weight:        share.Weight,
			Percentage:    share.Percentage,
			Amount:        share.Amount,
		})
	}
	return resp, nil
}

func mapAudit(record entities.FairnessAuditRecord) httptransport.FairnessAuditResponse {
	resp := httptransport.FairnessAuditResponse{
		AuditID:            record.AuditID,
		ChallengeID:        record.ChallengeID,
		GiniCoefficient:    record.GiniCoefficient,
		GiniCategory:       record.GiniCategory,
		FairnessScore:      record.FairnessScore,
		RedFlags:           mapFlags(record.RedFlags),
		GreenFlags:         mapFlags(record.GreenFlags),
		Recommendations:    make([]httptransport.RecommendationDTO, 0, len(record.Recommendations)),
		EvidenceLinks:      append([]string{}, record.EvidenceLinks...),
		DistributionSource: string(record.DistributionSource),
		IncompleteSections: append([]string{}, record.IncompleteSections...),
		Warnings:           record.Warnings,
		InputHash:          record.InputHash,
		CreatedAt:          record.CreatedAt,
	}
	for _, rec := range record.Recommendations {
		resp.Recommendations = append(resp.Recommendations, httptransport.RecommendationDTO{
			Severity: string(rec.Severity),
			FlagID:   string(rec.FlagID),
			Title:    rec.Title,
			Message:  rec.Message,
		})
	}
	return resp
}

func mapFlags(flags []entities.Flag) []httptransport.FlagDTO {
	items := make([]httptransport.FlagDTO, 0, len(flags))
	for _, f := range flags {
		items = append(items, httptransport.FlagDTO{
			ID:     string(f.ID),
			Kind:   string(f.Kind),
			Detail: f.Detail,
		})
	}
	return items
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/entities"
	domainerrors "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/errors"
	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/fairness"
	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/ports"
	"oddlybrilliant/internal/shared/auditcache"
	"oddlybrilliant/internal/shared/resilience"
)

const (
	SectionReputation = "reputation"

	outcomeCompleted  = "completed"
	outcomeIncomplete = "incomplete"
	outcomeFailed     = "failed"
)

type Service struct {
	Data                               ports.DataAccess
	Reputation                         ports.ReputationReader
	Audits                             ports.AuditLog
	Cache                              ports.AnalysisCache
	Metrics                            ports.Metrics
	Clock                              ports.Clock
	IDGen                              ports.IDGenerator
	Thresholds                         fairness.Thresholds
	CacheTTL                           time.Duration
	UpstreamTimeout                    time.Duration
	RetryAttempts                      int
	RetryBackoff                       time.Duration
	DisableAuditCompletedEventEmission bool
	Logger                             *slog.Logger
}

// RunFairnessAudit gathers the challenge data, evaluates it and appends a new
// immutable audit record. Optional sources that fail are recorded in
// IncompleteSections instead of failing the audit.
func (s Service) RunFairnessAudit(ctx context.Context, challengeID string) (entities.FairnessAuditRecord, error) {
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return entities.FairnessAuditRecord{}, domainerrors.ErrInvalidRequest
	}
	logger := ResolveLogger(s.Logger)
	started := time.Now()

	record, err := s.runAudit(ctx, challengeID, logger)
	if err != nil {
		s.observe(outcomeFailed, time.Since(started), 0, 0)
		logger.Error("fairness audit failed",
			"event", "fairness_audit_failed",
			"module", "finance-core/payout-fairness-engine",
			"layer", "application",
			"challenge_id", challengeID,
			"error", err.Error(),
		)
		return entities.FairnessAuditRecord{}, err
	}

	outcome := outcomeCompleted
	if record.Incomplete() {
		outcome = outcomeIncomplete
	}
	s.observe(outcome, time.Since(started), record.GiniCoefficient, len(record.RedFlags))
	logger.Info("fairness audit recorded",
		"event", "fairness_audit_recorded",
		"module", "finance-core/payout-fairness-engine",
		"layer", "application",
		"challenge_id", challengeID,
		"audit_id", record.AuditID,
		"distribution_source", string(record.DistributionSource),
		"gini", record.GiniCoefficient,
		"fairness_score", record.FairnessScore,
		"red_flags", len(record.RedFlags),
		"green_flags", len(record.GreenFlags),
		"incomplete_sections", record.IncompleteSections,
	)
	return record, nil
}

func (s Service) runAudit(ctx context.Context, challengeID string, logger *slog.Logger) (entities.FairnessAuditRecord, error) {
	if _, err := call(ctx, s, func(ctx context.Context) (entities.Challenge, error) {
		return s.Data.GetChallenge(ctx, challengeID)
	}); err != nil {
		return entities.FairnessAuditRecord{}, mandatoryError("challenge", err)
	}

	distribution, err := s.ResolveDistribution(ctx, challengeID)
	if err != nil {
		return entities.FairnessAuditRecord{}, err
	}

	contributions, err := call(ctx, s, func(ctx context.Context) ([]entities.ContributionRecord, error) {
		return s.Data.ListContributions(ctx, challengeID)
	})
	if err != nil {
		return entities.FairnessAuditRecord{}, mandatoryError("contributions", err)
	}

	// The manifest rules cannot be judged without it, so a failed read is
	// fatal. Only a confirmed absence audits without a manifest.
	manifest, err := s.loadManifest(ctx, challengeID)
	if err != nil {
		return entities.FairnessAuditRecord{}, mandatoryError("manifest", err)
	}

	incomplete := make([]string, 0, 1)
	reputation, err := s.loadReputation(ctx, contributorIDs(contributions, distribution))
	if err != nil {
		incomplete = append(incomplete, SectionReputation)
		logger.Warn("reputation unavailable, auditing without it",
			"event", "fairness_audit_reputation_unavailable",
			"module", "finance-core/payout-fairness-engine",
			"layer", "application",
			"challenge_id", challengeID,
			"error", err.Error(),
		)
	}

	input := fairness.RuleInput{
		Contributions: contributions,
		Manifest:      manifest,
		Distribution:  distribution,
		Reputation:    reputation,
	}
	thresholds := s.thresholds()
	inputHash, err := auditcache.HashInput(struct {
		Input      fairness.RuleInput  `json:"input"`
		Thresholds fairness.Thresholds `json:"thresholds"`
	}{input, thresholds})
	if err != nil {
		return entities.FairnessAuditRecord{}, err
	}

	confidence := 1.0
	if len(incomplete) > 0 {
		confidence = 0.5
	}
	analysis, cached, err := auditcache.Remember(ctx, s.Cache, inputHash, s.cacheTTL(), logger,
		func() (fairness.Analysis, float64, error) {
			return fairness.Analyze(input, thresholds), confidence, nil
		})
	if err != nil {
		return entities.FairnessAuditRecord{}, err
	}
	if cached {
		logger.Debug("fairness analysis served from cache",
			"event", "fairness_audit_cache_hit",
			"module", "finance-core/payout-fairness-engine",
			"layer", "application",
			"challenge_id", challengeID,
			"input_hash", inputHash,
		)
	}
	for _, warning := range analysis.Evaluation.Warnings {
		logger.Warn("composition manifest warning",
			"event", "fairness_audit_manifest_warning",
			"module", "finance-core/payout-fairness-engine",
			"layer", "application",
			"challenge_id", challengeID,
			"warning", warning,
		)
	}

	auditID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.FairnessAuditRecord{}, err
	}
	record := entities.FairnessAuditRecord{
		AuditID:            strings.TrimSpace(auditID),
		ChallengeID:        challengeID,
		GiniCoefficient:    analysis.Evaluation.Gini,
		GiniCategory:       analysis.GiniCategory,
		FairnessScore:      analysis.FairnessScore,
		RedFlags:           analysis.Evaluation.RedFlags,
		GreenFlags:         analysis.Evaluation.GreenFlags,
		Recommendations:    analysis.Recommendations,
		EvidenceLinks:      evidenceLinks(distribution, manifest),
		DistributionSource: distribution.Source,
		IncompleteSections: incomplete,
		Warnings:           append([]string{}, analysis.Evaluation.Warnings...),
		InputHash:          inputHash,
		CreatedAt:          s.now(),
	}

	event, err := s.auditCompletedEvent(ctx, record)
	if err != nil {
		return entities.FairnessAuditRecord{}, err
	}
	if err := s.Audits.RecordAuditResult(ctx, record, event); err != nil {
		return entities.FairnessAuditRecord{}, err
	}
	return record, nil
}

// GetAuditHistory returns every audit for the challenge, newest first.
func (s Service) GetAuditHistory(ctx context.Context, challengeID string) ([]entities.FairnessAuditRecord, error) {
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return nil, domainerrors.ErrInvalidRequest
	}
	items, err := s.Audits.ListAuditsByChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s Service) CalculateSplit(_ context.Context, bounty float64, weights []fairness.WeightedContributor) ([]fairness.Share, error) {
	shares, err := fairness.CalculateSplit(bounty, weights)
	if err != nil {
		return nil, err
	}
	ResolveLogger(s.Logger).Debug("payout split calculated",
		"event", "payout_split_calculated",
		"module", "finance-core/payout-fairness-engine",
		"layer", "application",
		"bounty", bounty,
		"contributors", len(shares),
	)
	return shares, nil
}

// ResolveDistribution picks the distribution source once: the latest proposed
// distribution when one exists, otherwise realized payments.
func (s Service) ResolveDistribution(ctx context.Context, challengeID string) (entities.PayoutDistribution, error) {
	type lookup struct {
		distribution entities.PayoutDistribution
		found        bool
	}
	proposed, err := call(ctx, s, func(ctx context.Context) (lookup, error) {
		d, found, err := s.Data.GetLatestPayoutDistribution(ctx, challengeID)
		return lookup{distribution: d, found: found}, err
	})
	if err != nil {
		return entities.PayoutDistribution{}, mandatoryError("payout distribution", err)
	}
	if proposed.found {
		d := proposed.distribution
		d.Source = entities.SourceProposedDistribution
		return d, nil
	}

	payments, err := call(ctx, s, func(ctx context.Context) ([]entities.Payment, error) {
		return s.Data.ListPayments(ctx, challengeID)
	})
	if err != nil {
		return entities.PayoutDistribution{}, mandatoryError("payments", err)
	}
	realized := entities.PayoutDistribution{
		DistributionID: "payments:" + challengeID,
		ChallengeID:    challengeID,
		Source:         entities.SourceRealizedPayments,
	}
	for _, p := range payments {
		if !p.Counted() {
			continue
		}
		realized.Entries = append(realized.Entries, entities.DistributionEntry{
			ContributorID: p.ContributorID,
			Amount:        p.Amount,
			EvidenceRefs:  []string{"payment:" + p.PaymentID},
		})
		if p.CreatedAt.After(realized.CreatedAt) {
			realized.CreatedAt = p.CreatedAt.UTC()
		}
	}
	if len(realized.Entries) == 0 {
		return entities.PayoutDistribution{}, domainerrors.ErrDistributionNotFound
	}
	return realized, nil
}

func (s Service) loadManifest(ctx context.Context, challengeID string) (*entities.CompositionManifest, error) {
	type lookup struct {
		manifest entities.CompositionManifest
		found    bool
	}
	result, err := call(ctx, s, func(ctx context.Context) (lookup, error) {
		m, found, err := s.Data.GetManifest(ctx, challengeID)
		return lookup{manifest: m, found: found}, err
	})
	if errors.Is(err, domainerrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil || !result.found {
		return nil, err
	}
	return &result.manifest, nil
}

func (s Service) loadReputation(ctx context.Context, contributorIDs []string) (map[string]entities.ReputationRecord, error) {
	if s.Reputation == nil || len(contributorIDs) == 0 {
		return nil, nil
	}
	reputation, err := call(ctx, s, func(ctx context.Context) (map[string]entities.ReputationRecord, error) {
		return s.Reputation.GetReputation(ctx, contributorIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainerrors.ErrDataUnavailable, err)
	}
	return reputation, nil
}

func (s Service) thresholds() fairness.Thresholds {
	if s.Thresholds == (fairness.Thresholds{}) {
		return fairness.DefaultThresholds()
	}
	return s.Thresholds
}

func (s Service) cacheTTL() time.Duration {
	if s.CacheTTL <= 0 {
		return 24 * time.Hour
	}
	return s.CacheTTL
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s Service) observe(outcome string, d time.Duration, gini float64, redFlags int) {
	if s.Metrics != nil {
		s.Metrics.ObserveAudit(outcome, d, gini, redFlags)
	}
}

func (s Service) retryPolicy() resilience.RetryPolicy {
	attempts := s.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return resilience.RetryPolicy{
		Attempts: attempts,
		Backoff:  s.RetryBackoff,
		Retryable: func(err error) bool {
			return !errors.Is(err, domainerrors.ErrNotFound) &&
				!errors.Is(err, domainerrors.ErrInvalidRequest)
		},
	}
}

func (s Service) upstreamTimeout() time.Duration {
	if s.UpstreamTimeout <= 0 {
		return 5 * time.Second
	}
	return s.UpstreamTimeout
}

func call[T any](ctx context.Context, s Service, fn func(context.Context) (T, error)) (T, error) {
	return resilience.Call(ctx, s.retryPolicy(), s.upstreamTimeout(), fn)
}

func mandatoryError(what string, err error) error {
	switch {
	case errors.Is(err, domainerrors.ErrNotFound),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("load %s: %w", what, err)
	default:
		return fmt.Errorf("load %s: %w: %w", what, domainerrors.ErrDependencyUnavailable, err)
	}
}

func contributorIDs(contributions []entities.ContributionRecord, distribution entities.PayoutDistribution) []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, c := range contributions {
		add(c.ContributorID)
	}
	for _, e := range distribution.Entries {
		add(e.ContributorID)
	}
	sort.Strings(ids)
	return ids
}

func evidenceLinks(distribution entities.PayoutDistribution, manifest *entities.CompositionManifest) []string {
	links := make([]string, 0, len(distribution.Entries)+2)
	if distribution.Source == entities.SourceProposedDistribution {
		links = append(links, "distribution:"+distribution.DistributionID)
	} else {
		for _, e := range distribution.Entries {
			links = append(links, e.EvidenceRefs...)
		}
	}
	if manifest != nil {
		links = append(links, "manifest:"+manifest.ManifestID)
	}
	return links
}

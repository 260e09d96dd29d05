package bootstrap

import (
	"context"
	"errors"
	"fmt"

	evidenceentities "oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
	evidenceports "oddlybrilliant/contexts/finance-core/evidence-integrity-service/ports"
	fairnessentities "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/entities"
	fairnesserrors "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/errors"
)

type auditHistory interface {
	GetAuditHistory(ctx context.Context, challengeID string) ([]fairnessentities.FairnessAuditRecord, error)
}

// fairnessSnapshots lets evidence packages embed the newest fairness audit
// without the two services importing each other.
type fairnessSnapshots struct {
	audits auditHistory
}

func (b fairnessSnapshots) LatestAudit(ctx context.Context, challengeID string) (evidenceentities.FairnessSnapshot, bool, error) {
	items, err := b.audits.GetAuditHistory(ctx, challengeID)
	if err != nil {
		return evidenceentities.FairnessSnapshot{}, false, err
	}
	if len(items) == 0 {
		return evidenceentities.FairnessSnapshot{}, false, nil
	}
	return toSnapshot(items[0]), true, nil
}

func toSnapshot(record fairnessentities.FairnessAuditRecord) evidenceentities.FairnessSnapshot {
	snapshot := evidenceentities.FairnessSnapshot{
		AuditID:            record.AuditID,
		GiniCoefficient:    record.GiniCoefficient,
		GiniCategory:       record.GiniCategory,
		FairnessScore:      record.FairnessScore,
		RedFlags:           toFlags(record.RedFlags),
		GreenFlags:         toFlags(record.GreenFlags),
		Recommendations:    make([]string, 0, len(record.Recommendations)),
		IncompleteSections: append([]string{}, record.IncompleteSections...),
		CreatedAt:          record.CreatedAt,
	}
	for _, rec := range record.Recommendations {
		snapshot.Recommendations = append(snapshot.Recommendations,
			fmt.Sprintf("[%s] %s: %s", rec.Severity, rec.Title, rec.Message))
	}
	return snapshot
}

func toFlags(flags []fairnessentities.Flag) []evidenceentities.FairnessFlag {
	out := make([]evidenceentities.FairnessFlag, 0, len(flags))
	for _, flag := range flags {
		out = append(out, evidenceentities.FairnessFlag{
			ID:     string(flag.ID),
			Kind:   string(flag.Kind),
			Detail: flag.Detail,
		})
	}
	return out
}

type distributionResolver interface {
	ResolveDistribution(ctx context.Context, challengeID string) (fairnessentities.PayoutDistribution, error)
}

// fairnessPayouts hands evidence packages the same distribution source the
// fairness audit uses, so the payout table matches the embedded audit.
type fairnessPayouts struct {
	distributions distributionResolver
}

func (b fairnessPayouts) ResolvePayouts(ctx context.Context, challengeID string) (evidenceentities.ResolvedPayouts, bool, error) {
	distribution, err := b.distributions.ResolveDistribution(ctx, challengeID)
	if errors.Is(err, fairnesserrors.ErrDistributionNotFound) {
		return evidenceentities.ResolvedPayouts{}, false, nil
	}
	if err != nil {
		return evidenceentities.ResolvedPayouts{}, false, err
	}
	resolved := evidenceentities.ResolvedPayouts{
		Source:  string(distribution.Source),
		Entries: make([]evidenceentities.PayoutEntry, 0, len(distribution.Entries)),
	}
	for _, entry := range distribution.Entries {
		resolved.Entries = append(resolved.Entries, evidenceentities.PayoutEntry{
			ContributorID: entry.ContributorID,
			Amount:        entry.Amount,
		})
	}
	return resolved, true, nil
}

var _ evidenceports.AuditSnapshotReader = fairnessSnapshots{}
var _ evidenceports.PayoutReader = fairnessPayouts{}

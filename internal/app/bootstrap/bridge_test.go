package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	evidenceintegrityservice "oddlybrilliant/contexts/finance-core/evidence-integrity-service"
	evidenceapplication "oddlybrilliant/contexts/finance-core/evidence-integrity-service/application"
	evidenceentities "oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
	payoutfairnessengine "oddlybrilliant/contexts/finance-core/payout-fairness-engine"
	fairnessentities "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/entities"
	fairnesserrors "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/errors"
)

type stubHistory struct {
	items []fairnessentities.FairnessAuditRecord
	err   error
}

func (s stubHistory) GetAuditHistory(context.Context, string) ([]fairnessentities.FairnessAuditRecord, error) {
	return s.items, s.err
}

func TestFairnessSnapshotsUsesNewestAudit(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	bridge := fairnessSnapshots{audits: stubHistory{items: []fairnessentities.FairnessAuditRecord{
		{
			AuditID:         "audit-2",
			GiniCoefficient: 0.8,
			GiniCategory:    "extreme",
			RedFlags:        []fairnessentities.Flag{{ID: fairnessentities.FlagSingleContributorDominance, Kind: fairnessentities.FlagKindRed, Detail: "alice holds 80%"}},
			Recommendations: []fairnessentities.Recommendation{{Severity: fairnessentities.SeverityCritical, Title: "Rebalance", Message: "review shares"}},
			CreatedAt:       now,
		},
		{AuditID: "audit-1", CreatedAt: now.Add(-time.Hour)},
	}}}

	snapshot, found, err := bridge.LatestAudit(context.Background(), "challenge-1")
	if err != nil || !found {
		t.Fatalf("expected snapshot, got found=%v err=%v", found, err)
	}
	if snapshot.AuditID != "audit-2" || len(snapshot.RedFlags) != 1 || snapshot.RedFlags[0].ID != "SINGLE_CONTRIBUTOR_DOMINANCE" {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if len(snapshot.Recommendations) != 1 || snapshot.Recommendations[0] != "[CRITICAL] Rebalance: review shares" {
		t.Fatalf("unexpected recommendations %v", snapshot.Recommendations)
	}
}

func TestFairnessSnapshotsReportsAbsenceAndErrors(t *testing.T) {
	_, found, err := fairnessSnapshots{audits: stubHistory{}}.LatestAudit(context.Background(), "challenge-1")
	if err != nil || found {
		t.Fatalf("expected no snapshot, got found=%v err=%v", found, err)
	}

	_, _, err = fairnessSnapshots{audits: stubHistory{err: errors.New("db down")}}.LatestAudit(context.Background(), "challenge-1")
	if err == nil {
		t.Fatalf("expected error to propagate")
	}
}

type stubDistributions struct {
	distribution fairnessentities.PayoutDistribution
	err          error
}

func (s stubDistributions) ResolveDistribution(context.Context, string) (fairnessentities.PayoutDistribution, error) {
	return s.distribution, s.err
}

func TestFairnessPayoutsReportsAbsenceAndErrors(t *testing.T) {
	_, found, err := fairnessPayouts{distributions: stubDistributions{err: fairnesserrors.ErrDistributionNotFound}}.ResolvePayouts(context.Background(), "challenge-1")
	if err != nil || found {
		t.Fatalf("expected no payouts, got found=%v err=%v", found, err)
	}

	_, _, err = fairnessPayouts{distributions: stubDistributions{err: errors.New("db down")}}.ResolvePayouts(context.Background(), "challenge-1")
	if err == nil {
		t.Fatalf("expected error to propagate")
	}
}

func TestEvidencePayoutTableMatchesAuditSource(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	fairness := payoutfairnessengine.NewInMemoryModule(nil)
	fairness.Store.PutChallenge(fairnessentities.Challenge{
		ChallengeID:  "challenge-1",
		Title:        "Fix the parser",
		BountyAmount: 1000,
		Status:       "completed",
		LeaderID:     "alice",
		CreatedAt:    now.Add(-72 * time.Hour),
	})
	for i, c := range []fairnessentities.ContributionRecord{
		{ContributionID: "c1", ContributorID: "alice", Type: fairnessentities.ContributionCode, TokenValue: 60},
		{ContributionID: "c2", ContributorID: "bob", Type: fairnessentities.ContributionDesign, TokenValue: 40},
	} {
		c.ChallengeID = "challenge-1"
		c.CreatedAt = now.Add(time.Duration(i-48) * time.Hour)
		fairness.Store.AddContribution(c)
	}
	// A payment without a recorded status still counts; a failed one does not.
	for i, p := range []fairnessentities.Payment{
		{PaymentID: "p1", ContributorID: "alice", Amount: 600, Status: "completed"},
		{PaymentID: "p2", ContributorID: "bob", Amount: 400},
		{PaymentID: "p3", ContributorID: "bob", Amount: 250, Status: "failed"},
	} {
		p.ChallengeID = "challenge-1"
		p.CreatedAt = now.Add(time.Duration(i-5) * time.Hour)
		fairness.Store.AddPayment(p)
	}

	record, err := fairness.Service.RunFairnessAudit(ctx, "challenge-1")
	if err != nil {
		t.Fatalf("run fairness audit failed: %v", err)
	}
	if record.DistributionSource != fairnessentities.SourceRealizedPayments {
		t.Fatalf("expected realized payments source, got %s", record.DistributionSource)
	}

	evidence := evidenceintegrityservice.NewInMemoryModule(nil)
	evidence.Store.PutSummary(evidenceentities.ChallengeSummary{
		ChallengeID:       "challenge-1",
		Title:             "Fix the parser",
		Status:            "completed",
		LeaderID:          "alice",
		BountyAmount:      1000,
		CreatedAt:         now.Add(-72 * time.Hour),
		ContributionTypes: map[string]string{"alice": "CODE", "bob": "DESIGN"},
	})
	packager := evidence.Packager
	packager.Payouts = fairnessPayouts{distributions: fairness.Service}
	packager.Audits = fairnessSnapshots{audits: fairness.Service}

	artifact, err := packager.GeneratePackage(ctx, evidenceapplication.GeneratePackageCommand{
		ChallengeID: "challenge-1",
		Kind:        evidenceentities.KindPayoutAudit,
	})
	if err != nil {
		t.Fatalf("generate package failed: %v", err)
	}
	data, err := evidence.Store.ReadBytes(ctx, artifact.StorageKey)
	if err != nil {
		t.Fatalf("read package failed: %v", err)
	}
	var doc evidenceentities.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode package failed: %v", err)
	}

	want := []evidenceentities.PayoutRow{
		{ContributorID: "alice", ContributionType: "CODE", Weight: 0.6, Amount: 600},
		{ContributorID: "bob", ContributionType: "DESIGN", Weight: 0.4, Amount: 400},
	}
	if len(doc.Payouts) != len(want) {
		t.Fatalf("expected %d payout rows, got %+v", len(want), doc.Payouts)
	}
	for i := range want {
		if doc.Payouts[i] != want[i] {
			t.Fatalf("payout row %d: expected %+v, got %+v", i, want[i], doc.Payouts[i])
		}
	}
	source := ""
	for _, kv := range doc.Overview {
		if kv.Key == "Payout source" {
			source = kv.Value
		}
	}
	if source != string(record.DistributionSource) {
		t.Fatalf("expected payout source %s, got %q", record.DistributionSource, source)
	}
	if doc.Fairness == nil || doc.Fairness.AuditID != record.AuditID {
		t.Fatalf("expected audit %s in package, got %+v", record.AuditID, doc.Fairness)
	}
}

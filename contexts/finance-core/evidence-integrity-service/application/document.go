package application

import (
	"fmt"
	"math"
	"strings"
	"time"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
)

const payoutTolerance = 0.01

type documentInput struct {
	artifactID string
	kind       entities.PackageKind
	summary    entities.ChallengeSummary
	sections   *sections
	generated  time.Time
	reference  string
	verifyURL  string
}

func assembleDocument(in documentInput) entities.Document {
	summary := in.summary
	doc := entities.Document{
		ArtifactID:  in.artifactID,
		Kind:        in.kind,
		Title:       fmt.Sprintf("%s: %s", in.kind.Title(), strings.TrimSpace(summary.Title)),
		GeneratedAt: in.generated.UTC(),
		Overview: []entities.KeyValue{
			{Key: "Challenge", Value: summary.ChallengeID},
			{Key: "Title", Value: summary.Title},
			{Key: "Status", Value: summary.Status},
			{Key: "Leader", Value: summary.LeaderID},
			{Key: "Bounty", Value: fmt.Sprintf("%.2f", summary.BountyAmount)},
			{Key: "Created", Value: formatTime(summary.CreatedAt)},
			{Key: "Completed", Value: formatOptionalTime(summary.CompletedAt)},
			{Key: "Payout source", Value: summary.DistributionSource},
			{Key: "Generated", Value: formatTime(in.generated)},
		},
		Payouts:            append([]entities.PayoutRow{}, summary.Payouts...),
		Checklist:          checklist(summary, in.sections),
		Fairness:           in.sections.fairness,
		Timeline:           in.sections.timeline,
		Files:              in.sections.files,
		Signature:          in.sections.signature,
		IncompleteSections: append([]string{}, in.sections.incomplete...),
		Verification: entities.VerificationDetails{
			Reference: in.reference,
			URL:       in.verifyURL,
		},
	}
	return doc
}

func checklist(summary entities.ChallengeSummary, s *sections) []entities.ChecklistItem {
	paid := 0.0
	allPaid := len(summary.Payouts) > 0
	for _, row := range summary.Payouts {
		paid += row.Amount
		if row.Amount <= 0 {
			allPaid = false
		}
	}

	items := []entities.ChecklistItem{
		{
			Item:   "Payout distribution recorded",
			Passed: len(summary.Payouts) > 0,
			Note:   summary.DistributionSource,
		},
		{
			Item:   "Payouts sum to bounty",
			Passed: len(summary.Payouts) > 0 && math.Abs(paid-summary.BountyAmount) <= payoutTolerance,
			Note:   fmt.Sprintf("%.2f of %.2f", paid, summary.BountyAmount),
		},
		{
			Item:   "Every contributor paid",
			Passed: allPaid,
		},
		{
			Item:   "Composition manifest signed",
			Passed: summary.Manifest.Signed(),
		},
	}

	fairnessItem := entities.ChecklistItem{Item: "Fairness audit without red flags"}
	if s.fairness == nil {
		fairnessItem.Note = "no fairness audit included"
	} else {
		fairnessItem.Passed = len(s.fairness.RedFlags) == 0
		fairnessItem.Note = fmt.Sprintf("audit %s, %d red flags", s.fairness.AuditID, len(s.fairness.RedFlags))
	}
	items = append(items, fairnessItem)

	sectionsItem := entities.ChecklistItem{
		Item:   "Evidence sections complete",
		Passed: len(s.incomplete) == 0,
	}
	if len(s.incomplete) > 0 {
		sectionsItem.Note = "missing: " + strings.Join(s.incomplete, ", ")
	}
	return append(items, sectionsItem)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

package render

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() entities.Document {
	generated := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	signed := generated.Add(-48 * time.Hour)
	return entities.Document{
		ArtifactID:  "artifact-1",
		Kind:        entities.KindPayoutAudit,
		Title:       "Payout Audit: Fix the parser",
		GeneratedAt: generated,
		Overview: []entities.KeyValue{
			{Key: "Challenge", Value: "challenge-1"},
			{Key: "Bounty", Value: "1000.00"},
		},
		Payouts: []entities.PayoutRow{
			{ContributorID: "alice", ContributionType: "CODE", Weight: 0.4, Amount: 400},
			{ContributorID: "bob", ContributionType: "DESIGN", Weight: 0.6, Amount: 600},
		},
		Checklist: []entities.ChecklistItem{
			{Item: "Payouts sum to bounty", Passed: true, Note: "1000.00 of 1000.00"},
		},
		Fairness: &entities.FairnessSnapshot{
			AuditID:         "audit-1",
			GiniCoefficient: 0.1,
			GiniCategory:    "excellent",
			FairnessScore:   0.98,
			GreenFlags:      []entities.FairnessFlag{{ID: "FAIR_DISTRIBUTION", Kind: "green", Detail: "gini below 0.40"}},
			CreatedAt:       generated.Add(-time.Hour),
		},
		Timeline: []entities.TimelineEvent{
			{EventID: "e1", EventType: "challenge.completed", Actor: "alice", Summary: "done", OccurredAt: generated.Add(-2 * time.Hour)},
		},
		Files:              []entities.FileHash{{FileName: "main.go", SHA256: "abc", SizeBytes: 12}},
		Signature:          &entities.ManifestSignature{ManifestID: "manifest-1", SignedAt: &signed, Entries: 2},
		IncompleteSections: []string{},
		Verification: entities.VerificationDetails{
			Reference: "ref123",
			URL:       "https://audit.example.test/api/v1/evidence/verify/ref123",
		},
	}
}

func TestJSONRendererIsDeterministic(t *testing.T) {
	doc := sampleDocument()
	first, err := JSONRenderer{}.Render(context.Background(), doc)
	require.NoError(t, err)
	second, err := JSONRenderer{}.Render(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var decoded entities.Document
	require.NoError(t, json.Unmarshal(first, &decoded))
	assert.Equal(t, "ref123", decoded.Verification.Reference)
	assert.Len(t, decoded.Payouts, 2)
	require.NotEmpty(t, decoded.Verification.QRCodePNG)
	assert.True(t, bytes.HasPrefix(decoded.Verification.QRCodePNG, []byte("\x89PNG")), "expected an embedded png")
	assert.Contains(t, string(first), `"qr_code_png": "iVBORw0KGgo`)
	assert.Equal(t, "application/json", JSONRenderer{}.ContentType())
}

func TestPDFRendererProducesPDF(t *testing.T) {
	data, err := PDFRenderer{Author: "evidence-integrity-service"}.Render(context.Background(), sampleDocument())
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "expected a pdf header")
	assert.Equal(t, "pdf", PDFRenderer{}.Extension())
}

func TestPDFRendererHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := PDFRenderer{}.Render(ctx, sampleDocument())
	assert.ErrorIs(t, err, context.Canceled)
}

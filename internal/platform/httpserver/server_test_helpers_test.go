package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	evidenceintegrity "oddlybrilliant/contexts/finance-core/evidence-integrity-service"
	evidenceentities "oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
	payoutfairness "oddlybrilliant/contexts/finance-core/payout-fairness-engine"
	fairnessentities "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/entities"
	"oddlybrilliant/internal/platform/metrics"
)

const testToken = "token"

type testServer struct {
	*Server
	fairness payoutfairness.Module
	evidence evidenceintegrity.Module
}

func newTestServer(opts Options) testServer {
	fairnessModule := payoutfairness.NewInMemoryModule(nil)
	evidenceModule := evidenceintegrity.NewInMemoryModule(nil)
	seedFairness(fairnessModule)
	seedEvidence(evidenceModule)
	if opts.APIToken == "" {
		opts.APIToken = testToken
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	return testServer{
		Server:   New(fairnessModule, evidenceModule, nil, opts),
		fairness: fairnessModule,
		evidence: evidenceModule,
	}
}

func seedFairness(module payoutfairness.Module) {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	module.Store.PutChallenge(fairnessentities.Challenge{
		ChallengeID:  "challenge-1",
		Title:        "Fix the parser",
		BountyAmount: 1000,
		Status:       "completed",
		LeaderID:     "alice",
		CreatedAt:    created,
	})
	for _, c := range []struct {
		id   string
		kind fairnessentities.ContributionType
	}{
		{"alice", fairnessentities.ContributionCode},
		{"bob", fairnessentities.ContributionDesign},
		{"carol", fairnessentities.ContributionTesting},
	} {
		module.Store.AddContribution(fairnessentities.ContributionRecord{
			ContributionID: "contribution-" + c.id,
			ChallengeID:    "challenge-1",
			ContributorID:  c.id,
			Type:           c.kind,
			CreatedAt:      created,
		})
	}
	module.Store.AddDistribution(fairnessentities.PayoutDistribution{
		DistributionID: "distribution-1",
		ChallengeID:    "challenge-1",
		Source:         fairnessentities.SourceProposedDistribution,
		CreatedAt:      created.Add(24 * time.Hour),
		Entries: []fairnessentities.DistributionEntry{
			{ContributorID: "alice", Amount: 400},
			{ContributorID: "bob", Amount: 350},
			{ContributorID: "carol", Amount: 250},
		},
	})
}

func seedEvidence(module evidenceintegrity.Module) {
	module.Store.PutSummary(evidenceentities.ChallengeSummary{
		ChallengeID:  "challenge-1",
		Title:        "Fix the parser",
		Status:       "completed",
		BountyAmount: 1000,
		Payouts: []evidenceentities.PayoutRow{
			{ContributorID: "alice", Weight: 0.4, Amount: 400},
			{ContributorID: "bob", Weight: 0.6, Amount: 600},
		},
	})
}

func (s testServer) do(t *testing.T, method string, target string, body string, authorized bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

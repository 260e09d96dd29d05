package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func generateEvidence(t *testing.T, server testServer) map[string]any {
	t.Helper()
	rr := server.do(t, http.MethodPost, "/api/v1/challenges/challenge-1/evidence-packages",
		`{"kind":"COMPLIANCE_REPORT","include":{"file_hashes":true}}`, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	return payload
}

func TestEvidenceGenerationRejectsUnknownKind(t *testing.T) {
	server := newTestServer(Options{})
	rr := server.do(t, http.MethodPost, "/api/v1/challenges/challenge-1/evidence-packages", `{"kind":"RECEIPT"}`, true)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
	if server.evidence.Store.BlobCount() != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestEvidenceVerificationIsPublicAndDetectsTamper(t *testing.T) {
	server := newTestServer(Options{})
	pkg := generateEvidence(t, server)
	reference, _ := pkg["verification_reference"].(string)
	artifactID, _ := pkg["artifact_id"].(string)

	rr := server.do(t, http.MethodGet, "/api/v1/evidence/verify/"+reference, "", false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"valid":true`) {
		t.Fatalf("expected valid verification, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = server.do(t, http.MethodGet, "/api/v1/evidence-packages/"+artifactID+"/content", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Content-SHA256") != pkg["sha256"] {
		t.Fatalf("expected sha header %v, got %q", pkg["sha256"], rr.Header().Get("X-Content-SHA256"))
	}

	ctx := context.Background()
	artifact, err := server.evidence.Store.GetArtifact(ctx, artifactID)
	if err != nil {
		t.Fatalf("load artifact failed: %v", err)
	}
	data, _ := server.evidence.Store.ReadBytes(ctx, artifact.StorageKey)
	data[0] ^= 0x01
	if err := server.evidence.Store.WriteBytes(ctx, artifact.StorageKey, data, artifact.ContentType); err != nil {
		t.Fatalf("tamper write failed: %v", err)
	}

	rr = server.do(t, http.MethodGet, "/api/v1/evidence/verify/"+reference, "", false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"valid":false`) {
		t.Fatalf("expected invalid verification, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = server.do(t, http.MethodGet, "/api/v1/evidence-packages/"+artifactID+"/content", "", true)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for tampered download, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestEvidenceListRequiresAuthorization(t *testing.T) {
	server := newTestServer(Options{})
	rr := server.do(t, http.MethodGet, "/api/v1/challenges/challenge-1/evidence-packages", "", false)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestEvidenceGenerationIsRateLimited(t *testing.T) {
	server := newTestServer(Options{EvidenceRatePerMinute: 1})
	generateEvidence(t, server)

	rr := server.do(t, http.MethodPost, "/api/v1/challenges/challenge-1/evidence-packages", `{"kind":"COMPLIANCE_REPORT"}`, true)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMetricsAndDocsArePublic(t *testing.T) {
	server := newTestServer(Options{})
	server.do(t, http.MethodGet, "/api/v1/evidence/verify/unknown", "", false)

	rr := server.do(t, http.MethodGet, "/metrics", "", false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "payout_fairness_http_requests_total") {
		t.Fatalf("expected request metrics, got %d", rr.Code)
	}

	rr = server.do(t, http.MethodGet, "/swagger/doc.json", "", false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "/challenges/{challenge_id}/fairness-audits") {
		t.Fatalf("expected swagger document, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestEvidenceListIncludesSupersededPackages(t *testing.T) {
	server := newTestServer(Options{})
	first := generateEvidence(t, server)
	second := generateEvidence(t, server)

	rr := server.do(t, http.MethodGet, "/api/v1/challenges/challenge-1/evidence-packages", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if len(payload.Items) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(payload.Items))
	}
	for _, item := range payload.Items {
		if item["artifact_id"] == second["artifact_id"] && item["supersedes_id"] != first["artifact_id"] {
			t.Fatalf("expected second package to supersede the first, got %v", item)
		}
	}
}

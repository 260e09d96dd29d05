package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	evidenceerrors "oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/errors"
	evidencehttp "oddlybrilliant/contexts/finance-core/evidence-integrity-service/transport/http"
)

func (s *Server) handleGenerateEvidence(w http.ResponseWriter, r *http.Request) {
	if s.evidenceLimiter != nil && !s.evidenceLimiter.Allow() {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "rate_limited", "evidence generation rate exceeded")
		return
	}
	var req evidencehttp.GeneratePackageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.evidence.Handler.GeneratePackageHandler(r.Context(), r.PathValue("challenge_id"), req)
	if err != nil {
		writeEvidenceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListEvidence(w http.ResponseWriter, r *http.Request) {
	resp, err := s.evidence.Handler.ListPackagesHandler(r.Context(), r.PathValue("challenge_id"))
	if err != nil {
		writeEvidenceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVerifyEvidence(w http.ResponseWriter, r *http.Request) {
	resp, err := s.evidence.Handler.VerifyPackageHandler(r.Context(), r.PathValue("reference"))
	if err != nil {
		writeEvidenceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDownloadEvidence(w http.ResponseWriter, r *http.Request) {
	content, err := s.evidence.Handler.DownloadPackageHandler(r.Context(), r.PathValue("artifact_id"))
	if err != nil {
		writeEvidenceDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", content.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", content.FileName))
	w.Header().Set("X-Content-SHA256", content.SHA256)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content.Data)
}

func writeEvidenceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, evidenceerrors.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, evidenceerrors.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, evidenceerrors.ErrIntegrityViolation):
		writeError(w, http.StatusConflict, "integrity_violation", err.Error())
	case errors.Is(err, evidenceerrors.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, evidenceerrors.ErrDependencyUnavailable):
		writeError(w, http.StatusFailedDependency, "dependency_unavailable", err.Error())
	case errors.Is(err, evidenceerrors.ErrStorage):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "evidence storage is unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

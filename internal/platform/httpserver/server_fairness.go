package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	fairnesserrors "oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/errors"
	fairnesshttp "oddlybrilliant/contexts/finance-core/payout-fairness-engine/transport/http"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleRunFairnessAudit(w http.ResponseWriter, r *http.Request) {
	resp, err := s.fairness.Handler.RunFairnessAuditHandler(r.Context(), r.PathValue("challenge_id"))
	if err != nil {
		writeFairnessDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAuditHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.fairness.Handler.AuditHistoryHandler(r.Context(), r.PathValue("challenge_id"))
	if err != nil {
		writeFairnessDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalculateSplit(w http.ResponseWriter, r *http.Request) {
	var req fairnesshttp.CalculateSplitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.fairness.Handler.CalculateSplitHandler(r.Context(), req)
	if err != nil {
		writeFairnessDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeFairnessDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fairnesserrors.ErrInvalidRequest),
		errors.Is(err, fairnesserrors.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, fairnesserrors.ErrDistributionNotFound):
		writeError(w, http.StatusNotFound, "distribution_not_found", err.Error())
	case errors.Is(err, fairnesserrors.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, fairnesserrors.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, fairnesserrors.ErrDependencyUnavailable):
		writeError(w, http.StatusFailedDependency, "dependency_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

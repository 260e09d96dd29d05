package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	evidenceintegrity "oddlybrilliant/contexts/finance-core/evidence-integrity-service"
	payoutfairness "oddlybrilliant/contexts/finance-core/payout-fairness-engine"
	"oddlybrilliant/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	_ "oddlybrilliant/internal/platform/httpserver/docs"
)

type Options struct {
	Addr string
	// APIToken guards every route except verification, metrics and docs.
	// Empty disables the check.
	APIToken string
	// EvidenceRatePerMinute caps package generation. Zero disables the cap.
	EvidenceRatePerMinute int
	Metrics               *metrics.Recorder
}

type Server struct {
	mux             *http.ServeMux
	httpServer      *http.Server
	logger          *slog.Logger
	addr            string
	apiToken        string
	fairness        payoutfairness.Module
	evidence        evidenceintegrity.Module
	metrics         *metrics.Recorder
	evidenceLimiter *rate.Limiter
}

func New(
	fairnessModule payoutfairness.Module,
	evidenceModule evidenceintegrity.Module,
	logger *slog.Logger,
	opts Options,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     opts.Addr,
		apiToken: strings.TrimSpace(opts.APIToken),
		fairness: fairnessModule,
		evidence: evidenceModule,
		metrics:  opts.Metrics,
	}
	if opts.EvidenceRatePerMinute > 0 {
		s.evidenceLimiter = rate.NewLimiter(
			rate.Every(time.Minute/time.Duration(opts.EvidenceRatePerMinute)),
			opts.EvidenceRatePerMinute,
		)
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.handle("POST /api/v1/challenges/{challenge_id}/fairness-audits", "run_fairness_audit", true, s.handleRunFairnessAudit)
	s.handle("GET /api/v1/challenges/{challenge_id}/fairness-audits", "fairness_audit_history", true, s.handleAuditHistory)
	s.handle("POST /api/v1/payout-splits", "calculate_split", true, s.handleCalculateSplit)

	s.handle("POST /api/v1/challenges/{challenge_id}/evidence-packages", "generate_evidence", true, s.handleGenerateEvidence)
	s.handle("GET /api/v1/challenges/{challenge_id}/evidence-packages", "list_evidence", true, s.handleListEvidence)
	s.handle("GET /api/v1/evidence-packages/{artifact_id}/content", "download_evidence", true, s.handleDownloadEvidence)
	s.handle("GET /api/v1/evidence/verify/{reference}", "verify_evidence", false, s.handleVerifyEvidence)
}

func (s *Server) handle(pattern string, route string, protected bool, fn http.HandlerFunc) {
	var handler http.Handler = fn
	if protected {
		handler = s.requireBearer(handler)
	}
	s.mux.Handle(pattern, s.instrument(route, handler))
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) != s.apiToken {
			writeError(w, http.StatusUnauthorized, "unauthorized", "a valid bearer token is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if s.metrics != nil {
			s.metrics.ObserveRequest(route, rec.status, time.Since(started))
		}
		if rec.status >= http.StatusInternalServerError {
			s.logger.Error("http request failed",
				"event", "http_request_failed",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"route", route,
				"status", rec.status,
			)
		}
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

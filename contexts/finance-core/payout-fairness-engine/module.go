package payoutfairnessengine

import (
	"log/slog"
	"time"

	httpadapter "oddlybrilliant/contexts/finance-core/payout-fairness-engine/adapters/http"
	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/adapters/memory"
	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/application"
	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/fairness"
	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
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

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Data:                               deps.Data,
		Reputation:                         deps.Reputation,
		Audits:                             deps.Audits,
		Cache:                              deps.Cache,
		Metrics:                            deps.Metrics,
		Clock:                              deps.Clock,
		IDGen:                              deps.IDGen,
		Thresholds:                         deps.Thresholds,
		CacheTTL:                           deps.CacheTTL,
		UpstreamTimeout:                    deps.UpstreamTimeout,
		RetryAttempts:                      deps.RetryAttempts,
		RetryBackoff:                       deps.RetryBackoff,
		DisableAuditCompletedEventEmission: deps.DisableAuditCompletedEventEmission,
		Logger:                             deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Audits: service,
			Logger: deps.Logger,
		},
		Service: service,
	}
}

// NewInMemoryModule wires every port to a single in-memory store. The cache
// is left nil so each audit recomputes.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Data:          store,
		Reputation:    store,
		Audits:        store,
		Clock:         store,
		IDGen:         store,
		RetryAttempts: 1,
		Logger:        logger,
	})
	module.Store = store
	return module
}

package evidenceintegrityservice

import (
	"log/slog"
	"time"

	httpadapter "oddlybrilliant/contexts/finance-core/evidence-integrity-service/adapters/http"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/adapters/memory"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/adapters/render"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/application"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Packager application.Packager
	Verifier application.Verifier
	Store    *memory.Store
}

type Dependencies struct {
	Summaries                   ports.ChallengeSummaryReader
	Payouts                     ports.PayoutReader
	Events                      ports.EventReader
	Files                       ports.FileHashReader
	Audits                      ports.AuditSnapshotReader
	Blobs                       ports.BlobStore
	Artifacts                   ports.ArtifactRepository
	Renderer                    ports.Renderer
	Metrics                     ports.Metrics
	Clock                       ports.Clock
	IDGen                       ports.IDGenerator
	VerifyBaseURL               string
	UpstreamTimeout             time.Duration
	RetryAttempts               int
	RetryBackoff                time.Duration
	DisablePackageEventEmission bool
	Logger                      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	renderer := deps.Renderer
	if renderer == nil {
		renderer = render.PDFRenderer{Author: "evidence-integrity-service"}
	}
	upstream := application.UpstreamPolicy{
		Timeout:       deps.UpstreamTimeout,
		RetryAttempts: deps.RetryAttempts,
		RetryBackoff:  deps.RetryBackoff,
	}
	packager := application.Packager{
		Summaries:                   deps.Summaries,
		Payouts:                     deps.Payouts,
		Events:                      deps.Events,
		Files:                       deps.Files,
		Audits:                      deps.Audits,
		Blobs:                       deps.Blobs,
		Artifacts:                   deps.Artifacts,
		Renderer:                    renderer,
		Metrics:                     deps.Metrics,
		Clock:                       deps.Clock,
		IDGen:                       deps.IDGen,
		VerifyBaseURL:               deps.VerifyBaseURL,
		Upstream:                    upstream,
		DisablePackageEventEmission: deps.DisablePackageEventEmission,
		Logger:                      deps.Logger,
	}
	verifier := application.Verifier{
		Artifacts: deps.Artifacts,
		Blobs:     deps.Blobs,
		Metrics:   deps.Metrics,
		Upstream:  upstream,
		Logger:    deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Packages: packager,
			Verifier: verifier,
			Logger:   deps.Logger,
		},
		Packager: packager,
		Verifier: verifier,
	}
}

// NewInMemoryModule backs every port with one in-memory store and renders
// JSON so tests can inspect package content.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Summaries:     store,
		Events:        store,
		Files:         store,
		Audits:        store,
		Blobs:         store,
		Artifacts:     store,
		Renderer:      render.JSONRenderer{},
		Clock:         store,
		IDGen:         store,
		RetryAttempts: 1,
		Logger:        logger,
	})
	module.Store = store
	return module
}

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	evidenceintegrity "oddlybrilliant/contexts/finance-core/evidence-integrity-service"
	evidenceblob "oddlybrilliant/contexts/finance-core/evidence-integrity-service/adapters/blob"
	evidencepostgres "oddlybrilliant/contexts/finance-core/evidence-integrity-service/adapters/postgres"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/adapters/render"
	evidenceworkers "oddlybrilliant/contexts/finance-core/evidence-integrity-service/application/workers"
	evidenceports "oddlybrilliant/contexts/finance-core/evidence-integrity-service/ports"
	payoutfairness "oddlybrilliant/contexts/finance-core/payout-fairness-engine"
	fairnesspostgres "oddlybrilliant/contexts/finance-core/payout-fairness-engine/adapters/postgres"
	fairnessworkers "oddlybrilliant/contexts/finance-core/payout-fairness-engine/application/workers"
	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/fairness"
	"oddlybrilliant/internal/platform/blobstore"
	"oddlybrilliant/internal/platform/config"
	"oddlybrilliant/internal/platform/db"
	"oddlybrilliant/internal/platform/httpserver"
	"oddlybrilliant/internal/platform/logging"
	"oddlybrilliant/internal/platform/messaging"
	"oddlybrilliant/internal/platform/metrics"
	"oddlybrilliant/internal/shared/auditcache"

	"github.com/redis/go-redis/v9"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const fairnessServiceID = "payout-fairness-engine"

type APIApp struct {
	server  *httpserver.Server
	closers []io.Closer
	logger  *slog.Logger
}

type WorkerApp struct {
	fairnessRelay fairnessworkers.OutboxRelay
	evidenceRelay evidenceworkers.OutboxRelay
	distribution  fairnessworkers.DistributionCreatedConsumer
	relayEnabled  bool
	pollInterval  time.Duration
	closers       []io.Closer
	logger        *slog.Logger
}

// runtime is what both processes share: connections plus the two modules.
type runtime struct {
	cfg          config.Config
	logger       *slog.Logger
	postgres     *db.Postgres
	fairnessRepo *fairnesspostgres.Repository
	evidenceRepo *evidencepostgres.Repository
	fairness     payoutfairness.Module
	evidence     evidenceintegrity.Module
	closers      []io.Closer
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	recorder := metrics.New()
	rt, err := buildRuntime(cfg, "api", recorder)
	if err != nil {
		return nil, err
	}

	server := httpserver.New(rt.fairness, rt.evidence, rt.logger, httpserver.Options{
		Addr:                  normalizeAddr(cfg.HTTPPort),
		APIToken:              cfg.APIToken,
		EvidenceRatePerMinute: cfg.EvidenceRatePerMinute,
		Metrics:               recorder,
	})
	return &APIApp{
		server:  server,
		closers: rt.closers,
		logger:  rt.logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	rt, err := buildRuntime(cfg, "worker", nil)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, rt.logger)
	if err != nil {
		closeAll(rt.closers, rt.logger)
		return nil, err
	}

	return &WorkerApp{
		fairnessRelay: fairnessworkers.OutboxRelay{
			Outbox:    rt.fairnessRepo,
			Publisher: kafka,
			Clock:     fairnesspostgres.SystemClock{},
			BatchSize: 100,
			Logger:    rt.logger,
		},
		evidenceRelay: evidenceworkers.OutboxRelay{
			Outbox:    rt.evidenceRepo,
			Publisher: kafka,
			Clock:     evidencepostgres.SystemClock{},
			BatchSize: 100,
			Logger:    rt.logger,
		},
		distribution: fairnessworkers.DistributionCreatedConsumer{
			Subscriber: kafka,
			Dedup:      rt.fairnessRepo,
			Audits:     rt.fairness.Service,
			Clock:      fairnesspostgres.SystemClock{},
			DedupTTL:   7 * 24 * time.Hour,
			Disabled:   !cfg.EnableAuditOnDistribution,
			Logger:     rt.logger,
		},
		relayEnabled: cfg.EnableOutboxRelay,
		pollInterval: 2 * time.Second,
		closers:      rt.closers,
		logger:       rt.logger,
	}, nil
}

func buildRuntime(cfg config.Config, process string, recorder *metrics.Recorder) (*runtime, error) {
	logger := logging.New(cfg.LogFormat, cfg.LogLevel, nil).With("service", cfg.ServiceName, "process", process)
	slog.SetDefault(logger)
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	thresholds := fairness.DefaultThresholds()
	if err := config.LoadYAMLOverlay(cfg.FairnessThresholdsFile, &thresholds); err != nil {
		return nil, err
	}

	pg, err := db.Connect(cfg.PostgresDSN, db.DefaultPoolOptions())
	if err != nil {
		return nil, err
	}
	rt := &runtime{
		cfg:          cfg,
		logger:       logger,
		postgres:     pg,
		fairnessRepo: fairnesspostgres.NewRepository(pg.DB, logger),
		evidenceRepo: evidencepostgres.NewRepository(pg.DB, logger),
		closers:      []io.Closer{pg},
	}
	fail := func(err error) (*runtime, error) {
		closeAll(rt.closers, logger)
		return nil, err
	}

	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := rt.fairnessRepo.Migrate(ctx); err != nil {
			return fail(fmt.Errorf("migrate fairness tables: %w", err))
		}
		if err := rt.evidenceRepo.Migrate(ctx); err != nil {
			return fail(fmt.Errorf("migrate evidence tables: %w", err))
		}
		if cfg.CacheBackend == "postgres" {
			if err := auditcache.NewGormStore(pg.DB).Migrate(ctx); err != nil {
				return fail(fmt.Errorf("migrate audit cache table: %w", err))
			}
		}
	}

	cache, err := rt.buildCache(recorder)
	if err != nil {
		return fail(err)
	}
	blobs, err := rt.buildBlobStore()
	if err != nil {
		return fail(err)
	}
	rt.closers = append(rt.closers, blobs)

	fairnessDeps := payoutfairness.Dependencies{
		Data:            rt.fairnessRepo,
		Reputation:      rt.fairnessRepo,
		Audits:          rt.fairnessRepo,
		Cache:           cache,
		Clock:           fairnesspostgres.SystemClock{},
		IDGen:           fairnesspostgres.UUIDGenerator{},
		Thresholds:      thresholds,
		CacheTTL:        cfg.CacheTTL,
		UpstreamTimeout: cfg.UpstreamTimeout,
		RetryAttempts:   cfg.UpstreamRetryAttempts,
		RetryBackoff:    cfg.UpstreamRetryBackoff,
		Logger:          logger,
	}
	evidenceDeps := evidenceintegrity.Dependencies{
		Summaries:       rt.evidenceRepo,
		Events:          rt.evidenceRepo,
		Files:           rt.evidenceRepo,
		Blobs:           evidenceblob.Store{Backend: blobs},
		Artifacts:       rt.evidenceRepo,
		Renderer:        buildRenderer(cfg),
		Clock:           evidencepostgres.SystemClock{},
		IDGen:           evidencepostgres.UUIDGenerator{},
		VerifyBaseURL:   cfg.EvidenceVerifyBaseURL,
		UpstreamTimeout: cfg.UpstreamTimeout,
		RetryAttempts:   cfg.UpstreamRetryAttempts,
		RetryBackoff:    cfg.UpstreamRetryBackoff,
		Logger:          logger,
	}
	// A nil *Recorder stored in an interface is not nil, so only assign a
	// real one.
	if recorder != nil {
		fairnessDeps.Metrics = recorder
		evidenceDeps.Metrics = recorder
	}

	rt.fairness = payoutfairness.NewModule(fairnessDeps)
	evidenceDeps.Audits = fairnessSnapshots{audits: rt.fairness.Service}
	evidenceDeps.Payouts = fairnessPayouts{distributions: rt.fairness.Service}
	rt.evidence = evidenceintegrity.NewModule(evidenceDeps)
	return rt, nil
}

// buildCache picks the audit cache backend. An unreachable Redis degrades to
// the in-memory store instead of failing startup.
func (rt *runtime) buildCache(recorder *metrics.Recorder) (*auditcache.Cache, error) {
	opts := auditcache.Options{Logger: rt.logger}
	if recorder != nil {
		opts.Observer = recorder
	}

	var store auditcache.Store
	switch rt.cfg.CacheBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: rt.cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), rt.cfg.UpstreamTimeout)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			rt.logger.Warn("redis unreachable, using in-memory audit cache",
				"event", "bootstrap_cache_fallback",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"redis_addr", rt.cfg.RedisAddr,
				"error", err.Error(),
			)
			_ = client.Close()
			store = auditcache.NewMemoryStore()
			break
		}
		rt.closers = append(rt.closers, client)
		store = auditcache.NewRedisStore(client, "audit-cache")
	case "postgres":
		store = auditcache.NewGormStore(rt.postgres.DB)
	case "memory":
		store = auditcache.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", rt.cfg.CacheBackend)
	}
	return auditcache.New(store, fairnessServiceID, opts), nil
}

func (rt *runtime) buildBlobStore() (blobstore.Store, error) {
	switch rt.cfg.BlobBackend {
	case "gcs":
		// The client keeps ctx for token refresh, so it must outlive startup.
		return blobstore.OpenGCS(context.Background(), rt.cfg.GCSBucket, rt.cfg.GCSCredentialsFile)
	case "badger":
		return blobstore.OpenBadger(blobstore.BadgerConfig{
			Path:       rt.cfg.BadgerPath,
			GCInterval: 5 * time.Minute,
			Logger:     rt.logger,
		})
	default:
		return nil, fmt.Errorf("unsupported blob backend %q", rt.cfg.BlobBackend)
	}
}

func buildRenderer(cfg config.Config) evidenceports.Renderer {
	if cfg.EvidenceFormat == "json" {
		return render.JSONRenderer{}
	}
	return render.PDFRenderer{Author: cfg.ServiceName}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (a *APIApp) Close() error {
	return closeAll(a.closers, a.logger)
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.distribution.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"outbox_relay_enabled", w.relayEnabled,
	)

	for {
		if w.relayEnabled {
			if err := w.fairnessRelay.RunOnce(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			if err := w.evidenceRelay.RunOnce(ctx); err != nil && ctx.Err() == nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	return closeAll(w.closers, w.logger)
}

// closeAll closes in reverse construction order and returns the first error.
func closeAll(closers []io.Closer, logger *slog.Logger) error {
	var first error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			if first == nil {
				first = err
			}
			if logger != nil {
				logger.Warn("shutdown close failed",
					"event", "bootstrap_close_failed",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
			}
		}
	}
	return first
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

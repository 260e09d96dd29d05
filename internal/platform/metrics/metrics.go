package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "payout_fairness"

// Recorder holds every collector the process exports. Each Recorder owns its
// registry so tests can build as many as they like.
type Recorder struct {
	Registry *prometheus.Registry

	auditsTotal       *prometheus.CounterVec
	auditDuration     *prometheus.HistogramVec
	auditGini         prometheus.Histogram
	auditRedFlags     prometheus.Histogram
	packagesTotal     *prometheus.CounterVec
	packageBytes      *prometheus.HistogramVec
	verificationTotal *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		Registry: reg,
		auditsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "runs_total",
			Help:      "Fairness audits by outcome",
		}, []string{"outcome"}),
		auditDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "duration_seconds",
			Help:      "Fairness audit latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"outcome"}),
		auditGini: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "gini_coefficient",
			Help:      "Distribution of computed Gini coefficients",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),
		auditRedFlags: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "red_flags",
			Help:      "Red flags raised per audit",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		packagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evidence",
			Name:      "packages_total",
			Help:      "Evidence packages by kind and status",
		}, []string{"kind", "status"}),
		packageBytes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evidence",
			Name:      "package_bytes",
			Help:      "Size of committed evidence packages",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"kind"}),
		verificationTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evidence",
			Name:      "verifications_total",
			Help:      "Evidence verifications by result",
		}, []string{"result"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_cache_lookups_total",
			Help: "Audit cache lookups by service and result",
		}, []string{"service", "result"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (r *Recorder) ObserveAudit(outcome string, duration time.Duration, gini float64, redFlags int) {
	r.auditsTotal.WithLabelValues(outcome).Inc()
	r.auditDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if outcome != "failed" {
		r.auditGini.Observe(gini)
		r.auditRedFlags.Observe(float64(redFlags))
	}
}

func (r *Recorder) ObservePackage(kind string, status string, sizeBytes int64) {
	r.packagesTotal.WithLabelValues(kind, status).Inc()
	if sizeBytes > 0 {
		r.packageBytes.WithLabelValues(kind).Observe(float64(sizeBytes))
	}
}

func (r *Recorder) ObserveVerification(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	r.verificationTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveCacheLookup(service string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(service, result).Inc()
}

func (r *Recorder) ObserveRequest(route string, status int, duration time.Duration) {
	r.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsByLabel(t *testing.T) {
	rec := New()

	rec.ObserveAudit("completed", 20*time.Millisecond, 0.12, 0)
	rec.ObserveAudit("failed", time.Millisecond, 0, 0)
	rec.ObservePackage("PAYOUT_AUDIT", "generated", 4096)
	rec.ObserveVerification(true)
	rec.ObserveVerification(false)
	rec.ObserveVerification(false)
	rec.ObserveCacheLookup("payout-fairness-engine", true)
	rec.ObserveRequest("verify_evidence", 200, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.auditsTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.auditsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.packagesTotal.WithLabelValues("PAYOUT_AUDIT", "generated")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.verificationTotal.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.cacheLookups.WithLabelValues("payout-fairness-engine", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.httpRequests.WithLabelValues("verify_evidence", "200")))

	families, err := rec.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRecordersDoNotShareRegistries(t *testing.T) {
	first := New()
	second := New()
	first.ObserveVerification(true)

	assert.Equal(t, 0.0, testutil.ToFloat64(second.verificationTotal.WithLabelValues("valid")))
}

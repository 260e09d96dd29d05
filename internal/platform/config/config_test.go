package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("BLOB_BACKEND", "")
	t.Setenv("EVIDENCE_FORMAT", "")
	t.Setenv("UPSTREAM_RETRY_ATTEMPTS", "")
	t.Setenv("UPSTREAM_TIMEOUT", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("EVIDENCE_VERIFY_BASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, "badger", cfg.BlobBackend)
	assert.Equal(t, "pdf", cfg.EvidenceFormat)
	assert.Equal(t, "http://localhost:8080", cfg.EvidenceVerifyBaseURL)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 3, cfg.UpstreamRetryAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.UpstreamRetryBackoff)
	assert.True(t, cfg.EnableAuditOnDistribution)
}

func TestLoadOverridesAndValidation(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("UPSTREAM_TIMEOUT", "750ms")
	t.Setenv("UPSTREAM_RETRY_ATTEMPTS", "5")
	t.Setenv("ENABLE_AUDIT_ON_DISTRIBUTION", "off")
	t.Setenv("BLOB_BACKEND", "badger")
	t.Setenv("EVIDENCE_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, 750*time.Millisecond, cfg.UpstreamTimeout)
	assert.Equal(t, 5, cfg.UpstreamRetryAttempts)
	assert.False(t, cfg.EnableAuditOnDistribution)

	t.Setenv("BLOB_BACKEND", "gcs")
	t.Setenv("GCS_BUCKET", "")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("BLOB_BACKEND", "badger")
	t.Setenv("EVIDENCE_FORMAT", "docx")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadYAMLOverlayKeepsUnsetKeys(t *testing.T) {
	type limits struct {
		Share  float64       `yaml:"share"`
		Window time.Duration `yaml:"window"`
		Count  int           `yaml:"count"`
	}
	path := filepath.Join(t.TempDir(), "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte("share: 0.6\nwindow: 2h\n"), 0o600))

	out := limits{Share: 0.7, Window: time.Hour, Count: 3}
	require.NoError(t, LoadYAMLOverlay(path, &out))
	assert.Equal(t, limits{Share: 0.6, Window: 2 * time.Hour, Count: 3}, out)

	require.NoError(t, LoadYAMLOverlay("", &out))
	require.Error(t, LoadYAMLOverlay(filepath.Join(t.TempDir(), "missing.yaml"), &out))
}

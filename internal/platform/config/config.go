package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	AutoMigrate  bool
	KafkaBrokers []string

	LogFormat string
	LogLevel  string

	CacheBackend string
	RedisAddr    string
	CacheTTL     time.Duration

	BlobBackend        string
	BadgerPath         string
	GCSBucket          string
	GCSCredentialsFile string

	EvidenceFormat        string
	EvidenceVerifyBaseURL string
	EvidenceRatePerMinute int

	UpstreamTimeout       time.Duration
	UpstreamRetryAttempts int
	UpstreamRetryBackoff  time.Duration

	FairnessThresholdsFile string
	APIToken               string

	EnableAuditOnDistribution bool
	EnableOutboxRelay         bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "payout-fairness"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	cfg := Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		AutoMigrate:  envBool("DB_AUTO_MIGRATE", false),
		KafkaBrokers: brokers,

		LogFormat: envString("LOG_FORMAT", "json"),
		LogLevel:  envString("LOG_LEVEL", "info"),

		CacheBackend: strings.ToLower(envString("CACHE_BACKEND", "memory")),
		RedisAddr:    envString("REDIS_ADDR", "localhost:6379"),
		CacheTTL:     envDuration("CACHE_TTL", 15*time.Minute),

		BlobBackend:        strings.ToLower(envString("BLOB_BACKEND", "badger")),
		BadgerPath:         envString("BADGER_PATH", "./data/evidence"),
		GCSBucket:          os.Getenv("GCS_BUCKET"),
		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),

		EvidenceFormat:        strings.ToLower(envString("EVIDENCE_FORMAT", "pdf")),
		EvidenceVerifyBaseURL: envString("EVIDENCE_VERIFY_BASE_URL", "http://localhost:"+port),
		EvidenceRatePerMinute: envInt("EVIDENCE_RATE_PER_MINUTE", 30),

		UpstreamTimeout:       envDuration("UPSTREAM_TIMEOUT", 5*time.Second),
		UpstreamRetryAttempts: envInt("UPSTREAM_RETRY_ATTEMPTS", 3),
		UpstreamRetryBackoff:  envDuration("UPSTREAM_RETRY_BACKOFF", 200*time.Millisecond),

		FairnessThresholdsFile: os.Getenv("FAIRNESS_THRESHOLDS_FILE"),
		APIToken:               os.Getenv("API_TOKEN"),

		EnableAuditOnDistribution: envBool("ENABLE_AUDIT_ON_DISTRIBUTION", true),
		EnableOutboxRelay:         envBool("ENABLE_OUTBOX_RELAY", true),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.CacheBackend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", c.CacheBackend)
	}
	switch c.BlobBackend {
	case "badger":
	case "gcs":
		if strings.TrimSpace(c.GCSBucket) == "" {
			return errors.New("GCS_BUCKET is required when BLOB_BACKEND=gcs")
		}
	default:
		return fmt.Errorf("unsupported BLOB_BACKEND %q", c.BlobBackend)
	}
	switch c.EvidenceFormat {
	case "pdf", "json":
	default:
		return fmt.Errorf("unsupported EVIDENCE_FORMAT %q", c.EvidenceFormat)
	}
	if c.UpstreamRetryAttempts < 1 {
		return errors.New("UPSTREAM_RETRY_ATTEMPTS must be at least 1")
	}
	return nil
}

// LoadYAMLOverlay decodes the YAML file at path onto out. Keys absent from the
// file keep the values out already holds. An empty path is a no-op.
func LoadYAMLOverlay(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read overlay %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode overlay %s: %w", path, err)
	}
	return nil
}

func envString(name string, fallback string) string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return raw
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

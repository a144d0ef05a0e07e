package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/casechat-backend/internal/modules/chat"
	"github.com/yungbote/casechat-backend/internal/modules/indexing"
	"github.com/yungbote/casechat-backend/internal/modules/ingestion"
	"github.com/yungbote/casechat-backend/internal/observability"
	"github.com/yungbote/casechat-backend/internal/platform/db"
	"github.com/yungbote/casechat-backend/internal/platform/envutil"
	"github.com/yungbote/casechat-backend/internal/platform/gcp"
	"github.com/yungbote/casechat-backend/internal/platform/openai"
	"github.com/yungbote/casechat-backend/internal/platform/qdrant"
	"github.com/yungbote/casechat-backend/internal/platform/redisx"
)

const defaultSystemPrompt = "You are an assistant for legal case files. Answer using the case document " +
	"excerpts provided in the conversation. If the excerpts do not contain the answer, say so plainly " +
	"instead of guessing. Quote case numbers, dates and names exactly as they appear."

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type BlobProvider string

const (
	BlobProviderGCS    BlobProvider = "gcs"
	BlobProviderRedis  BlobProvider = "redis"
	BlobProviderMemory BlobProvider = "memory"
)

type StorageConfig struct {
	Provider     BlobProvider            `yaml:"provider"`
	Bucket       string                  `yaml:"bucket"`
	ObjectMode   string                  `yaml:"object_storage_mode"`
	EmulatorHost string                  `yaml:"emulator_host"`
	Object       gcp.ObjectStorageConfig `yaml:"-"`
}

type SessionConfig struct {
	KeyPrefix    string        `yaml:"key_prefix"`
	SystemPrompt string        `yaml:"system_prompt"`
	LockEnabled  bool          `yaml:"lock_enabled"`
	LockTTL      time.Duration `yaml:"lock_ttl"`
	LockWait     time.Duration `yaml:"lock_wait"`
}

type IndexConfig struct {
	PollInterval time.Duration          `yaml:"poll_interval"`
	Trigger      indexing.TriggerConfig `yaml:"trigger"`
	Worker       indexing.WorkerConfig  `yaml:"worker"`
	// Disables the in-process worker, e.g. when a separate deployment runs it.
	WorkerDisabled bool `yaml:"worker_disabled"`
}

// Config is everything the process needs, built once at startup.
type Config struct {
	LogMode     string `yaml:"log_mode"`
	ServiceName string `yaml:"service_name"`

	HTTP      HTTPConfig               `yaml:"http"`
	Storage   StorageConfig            `yaml:"storage"`
	Document  gcp.DocumentConfig       `yaml:"document"`
	OpenAI    openai.Config            `yaml:"openai"`
	Qdrant    qdrant.Config            `yaml:"qdrant"`
	Redis     redisx.Config            `yaml:"redis"`
	DB        db.Config                `yaml:"db"`
	Session   SessionConfig            `yaml:"session"`
	Chat      chat.OrchestratorConfig  `yaml:"chat"`
	Ingestion ingestion.Config         `yaml:"ingestion"`
	Index     IndexConfig              `yaml:"index"`
	Otel      observability.OtelConfig `yaml:"otel"`
}

// LoadConfig reads the environment, then overlays the YAML file named by
// CASECHAT_CONFIG when set. Secrets are only read from the environment.
func LoadConfig() (Config, error) {
	cfg := configFromEnv()
	if path := strings.TrimSpace(os.Getenv("CASECHAT_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read CASECHAT_CONFIG %q: %w", path, err)
		}
		if err := overlayYAML(&cfg, raw); err != nil {
			return Config{}, fmt.Errorf("parse CASECHAT_CONFIG %q: %w", path, err)
		}
	}
	if err := cfg.finish(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overlayYAML(cfg *Config, raw []byte) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	return yaml.Unmarshal(raw, cfg)
}

func configFromEnv() Config {
	var temperature *float64
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TEMPERATURE")); raw != "" {
		t := envutil.Float("OPENAI_TEMPERATURE", 0)
		temperature = &t
	}
	return Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "casechat"),
		HTTP: HTTPConfig{
			Addr:            envutil.String("HTTP_ADDR", ":8080"),
			AllowedOrigins:  splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
			ShutdownTimeout: envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Storage: StorageConfig{
			Provider:     BlobProvider(strings.ToLower(envutil.String("BLOB_PROVIDER", string(BlobProviderGCS)))),
			Bucket:       envutil.String("CASE_GCS_BUCKET_NAME", ""),
			ObjectMode:   envutil.String("OBJECT_STORAGE_MODE", ""),
			EmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", ""),
		},
		Document: gcp.DocumentConfig{
			ProjectID:        envutil.String("DOCUMENTAI_PROJECT_ID", envutil.String("GOOGLE_CLOUD_PROJECT", "")),
			Location:         envutil.String("DOCUMENTAI_LOCATION", "us"),
			ProcessorID:      envutil.String("DOCUMENTAI_PROCESSOR_ID", ""),
			ProcessorVersion: envutil.String("DOCUMENTAI_PROCESSOR_VERSION", ""),
		},
		OpenAI: openai.Config{
			APIKey:      envutil.String("OPENAI_API_KEY", ""),
			BaseURL:     envutil.String("OPENAI_BASE_URL", ""),
			Model:       envutil.String("OPENAI_MODEL", ""),
			EmbedModel:  envutil.String("OPENAI_EMBED_MODEL", ""),
			MaxRetries:  envutil.Int("OPENAI_MAX_RETRIES", 3),
			Timeout:     envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 60*time.Second),
			Temperature: temperature,
		},
		Qdrant: qdrant.Config{
			Host:       envutil.String("QDRANT_HOST", ""),
			Port:       envutil.Int("QDRANT_PORT", 6334),
			APIKey:     envutil.String("QDRANT_API_KEY", ""),
			UseTLS:     envutil.Bool("QDRANT_USE_TLS", false),
			Collection: envutil.String("QDRANT_COLLECTION", "case_chunks"),
			VectorDim:  envutil.Int("QDRANT_VECTOR_DIM", 1536),
		},
		Redis: redisx.Config{
			Addr:      envutil.String("REDIS_ADDR", ""),
			Password:  envutil.String("REDIS_PASSWORD", ""),
			DB:        envutil.Int("REDIS_DB", 0),
			KeyPrefix: envutil.String("REDIS_KEY_PREFIX", "casechat:"),
		},
		DB: db.Config{
			Driver:   envutil.String("DB_DRIVER", db.DriverPostgres),
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_NAME", "casechat"),
			Path:     envutil.String("SQLITE_PATH", ""),
		},
		Session: SessionConfig{
			KeyPrefix:    envutil.String("SESSION_KEY_PREFIX", "sessions/"),
			SystemPrompt: envutil.String("SYSTEM_PROMPT", defaultSystemPrompt),
			LockEnabled:  envutil.Bool("SESSION_LOCK_ENABLED", false),
			LockTTL:      envutil.Seconds("SESSION_LOCK_TTL_SECONDS", 2*time.Minute),
			LockWait:     envutil.Seconds("SESSION_LOCK_WAIT_SECONDS", 0),
		},
		Chat: chat.OrchestratorConfig{
			TopK: envutil.Int("RETRIEVAL_TOP_K", 5),
		},
		Ingestion: ingestion.Config{
			ChunkSize:    envutil.Int("CHUNK_SIZE", 2000),
			ChunkOverlap: envutil.Int("CHUNK_OVERLAP", 200),
			Concurrency:  envutil.Int("INGEST_CONCURRENCY", 4),
		},
		Index: IndexConfig{
			PollInterval: envutil.Seconds("INDEX_POLL_INTERVAL_SECONDS", 5*time.Second),
			Trigger: indexing.TriggerConfig{
				PerMinute: envutil.Float("INDEX_TRIGGER_PER_MINUTE", 6),
				Burst:     envutil.Int("INDEX_TRIGGER_BURST", 2),
			},
			Worker: indexing.WorkerConfig{
				Concurrency:  envutil.Int("INDEX_WORKER_CONCURRENCY", 1),
				PollEvery:    envutil.Seconds("INDEX_WORKER_POLL_SECONDS", 2*time.Second),
				StaleRunning: envutil.Seconds("INDEX_STALE_RUNNING_SECONDS", 30*time.Minute),
				BatchSize:    envutil.Int("INDEX_BATCH_SIZE", 32),
			},
			WorkerDisabled: envutil.Bool("INDEX_WORKER_DISABLED", false),
		},
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("APP_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLE_RATIO", 1),
		},
	}
}

// finish resolves derived settings and rejects configs no component could
// start with.
func (c *Config) finish() error {
	if c.Otel.ServiceName == "" {
		c.Otel.ServiceName = c.ServiceName
	}
	if c.Index.PollInterval <= 0 {
		return errors.New("INDEX_POLL_INTERVAL_SECONDS must be positive")
	}
	if c.Chat.TopK < 1 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be positive, got %d", c.Chat.TopK)
	}
	switch c.Storage.Provider {
	case BlobProviderGCS:
		obj, err := gcp.ResolveObjectStorageConfig(c.Storage.ObjectMode, c.Storage.EmulatorHost)
		if err != nil {
			return err
		}
		c.Storage.Object = obj
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			return errors.New("CASE_GCS_BUCKET_NAME is required when BLOB_PROVIDER=gcs")
		}
	case BlobProviderRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("REDIS_ADDR is required when BLOB_PROVIDER=redis")
		}
	case BlobProviderMemory:
	default:
		return fmt.Errorf("unsupported BLOB_PROVIDER %q (allowed: %q, %q, %q)", c.Storage.Provider, BlobProviderGCS, BlobProviderRedis, BlobProviderMemory)
	}
	if c.Session.LockEnabled && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("SESSION_LOCK_ENABLED requires REDIS_ADDR")
	}
	return nil
}

// NeedsRedis reports whether any enabled component talks to Redis.
func (c Config) NeedsRedis() bool {
	return c.Storage.Provider == BlobProviderRedis || c.Session.LockEnabled
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

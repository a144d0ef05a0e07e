package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/casechat-backend/internal/platform/gcp"
)

func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CASECHAT_CONFIG", "")
	t.Setenv("BLOB_PROVIDER", "gcs")
	t.Setenv("CASE_GCS_BUCKET_NAME", "case-bucket")
	t.Setenv("OBJECT_STORAGE_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "")
	t.Setenv("SESSION_LOCK_ENABLED", "")
	t.Setenv("REDIS_ADDR", "")
}

func TestLoadConfigDefaults(t *testing.T) {
	setMinimalEnv(t)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Ingestion.ChunkSize != 2000 || cfg.Ingestion.ChunkOverlap != 200 {
		t.Fatalf("chunking: want=2000/200 got=%d/%d", cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap)
	}
	if cfg.Index.PollInterval != 5*time.Second {
		t.Fatalf("poll interval: want=5s got=%s", cfg.Index.PollInterval)
	}
	if cfg.Chat.TopK != 5 {
		t.Fatalf("top k: want=5 got=%d", cfg.Chat.TopK)
	}
	if cfg.Storage.Object.Mode != gcp.ObjectStorageModeGCS {
		t.Fatalf("object mode: want=%q got=%q", gcp.ObjectStorageModeGCS, cfg.Storage.Object.Mode)
	}
	if cfg.Otel.ServiceName != "casechat" {
		t.Fatalf("otel service: want=%q got=%q", "casechat", cfg.Otel.ServiceName)
	}
	if cfg.Session.LockEnabled {
		t.Fatalf("session lock should default off")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("INDEX_POLL_INTERVAL_SECONDS", "2")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com ,")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443")
	t.Setenv("OPENAI_TEMPERATURE", "0.2")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Index.PollInterval != 2*time.Second {
		t.Fatalf("poll interval: want=2s got=%s", cfg.Index.PollInterval)
	}
	if cfg.Ingestion.ChunkSize != 500 {
		t.Fatalf("chunk size: want=500 got=%d", cfg.Ingestion.ChunkSize)
	}
	if len(cfg.HTTP.AllowedOrigins) != 2 || cfg.HTTP.AllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("origins: got=%v", cfg.HTTP.AllowedOrigins)
	}
	if !cfg.Storage.Object.IsEmulatorMode() || !cfg.Storage.Object.CompatibilityFallback {
		t.Fatalf("emulator host should select emulator mode: %+v", cfg.Storage.Object)
	}
	if cfg.OpenAI.Temperature == nil || *cfg.OpenAI.Temperature != 0.2 {
		t.Fatalf("temperature: got=%v", cfg.OpenAI.Temperature)
	}
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	path := filepath.Join(t.TempDir(), "casechat.yaml")
	body := `
http:
  addr: ":9090"
storage:
  provider: memory
openai:
  model: gpt-4.1
index:
  poll_interval: 3s
  trigger:
    per_minute: 0
    burst: 5
chat:
  top_k: 8
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("CASECHAT_CONFIG", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" || cfg.Storage.Provider != BlobProviderMemory {
		t.Fatalf("overlay: addr=%q provider=%q", cfg.HTTP.Addr, cfg.Storage.Provider)
	}
	if cfg.Index.PollInterval != 3*time.Second || cfg.Index.Trigger.Burst != 5 || cfg.Chat.TopK != 8 {
		t.Fatalf("overlay: poll=%s burst=%d topk=%d", cfg.Index.PollInterval, cfg.Index.Trigger.Burst, cfg.Chat.TopK)
	}
	if cfg.OpenAI.Model != "gpt-4.1" || cfg.OpenAI.APIKey != "sk-from-env" {
		t.Fatalf("openai: model=%q key kept=%v", cfg.OpenAI.Model, cfg.OpenAI.APIKey == "sk-from-env")
	}
	if cfg.Ingestion.ChunkSize != 2000 {
		t.Fatalf("untouched field changed: chunk size=%d", cfg.Ingestion.ChunkSize)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing bucket", map[string]string{"CASE_GCS_BUCKET_NAME": ""}, "CASE_GCS_BUCKET_NAME"},
		{"bad object mode", map[string]string{"OBJECT_STORAGE_MODE": "s3"}, "OBJECT_STORAGE_MODE"},
		{"unknown provider", map[string]string{"BLOB_PROVIDER": "ftp"}, "BLOB_PROVIDER"},
		{"redis provider without addr", map[string]string{"BLOB_PROVIDER": "redis"}, "REDIS_ADDR"},
		{"lock without redis", map[string]string{"SESSION_LOCK_ENABLED": "true"}, "SESSION_LOCK_ENABLED"},
		{"zero top k", map[string]string{"RETRIEVAL_TOP_K": "0"}, "RETRIEVAL_TOP_K"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setMinimalEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error mentioning %q, got=%v", tc.want, err)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("CASECHAT_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("want error for missing config file")
	}
}

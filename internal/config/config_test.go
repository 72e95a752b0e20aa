package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":5000" || cfg.Storage.Backend != "memory" || cfg.Storage.HistoryLimit != 50 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Server.MaxUploadBytes != 25<<20 {
		t.Fatalf("expected 25MiB upload cap, got %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected info logging, got %q", cfg.Logging.Level)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "phantomx.yaml")
	yaml := `
server:
  addr: ":9000"
  write_timeout: 2m
auth:
  clients:
    - id: web
      api_keys: ["k1"]
speech:
  provider: Whisper
  whisper_url: http://localhost:8387
storage:
  backend: redis
  redis_addr: localhost:6379
events:
  enabled: true
  file_path: /tmp/events.jsonl
  webhook_headers:
    X-Token: abc
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PHANTOMX_SERVER_ADDR", ":7000")
	t.Setenv("PHANTOMX_STORAGE_HISTORY_LIMIT", "20")

	cfg, err := Load(Options{ConfigFile: path})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Fatalf("expected env override, got %q", cfg.Server.Addr)
	}
	if cfg.Server.WriteTimeout != 2*time.Minute {
		t.Fatalf("expected 2m write timeout, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Speech.Provider != "whisper" {
		t.Fatalf("expected normalised provider, got %q", cfg.Speech.Provider)
	}
	if cfg.Storage.HistoryLimit != 20 || cfg.Storage.RedisAddr != "localhost:6379" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if !cfg.Auth.Enabled() || cfg.Auth.Clients[0].APIKeys[0] != "k1" {
		t.Fatalf("unexpected auth %+v", cfg.Auth)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("PHANTOMX_LOGGING_LEVEL=debug\nPHANTOMX_TEST_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("PHANTOMX_LOGGING_LEVEL")
		os.Unsetenv("PHANTOMX_TEST_KEY")
	})

	cfg, err := Load(Options{EnvFile: envPath})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected level from .env, got %q", cfg.Logging.Level)
	}
	if got := APIKey("PHANTOMX_TEST_KEY"); got != "from-dotenv" {
		t.Fatalf("expected key from .env, got %q", got)
	}
	if APIKey("") != "" {
		t.Fatalf("empty env name should resolve to empty key")
	}
}

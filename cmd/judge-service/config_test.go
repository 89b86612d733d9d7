package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	commonmw "codearena/internal/common/http/middleware"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "judge_service.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	return path
}

func TestLoadAppConfigDefaults(t *testing.T) {
	cfg, err := loadAppConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != defaultHTTPAddr || cfg.Challenge.Source != "catalog" || cfg.CodeStore.Backend != "local" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Judge.PoolSize != 4 || cfg.Judge.TestTimeout != 2*time.Second {
		t.Fatalf("unexpected judge defaults: %+v", cfg.Judge)
	}
	if cfg.Auth.Mode != commonmw.AuthOff || cfg.CodeStore.Bucket != defaultCodeBucket {
		t.Fatalf("unexpected auth or bucket defaults")
	}
	if cfg.Server.MaxBodyBytes != defaultMaxBodyBytes || cfg.RateLimit.Assistant.Window != time.Minute {
		t.Fatalf("unexpected body limit or assistant defaults: %+v %+v", cfg.Server, cfg.RateLimit.Assistant)
	}
}

func TestLoadAppConfigFromRepoFile(t *testing.T) {
	cfg, err := loadAppConfig(filepath.Join("..", "..", defaultConfigPath))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Sandbox.Clock.IsZero() || cfg.Sandbox.MaxCallStackSize != 4096 {
		t.Fatalf("sandbox section not parsed: %+v", cfg.Sandbox)
	}
	if cfg.CodeStore.Prefix != "files" || cfg.CodeStore.MaxBytes != 1<<20 {
		t.Fatalf("code store section not parsed: %+v", cfg.CodeStore)
	}
	if cfg.RateLimit.Compile.UserMax != 10 {
		t.Fatalf("rate limit section not parsed: %+v", cfg.RateLimit)
	}
	if cfg.Assistant.Model != "mistral" || cfg.Assistant.Timeout != time.Minute {
		t.Fatalf("assistant section not parsed: %+v", cfg.Assistant)
	}
}

func TestApplyEnvOverridesYAML(t *testing.T) {
	cfg := &AppConfig{}
	cfg.Remote.APIKey = "from-yaml"
	env := map[string]string{
		"JUDGE0_API_KEY": "from-env",
		"JWT_SECRET":     "secret",
		"REDIS_ADDR":     "127.0.0.1:6379",
		"KAFKA_BROKERS":  "a:9092, b:9092,",
		"MYSQL_DSN":      "  ",
		"OLLAMA_MODEL":   "llama2",
	}
	applyEnv(cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if cfg.Remote.APIKey != "from-env" || cfg.Auth.Secret != "secret" || cfg.Redis.Addr != "127.0.0.1:6379" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers: %+v", cfg.Kafka)
	}
	if cfg.Assistant.Model != "llama2" {
		t.Fatalf("assistant model not applied: %+v", cfg.Assistant)
	}
	if cfg.Database.DSN != "" {
		t.Fatalf("blank env value must not override")
	}
}

func TestApplyDefaultsRejectsInconsistentConfig(t *testing.T) {
	cases := map[string]string{
		"mysql without dsn":  "challenge:\n  source: mysql\n",
		"unknown source":     "challenge:\n  source: postgres\n",
		"minio without host": "codeStore:\n  backend: minio\n",
		"kafka without host": "kafka:\n  enabled: true\n",
		"auth without key":   "auth:\n  mode: required\n",
	}
	for name, body := range cases {
		if _, err := loadAppConfig(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

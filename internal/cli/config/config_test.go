package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Mode != ModeLocal || cfg.BaseURL != DefaultBaseURL || cfg.PrettyJSON == nil || !*cfg.PrettyJSON {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "judgectl.yaml")
	body := "mode: Remote\nbaseURL: http://judge:8080\ntimeout: 5s\nprettyJSON: false\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Mode != ModeRemote || cfg.BaseURL != "http://judge:8080" || cfg.Timeout != 5*time.Second || *cfg.PrettyJSON {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "judgectl.yaml")
	if err := os.WriteFile(path, []byte("mode: cloud\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

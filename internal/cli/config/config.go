package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"codearena/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	ModeLocal  = "local"
	ModeRemote = "remote"

	DefaultBaseURL     = "http://127.0.0.1:8080"
	DefaultTimeout     = 30 * time.Second
	DefaultStatePath   = "configs/judgectl_state.json"
	DefaultHistoryFile = ".judgectl_history"
)

// Config holds CLI configuration.
type Config struct {
	// Mode is "local" to judge in process or "remote" to call a judge-service.
	Mode        string        `yaml:"mode"`
	BaseURL     string        `yaml:"baseURL"`
	Timeout     time.Duration `yaml:"timeout"`
	CatalogPath string        `yaml:"catalogPath"`
	StatePath   string        `yaml:"statePath"`
	HistoryFile string        `yaml:"historyFile"`
	PrettyJSON  *bool         `yaml:"prettyJSON"`

	// Local judge budgets.
	TestTimeout       time.Duration `yaml:"testTimeout"`
	SubmissionTimeout time.Duration `yaml:"submissionTimeout"`

	// Logger defaults to errors only, on stderr, so judge logs do not mix
	// with command output.
	Logger logger.Config `yaml:"logger"`
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("read config file failed: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file failed: %w", err)
		}
	}
	if err := applyDefaults(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) error {
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	switch cfg.Mode {
	case "":
		cfg.Mode = ModeLocal
	case ModeLocal, ModeRemote:
	default:
		return fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.StatePath == "" {
		cfg.StatePath = DefaultStatePath
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = DefaultHistoryFile
	}
	if cfg.PrettyJSON == nil {
		value := true
		cfg.PrettyJSON = &value
	}
	if cfg.TestTimeout == 0 {
		cfg.TestTimeout = 2 * time.Second
	}
	if cfg.SubmissionTimeout == 0 {
		cfg.SubmissionTimeout = 10 * time.Second
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "error"
	}
	if cfg.Logger.OutputPath == "" {
		cfg.Logger.OutputPath = "discard"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "console"
	}
	return nil
}

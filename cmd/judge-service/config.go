package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"codearena/internal/assistant"
	"codearena/internal/codestore/service"
	"codearena/internal/common/auth"
	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	commonmw "codearena/internal/common/http/middleware"
	"codearena/internal/common/mq"
	"codearena/internal/common/storage"
	"codearena/internal/judge/sandbox"
	"codearena/internal/remote"
	"codearena/pkg/utils/logger"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultReportTopic     = "judge.report.final"
	defaultCodeBucket      = "codearena-code"
	defaultMaxBodyBytes    = 4 << 20
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
	// MaxBodyBytes caps every request body.
	MaxBodyBytes int64 `yaml:"maxBodyBytes"`
}

// JudgeConfig holds judge pool and budget settings.
type JudgeConfig struct {
	PoolSize          int           `yaml:"poolSize"`
	QueueWait         time.Duration `yaml:"queueWait"`
	TestTimeout       time.Duration `yaml:"testTimeout"`
	SubmissionTimeout time.Duration `yaml:"submissionTimeout"`
	MaxSourceBytes    int           `yaml:"maxSourceBytes"`
}

// ChallengeConfig selects the content store.
type ChallengeConfig struct {
	// Source is "catalog" or "mysql".
	Source string `yaml:"source"`
	// CatalogPath overrides the embedded catalog when set.
	CatalogPath string        `yaml:"catalogPath"`
	CacheTTL    time.Duration `yaml:"cacheTTL"`
	EmptyTTL    time.Duration `yaml:"emptyTTL"`
}

// CodeStoreConfig selects the blob backend.
type CodeStoreConfig struct {
	// Backend is "local" or "minio".
	Backend   string `yaml:"backend"`
	LocalRoot string `yaml:"localRoot"`
	service.Config `yaml:",inline"`
}

// KafkaConfig holds Kafka producer settings.
type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	ClientID     string        `yaml:"clientID"`
	BatchSize    int           `yaml:"batchSize"`
	BatchTimeout time.Duration `yaml:"batchTimeout"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	RequiredAcks int           `yaml:"requiredAcks"`
	Compression  string        `yaml:"compression"`
	ReportTopic  string        `yaml:"reportTopic"`
	// PublishTimeout bounds one report publish.
	PublishTimeout time.Duration `yaml:"publishTimeout"`
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	Mode        string `yaml:"mode"`
	auth.Config `yaml:",inline"`
}

// RateLimitConfig holds per-route limits.
type RateLimitConfig struct {
	RedisTimeout time.Duration            `yaml:"redisTimeout"`
	Submit       commonmw.RateLimitPolicy `yaml:"submit"`
	Compile      commonmw.RateLimitPolicy `yaml:"compile"`
	Assistant    commonmw.RateLimitPolicy `yaml:"assistant"`
}

// AppConfig holds judge-service config.
type AppConfig struct {
	Server    ServerConfig        `yaml:"server"`
	Logger    logger.Config       `yaml:"logger"`
	Judge     JudgeConfig         `yaml:"judge"`
	Sandbox   sandbox.Config      `yaml:"sandbox"`
	Challenge ChallengeConfig     `yaml:"challenge"`
	Database  db.MySQLConfig      `yaml:"database"`
	Redis     cache.RedisConfig   `yaml:"redis"`
	MinIO     storage.MinIOConfig `yaml:"minio"`
	CodeStore CodeStoreConfig     `yaml:"codeStore"`
	Kafka     KafkaConfig         `yaml:"kafka"`
	Remote    remote.Config       `yaml:"remote"`
	Assistant assistant.Config    `yaml:"assistant"`
	Auth      AuthConfig          `yaml:"auth"`
	RateLimit RateLimitConfig     `yaml:"rateLimit"`
	CORS      commonmw.CORSConfig `yaml:"cors"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

// loadAppConfig reads the YAML file, applies environment overrides and
// fills defaults. A missing file is not an error; the service then runs
// on defaults and environment alone.
func loadAppConfig(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env failed: %w", err)
	}

	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	applyEnv(&cfg, os.LookupEnv)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("JUDGE0_API_KEY", &cfg.Remote.APIKey)
	set("JUDGE0_BASE_URL", &cfg.Remote.BaseURL)
	set("OLLAMA_BASE_URL", &cfg.Assistant.BaseURL)
	set("OLLAMA_MODEL", &cfg.Assistant.Model)
	set("JWT_SECRET", &cfg.Auth.Secret)
	set("MYSQL_DSN", &cfg.Database.DSN)
	set("REDIS_ADDR", &cfg.Redis.Addr)
	set("MINIO_ACCESS_KEY", &cfg.MinIO.AccessKey)
	set("MINIO_SECRET_KEY", &cfg.MinIO.SecretKey)
	if v, ok := lookup("KAFKA_BROKERS"); ok && strings.TrimSpace(v) != "" {
		cfg.Kafka.Brokers = splitList(v)
		cfg.Kafka.Enabled = true
	}
}

func applyDefaults(cfg *AppConfig) error {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = defaultMaxBodyBytes
	}

	if cfg.Judge.PoolSize <= 0 {
		cfg.Judge.PoolSize = 4
	}
	if cfg.Judge.QueueWait == 0 {
		cfg.Judge.QueueWait = 2 * time.Second
	}
	if cfg.Judge.TestTimeout == 0 {
		cfg.Judge.TestTimeout = 2 * time.Second
	}
	if cfg.Judge.SubmissionTimeout == 0 {
		cfg.Judge.SubmissionTimeout = 10 * time.Second
	}
	if cfg.Judge.MaxSourceBytes == 0 {
		cfg.Judge.MaxSourceBytes = 64 * 1024
	}

	switch cfg.Challenge.Source {
	case "":
		cfg.Challenge.Source = "catalog"
	case "catalog":
	case "mysql":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for mysql challenge source")
		}
	default:
		return fmt.Errorf("unknown challenge source %q", cfg.Challenge.Source)
	}
	if cfg.Challenge.CacheTTL == 0 {
		cfg.Challenge.CacheTTL = 10 * time.Minute
	}
	if cfg.Challenge.EmptyTTL == 0 {
		cfg.Challenge.EmptyTTL = 30 * time.Second
	}

	switch cfg.CodeStore.Backend {
	case "":
		cfg.CodeStore.Backend = "local"
	case "local":
	case "minio":
		if cfg.MinIO.Endpoint == "" {
			return fmt.Errorf("minio endpoint is required for minio code store")
		}
	default:
		return fmt.Errorf("unknown code store backend %q", cfg.CodeStore.Backend)
	}
	if cfg.CodeStore.LocalRoot == "" {
		cfg.CodeStore.LocalRoot = "data/code"
	}
	if cfg.CodeStore.Bucket == "" {
		cfg.CodeStore.Bucket = cfg.MinIO.Bucket
	}
	if cfg.CodeStore.Bucket == "" {
		cfg.CodeStore.Bucket = defaultCodeBucket
	}

	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}
	if cfg.Kafka.ReportTopic == "" {
		cfg.Kafka.ReportTopic = defaultReportTopic
	}
	if cfg.Kafka.PublishTimeout == 0 {
		cfg.Kafka.PublishTimeout = 3 * time.Second
	}

	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = commonmw.AuthOff
	}
	if cfg.Auth.Mode != commonmw.AuthOff && cfg.Auth.Secret == "" {
		return fmt.Errorf("jwt secret is required for auth mode %q", cfg.Auth.Mode)
	}

	if cfg.RateLimit.Submit.Window == 0 {
		cfg.RateLimit.Submit = commonmw.RateLimitPolicy{Window: time.Minute, UserMax: 30, IPMax: 60}
	}
	if cfg.RateLimit.Compile.Window == 0 {
		cfg.RateLimit.Compile = commonmw.RateLimitPolicy{Window: time.Minute, UserMax: 10, IPMax: 20}
	}
	if cfg.RateLimit.Assistant.Window == 0 {
		cfg.RateLimit.Assistant = commonmw.RateLimitPolicy{Window: time.Minute, UserMax: 10, IPMax: 20}
	}
	if cfg.RateLimit.RedisTimeout == 0 {
		cfg.RateLimit.RedisTimeout = 200 * time.Millisecond
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (k KafkaConfig) toMQConfig() mq.KafkaConfig {
	return mq.KafkaConfig{
		Brokers:      k.Brokers,
		ClientID:     k.ClientID,
		BatchSize:    k.BatchSize,
		BatchTimeout: k.BatchTimeout,
		DialTimeout:  k.DialTimeout,
		WriteTimeout: k.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(k.RequiredAcks),
		Compression:  parseCompression(k.Compression),
	}
}

func parseCompression(raw string) kafka.Compression {
	switch strings.ToLower(raw) {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Compression(0)
	}
}

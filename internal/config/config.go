package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Storage  StorageConfig  `yaml:"storage"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Web      WebConfig      `yaml:"web"`
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`            // PostgreSQL connection URL
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
}

type OracleConfig struct {
	URL            string `yaml:"url"`             // face service base URL, defaults to http://localhost:8000
	Model          string `yaml:"model"`           // model name reported by the face service
	TimeoutSeconds int    `yaml:"timeout_seconds"` // per-call timeout (default 30)
}

// Timeout returns the per-call oracle timeout as a duration.
func (c *OracleConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type StorageConfig struct {
	UploadDir string `yaml:"upload_dir"` // directory for enrollment and temp probe images
}

type LedgerConfig struct {
	Mode            string `yaml:"mode"`             // flag, append or cooldown
	CooldownMinutes int    `yaml:"cooldown_minutes"` // window for cooldown mode (default 30)
}

// Cooldown returns the cooldown window as a duration.
func (c *LedgerConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envStr reads an environment variable with a fallback default.
func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// Load builds the configuration from environment variables. If the
// FACE_ATTENDANCE_CONFIG variable points at a YAML file, its values are
// applied first and environment variables override them.
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Oracle: OracleConfig{
			URL:            "http://localhost:8000",
			Model:          "vgg-face",
			TimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			UploadDir: "uploads",
		},
		Ledger: LedgerConfig{
			Mode:            "flag",
			CooldownMinutes: 30,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
	}

	if path := os.Getenv("FACE_ATTENDANCE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Database.URL = envStr("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Oracle.URL = envStr("ORACLE_URL", cfg.Oracle.URL)
	cfg.Oracle.Model = envStr("ORACLE_MODEL", cfg.Oracle.Model)
	cfg.Oracle.TimeoutSeconds = envInt("ORACLE_TIMEOUT_SECONDS", cfg.Oracle.TimeoutSeconds)
	cfg.Storage.UploadDir = envStr("UPLOAD_DIR", cfg.Storage.UploadDir)
	cfg.Ledger.Mode = envStr("LEDGER_MODE", cfg.Ledger.Mode)
	cfg.Ledger.CooldownMinutes = envInt("COOLDOWN_MINUTES", cfg.Ledger.CooldownMinutes)
	cfg.Web.Host = envStr("WEB_HOST", cfg.Web.Host)
	cfg.Web.Port = envInt("WEB_PORT", cfg.Web.Port)

	return cfg, nil
}

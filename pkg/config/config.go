package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yunolab/connect_bridge/pkg/storage"
)

// Config captures service level configuration loaded from config.yaml.
type Config struct {
	Server        ServerConfig         `yaml:"server"`
	Database      DatabaseConfig       `yaml:"database"`
	Engine        EngineConfig         `yaml:"engine"`
	CORS          CORSConfig           `yaml:"cors"`
	Redis         RedisConfig          `yaml:"redis"`
	Monitoring    MonitoringConfig     `yaml:"monitoring"`
	Notifications []NotificationConfig `yaml:"notifications"`
	Backup        storage.Config       `yaml:"backup"`
}

// ServerConfig defines HTTP server options.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// DatabaseConfig defines the metadata store backend configuration.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig contains SQLite specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// MySQLConfig contains MySQL specific connection details.
type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

// PostgresConfig contains PostgreSQL specific connection details.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// EngineConfig defines how to reach the connector execution engine
// (a Kafka Connect compatible REST API).
type EngineConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
}

// CORSConfig defines CORS middleware settings.
type CORSConfig struct {
	AllowOrigin      string `yaml:"allow_origin"`
	AllowMethods     string `yaml:"allow_methods"`
	AllowHeaders     string `yaml:"allow_headers"`
	AllowCredentials bool   `yaml:"allow_credentials"`
}

// RedisConfig defines Redis connection settings for distributed
// per-pipeline locking.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MonitoringConfig seeds the monitoring_settings row on first start. After
// that the values live in storage and are re-read at the top of each cycle,
// so operators can tune thresholds without a restart.
type MonitoringConfig struct {
	CheckIntervalMs      int64   `yaml:"check_interval_ms"`
	LagMs                int64   `yaml:"lag_ms"`
	ThroughputDropPct    float64 `yaml:"throughput_drop_percent"`
	ErrorRatePct         float64 `yaml:"error_rate_percent"`
	DLQCount             int64   `yaml:"dlq_count"`
	PauseDurationSeconds int64   `yaml:"pause_duration_seconds"`
	BackupRetentionHours int64   `yaml:"backup_retention_hours"`
	WALMonitorEnabled    bool    `yaml:"wal_monitor_enabled"`
	WALSizeMB            int64   `yaml:"wal_size_mb"`
	WALGrowthPct         float64 `yaml:"wal_growth_percent"`
	AutoPauseEnabled     bool    `yaml:"auto_pause_enabled"`
}

// NotificationConfig defines one alert delivery channel.
type NotificationConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// Load reads a YAML configuration file from the provided path.
// It searches in the current working directory first, then next to the
// binary executable.
func Load(name string) (*Config, error) {
	cfg := defaultConfig()

	configPath := findConfigFile(name)
	if configPath == "" {
		log.Printf("Warning: config file %q not found, using defaults", name)
		return cfg, nil
	}

	log.Printf("Loading config from: %s", configPath)
	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	var parsed Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&parsed)
	return &parsed, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: ":8080",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path: "data/connect_bridge.db",
			},
		},
		Engine: EngineConfig{
			BaseURL:  "http://localhost:8083",
			Timeout:  15 * time.Second,
			RetryMax: 2,
		},
		CORS: CORSConfig{
			AllowOrigin:      "*",
			AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
			AllowHeaders:     "*",
			AllowCredentials: false,
		},
		Monitoring: MonitoringConfig{
			CheckIntervalMs:      60_000,
			LagMs:                5_000,
			ThroughputDropPct:    50,
			ErrorRatePct:         5,
			DLQCount:             100,
			PauseDurationSeconds: 300,
			BackupRetentionHours: 24,
			WALSizeMB:            1024,
			WALGrowthPct:         20,
		},
		Backup: storage.DefaultConfig(),
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/connect_bridge.db"
	}
	if cfg.Engine.BaseURL == "" {
		cfg.Engine.BaseURL = "http://localhost:8083"
	}
	if cfg.Engine.Timeout <= 0 {
		cfg.Engine.Timeout = 15 * time.Second
	}
	if cfg.Engine.RetryMax < 0 {
		cfg.Engine.RetryMax = 0
	}

	def := defaultConfig().Monitoring
	if cfg.Monitoring.CheckIntervalMs <= 0 {
		cfg.Monitoring.CheckIntervalMs = def.CheckIntervalMs
	}
	if cfg.Monitoring.LagMs <= 0 {
		cfg.Monitoring.LagMs = def.LagMs
	}
	if cfg.Monitoring.ThroughputDropPct <= 0 {
		cfg.Monitoring.ThroughputDropPct = def.ThroughputDropPct
	}
	if cfg.Monitoring.ErrorRatePct <= 0 {
		cfg.Monitoring.ErrorRatePct = def.ErrorRatePct
	}
	if cfg.Monitoring.DLQCount <= 0 {
		cfg.Monitoring.DLQCount = def.DLQCount
	}
	if cfg.Monitoring.PauseDurationSeconds <= 0 {
		cfg.Monitoring.PauseDurationSeconds = def.PauseDurationSeconds
	}
	if cfg.Monitoring.BackupRetentionHours <= 0 {
		cfg.Monitoring.BackupRetentionHours = def.BackupRetentionHours
	}
	if cfg.Monitoring.WALSizeMB <= 0 {
		cfg.Monitoring.WALSizeMB = def.WALSizeMB
	}
	if cfg.Monitoring.WALGrowthPct <= 0 {
		cfg.Monitoring.WALGrowthPct = def.WALGrowthPct
	}

	if cfg.Backup.Type == "" {
		cfg.Backup = storage.DefaultConfig()
	}
}

// findConfigFile searches for a config file in the current directory first,
// then next to the binary executable. Returns the full path or empty string.
func findConfigFile(name string) string {
	// 1. Current working directory
	if _, err := os.Stat(name); err == nil {
		abs, _ := filepath.Abs(name)
		return abs
	}

	// 2. Next to the binary executable
	exe, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exe)
		candidate := filepath.Join(exeDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Ping       PingConfig       `yaml:"ping"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// PingConfig holds the reachability scheduler configuration. Reachability
// checks default to on; only an explicit `enabled: false` turns them off.
type PingConfig struct {
	EnabledOpt      *bool         `yaml:"enabled"`
	Enabled         bool          `yaml:"-"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
	TimeoutMS       int           `yaml:"timeout_ms"`
	Timeout         time.Duration `yaml:"-"`
	Workers         int           `yaml:"workers"`
	UseTicker       bool          `yaml:"use_ticker"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.Ping.Enabled = cfg.Ping.EnabledOpt == nil || *cfg.Ping.EnabledOpt

	if cfg.Ping.IntervalSeconds <= 0 {
		cfg.Ping.IntervalSeconds = 300
	}
	cfg.Ping.Interval = time.Duration(cfg.Ping.IntervalSeconds) * time.Second

	if cfg.Ping.TimeoutMS <= 0 {
		log.Printf("ping.timeout_ms is not set or invalid; defaulting to 1000ms")
		cfg.Ping.TimeoutMS = 1000
	}
	cfg.Ping.Timeout = time.Duration(cfg.Ping.TimeoutMS) * time.Millisecond

	if cfg.Ping.Workers <= 0 {
		cfg.Ping.Workers = 1
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}

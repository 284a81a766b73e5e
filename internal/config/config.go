package config

import (
	"time"

	"github.com/rickgao/ashare-data/internal/ratelimit"
)

// Config is the root configuration for all ashare-data binaries.
type Config struct {
	Instance  InstanceConfig   `yaml:"instance"`
	Provider  ProviderConfig   `yaml:"provider"`
	Database  DatabaseConfig   `yaml:"database"`
	RateLimit ratelimit.Config `yaml:"ratelimit"`
	Collector CollectorConfig  `yaml:"collector"`
	Scheduler SchedulerConfig  `yaml:"scheduler"`
	Server    ServerConfig     `yaml:"server"`
	Redis     RedisConfig      `yaml:"redis"`
}

// InstanceConfig identifies this deployment.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ProviderConfig holds quote host settings.
type ProviderConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// DatabaseConfig holds the TimescaleDB connection for bar and stock data.
type DatabaseConfig struct {
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// CollectorConfig holds bulk collection settings.
type CollectorConfig struct {
	Concurrency   int           `yaml:"concurrency"`
	RetryTimes    int           `yaml:"retry_times"`    // bounded retries for non-rate-limit errors
	RetryBackoff  time.Duration `yaml:"retry_backoff"`  // base backoff between such retries
	BatchSize     int           `yaml:"batch_size"`     // storage writer batch size
	FlushInterval time.Duration `yaml:"flush_interval"` // storage writer flush interval
	BufferSize    int           `yaml:"buffer_size"`    // storage writer input buffer
	ProgressFile  string        `yaml:"progress_file"`  // backfill resume file
	HealthPort    int           `yaml:"health_port"`    // collector daemon health/progress port
}

// SchedulerConfig holds the daily collection schedule.
type SchedulerConfig struct {
	RunAt     string        `yaml:"run_at"`    // wall clock "HH:MM"
	Timezone  string        `yaml:"timezone"`  // IANA zone, e.g. "Asia/Shanghai"
	Reconcile time.Duration `yaml:"reconcile"` // stock universe refresh interval
}

// ServerConfig holds the query API server settings.
type ServerConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	ThrottleRPS   float64       `yaml:"throttle_rps"`   // per-client request rate
	ThrottleBurst int           `yaml:"throttle_burst"` // per-client burst allowance
}

// RedisConfig holds the query cache connection. Leave Host empty to run
// without a cache.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
}

package config

import (
	"time"

	"github.com/rickgao/ashare-data/internal/api"
	"github.com/rickgao/ashare-data/internal/ratelimit"
)

// Default values for optional configuration fields.
const (
	DefaultProviderTimeout = 30 * time.Second
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultConcurrency     = 1
	DefaultRetryTimes      = 3
	DefaultRetryBackoff    = 2 * time.Second
	DefaultBatchSize       = 1000
	DefaultFlushInterval   = time.Second
	DefaultBufferSize      = 10000
	DefaultProgressFile    = ".backfill_progress.json"
	DefaultHealthPort      = 8080
	DefaultRunAt           = "18:30"
	DefaultTimezone        = "Asia/Shanghai"
	DefaultReconcile       = 24 * time.Hour
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8000
	DefaultCacheTTL        = 5 * time.Minute
	DefaultThrottleRPS     = 10.0
	DefaultThrottleBurst   = 20
	DefaultRedisPort       = 6379
)

func (c *Config) applyDefaults() {
	// Provider defaults
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = api.DefaultBaseURL
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = DefaultProviderTimeout
	}

	// Database defaults
	applyDBDefaults(&c.Database.Timescale)

	// Rate limit defaults
	applyRateLimitDefaults(&c.RateLimit)

	// Collector defaults
	if c.Collector.Concurrency == 0 {
		c.Collector.Concurrency = DefaultConcurrency
	}
	if c.Collector.RetryTimes == 0 {
		c.Collector.RetryTimes = DefaultRetryTimes
	}
	if c.Collector.RetryBackoff == 0 {
		c.Collector.RetryBackoff = DefaultRetryBackoff
	}
	if c.Collector.BatchSize == 0 {
		c.Collector.BatchSize = DefaultBatchSize
	}
	if c.Collector.FlushInterval == 0 {
		c.Collector.FlushInterval = DefaultFlushInterval
	}
	if c.Collector.BufferSize == 0 {
		c.Collector.BufferSize = DefaultBufferSize
	}
	if c.Collector.ProgressFile == "" {
		c.Collector.ProgressFile = DefaultProgressFile
	}
	if c.Collector.HealthPort == 0 {
		c.Collector.HealthPort = DefaultHealthPort
	}

	// Scheduler defaults
	if c.Scheduler.RunAt == "" {
		c.Scheduler.RunAt = DefaultRunAt
	}
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = DefaultTimezone
	}
	if c.Scheduler.Reconcile == 0 {
		c.Scheduler.Reconcile = DefaultReconcile
	}

	// Server defaults
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.CacheTTL == 0 {
		c.Server.CacheTTL = DefaultCacheTTL
	}
	if c.Server.ThrottleRPS == 0 {
		c.Server.ThrottleRPS = DefaultThrottleRPS
	}
	if c.Server.ThrottleBurst == 0 {
		c.Server.ThrottleBurst = DefaultThrottleBurst
	}

	// Redis defaults (only when a cache host is configured)
	if c.Redis.Host != "" && c.Redis.Port == 0 {
		c.Redis.Port = DefaultRedisPort
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func applyRateLimitDefaults(rl *ratelimit.Config) {
	def := ratelimit.DefaultConfig()
	if rl.ProbeInterval == 0 {
		rl.ProbeInterval = def.ProbeInterval
	}
	if rl.BaseDelay == 0 {
		rl.BaseDelay = def.BaseDelay
	}
	if rl.MinDelay == 0 {
		rl.MinDelay = def.MinDelay
	}
	if rl.MaxDelay == 0 {
		rl.MaxDelay = def.MaxDelay
	}
	if rl.BackoffFactor == 0 {
		rl.BackoffFactor = def.BackoffFactor
	}
	if rl.MaxBackoffFactor == 0 {
		rl.MaxBackoffFactor = def.MaxBackoffFactor
	}
	if rl.RecoveryFactor == 0 {
		rl.RecoveryFactor = def.RecoveryFactor
	}
	if rl.BatchMargin == 0 {
		rl.BatchMargin = def.BatchMargin
	}
	if rl.PauseMargin == 0 {
		rl.PauseMargin = def.PauseMargin
	}
	if rl.HistoryRetention == 0 {
		rl.HistoryRetention = def.HistoryRetention
	}
	if rl.FailureThreshold == 0 {
		rl.FailureThreshold = def.FailureThreshold
	}
	if rl.FailurePause == 0 {
		rl.FailurePause = def.FailurePause
	}
	if rl.BoundaryFile == "" {
		rl.BoundaryFile = def.BoundaryFile
	}
}

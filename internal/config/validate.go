package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.Timescale.validate("database.timescale"); err != nil {
		return err
	}

	if c.RateLimit.ProbeInterval < time.Second {
		return fmt.Errorf("ratelimit.probe_interval must be >= 1s, got %v", c.RateLimit.ProbeInterval)
	}
	if c.RateLimit.MinDelay > c.RateLimit.MaxDelay {
		return fmt.Errorf("ratelimit.min_delay (%v) cannot exceed max_delay (%v)",
			c.RateLimit.MinDelay, c.RateLimit.MaxDelay)
	}
	if c.RateLimit.BaseDelay < c.RateLimit.MinDelay || c.RateLimit.BaseDelay > c.RateLimit.MaxDelay {
		return fmt.Errorf("ratelimit.base_delay (%v) must be within [min_delay, max_delay]",
			c.RateLimit.BaseDelay)
	}
	if c.RateLimit.BackoffFactor <= 1 {
		return fmt.Errorf("ratelimit.backoff_factor must be > 1, got %v", c.RateLimit.BackoffFactor)
	}
	if c.RateLimit.RecoveryFactor <= 0 || c.RateLimit.RecoveryFactor >= 1 {
		return fmt.Errorf("ratelimit.recovery_factor must be in (0, 1), got %v", c.RateLimit.RecoveryFactor)
	}
	if c.RateLimit.BatchMargin <= 0 || c.RateLimit.BatchMargin > 1 {
		return fmt.Errorf("ratelimit.batch_margin must be in (0, 1], got %v", c.RateLimit.BatchMargin)
	}
	if c.RateLimit.PauseMargin < 1 {
		return fmt.Errorf("ratelimit.pause_margin must be >= 1, got %v", c.RateLimit.PauseMargin)
	}

	if c.Collector.Concurrency < 1 {
		return errors.New("collector.concurrency must be >= 1")
	}
	if c.Collector.BatchSize < 1 {
		return errors.New("collector.batch_size must be >= 1")
	}
	if c.Collector.BufferSize < 1 {
		return errors.New("collector.buffer_size must be >= 1")
	}

	if _, err := time.Parse("15:04", c.Scheduler.RunAt); err != nil {
		return fmt.Errorf("scheduler.run_at must be HH:MM, got %q", c.Scheduler.RunAt)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ThrottleRPS <= 0 {
		return fmt.Errorf("server.throttle_rps must be > 0, got %v", c.Server.ThrottleRPS)
	}

	if c.Redis.Host != "" {
		if c.Redis.Port < 1 || c.Redis.Port > 65535 {
			return fmt.Errorf("redis.port must be between 1 and 65535, got %d", c.Redis.Port)
		}
		if c.Redis.DB < 0 || c.Redis.DB > 15 {
			return fmt.Errorf("redis.db must be between 0 and 15, got %d", c.Redis.DB)
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

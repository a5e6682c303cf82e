package config

import (
	"time"

	"tickwork/internal/ratelimit"
	"tickwork/internal/scheduler"
	"tickwork/internal/store"
	"tickwork/pkg/logx"
)

// Config is the daemon configuration, accepted as JSON or YAML.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	RateLimit RateLimitConfig `json:"rate_limit,omitempty"`
	Storage   StorageConfig   `json:"storage"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    FileLogConfig `json:"file,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// SchedulerConfig controls the tick loop. Changing TickInterval requires a
// restart; the rest of the config hot-reloads.
type SchedulerConfig struct {
	TickInterval string `json:"tick_interval,omitempty"` // default "1s"
	Timezone     string `json:"timezone,omitempty"`      // default TZ for new jobs
}

// RateLimitConfig caps executions per scheduler instance.
// Zero values fall back to the limiter defaults (10/minute, 100/hour).
type RateLimitConfig struct {
	PerMinute int `json:"per_minute,omitempty"`
	PerHour   int `json:"per_hour,omitempty"`
}

// StorageConfig selects the persistence driver.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./tickwork_jobs" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

func (c *Config) LogxConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}

func (c *Config) TickInterval() (time.Duration, error) {
	return ParseDurationOrDefault("scheduler.tick_interval", c.Scheduler.TickInterval, scheduler.DefaultTickInterval)
}

func (c *Config) StoreConfig() (store.Config, error) {
	busy, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	if err != nil {
		return store.Config{}, err
	}
	return store.Config{
		Driver:      c.Storage.Driver,
		Path:        c.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func (c *Config) Limits() (perMinute, perHour int) {
	pm := c.RateLimit.PerMinute
	ph := c.RateLimit.PerHour
	if pm <= 0 {
		pm = ratelimit.DefaultPerMinute
	}
	if ph <= 0 {
		ph = ratelimit.DefaultPerHour
	}
	return pm, ph
}

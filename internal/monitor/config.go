package monitor

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config tunes the websocket hub.
type Config struct {
	Buffer       int    `toml:"buffer"`
	WriteTimeout string `toml:"write_timeout"`
	PingInterval string `toml:"ping_interval"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Buffer       string
	WriteTimeout string
	PingInterval string
}

func (c *Config) WriteTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	return d
}

func (c *Config) PingIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PingInterval)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Buffer != 0 {
		c.Buffer = overlay.Buffer
	}
	if overlay.WriteTimeout != "" {
		c.WriteTimeout = overlay.WriteTimeout
	}
	if overlay.PingInterval != "" {
		c.PingInterval = overlay.PingInterval
	}
}

func (c *Config) loadDefaults() {
	if c.Buffer == 0 {
		c.Buffer = 32
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "10s"
	}
	if c.PingInterval == "" {
		c.PingInterval = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Buffer != "" {
		if v := os.Getenv(env.Buffer); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.Buffer = n
			}
		}
	}
	if env.WriteTimeout != "" {
		if v := os.Getenv(env.WriteTimeout); v != "" {
			c.WriteTimeout = v
		}
	}
	if env.PingInterval != "" {
		if v := os.Getenv(env.PingInterval); v != "" {
			c.PingInterval = v
		}
	}
}

func (c *Config) validate() error {
	if c.Buffer < 1 {
		return fmt.Errorf("buffer must be positive")
	}
	for name, raw := range map[string]string{"write_timeout": c.WriteTimeout, "ping_interval": c.PingInterval} {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

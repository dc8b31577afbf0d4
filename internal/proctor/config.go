package proctor

import (
	"fmt"
	"os"
	"time"
)

// Config bounds how long the Manager keeps sessions that are no longer
// sampling.
type Config struct {
	// RetainCompleted is how long a completed session stays registered
	// after its report is produced. Reads after that use the persisted copy.
	RetainCompleted string `toml:"retain_completed"`
	// PendingTTL evicts sessions whose permission gate is never granted.
	PendingTTL string `toml:"pending_ttl"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	RetainCompleted string
	PendingTTL      string
}

// DefaultConfig returns a finalized configuration with every default applied.
func DefaultConfig() Config {
	var c Config
	c.loadDefaults()
	return c
}

func (c *Config) RetainCompletedDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetainCompleted)
	return d
}

func (c *Config) PendingTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.PendingTTL)
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
	if overlay.RetainCompleted != "" {
		c.RetainCompleted = overlay.RetainCompleted
	}
	if overlay.PendingTTL != "" {
		c.PendingTTL = overlay.PendingTTL
	}
}

func (c *Config) loadDefaults() {
	if c.RetainCompleted == "" {
		c.RetainCompleted = "10m"
	}
	if c.PendingTTL == "" {
		c.PendingTTL = "30m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.RetainCompleted != "" {
		if v := os.Getenv(env.RetainCompleted); v != "" {
			c.RetainCompleted = v
		}
	}
	if env.PendingTTL != "" {
		if v := os.Getenv(env.PendingTTL); v != "" {
			c.PendingTTL = v
		}
	}
}

func (c *Config) validate() error {
	for name, raw := range map[string]string{"retain_completed": c.RetainCompleted, "pending_ttl": c.PendingTTL} {
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

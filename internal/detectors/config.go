package detectors

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config holds the detector backend endpoints.
type Config struct {
	FaceURL   string `toml:"face_url"`
	ObjectURL string `toml:"object_url"`
	Timeout   string `toml:"timeout"`
	MaxFrame  int64  `toml:"max_frame"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	FaceURL   string
	ObjectURL string
	Timeout   string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
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
	if overlay.FaceURL != "" {
		c.FaceURL = overlay.FaceURL
	}
	if overlay.ObjectURL != "" {
		c.ObjectURL = overlay.ObjectURL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxFrame != 0 {
		c.MaxFrame = overlay.MaxFrame
	}
}

func (c *Config) loadDefaults() {
	if c.FaceURL == "" {
		c.FaceURL = "http://localhost:5173/api/detection/face"
	}
	if c.ObjectURL == "" {
		c.ObjectURL = "http://localhost:5173/api/detection/object"
	}
	if c.Timeout == "" {
		c.Timeout = "5s"
	}
	if c.MaxFrame == 0 {
		c.MaxFrame = 4 << 20
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.FaceURL != "" {
		if v := os.Getenv(env.FaceURL); v != "" {
			c.FaceURL = v
		}
	}
	if env.ObjectURL != "" {
		if v := os.Getenv(env.ObjectURL); v != "" {
			c.ObjectURL = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	for name, raw := range map[string]string{"face_url": c.FaceURL, "object_url": c.ObjectURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q", name, raw)
		}
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxFrame <= 0 {
		return fmt.Errorf("max_frame must be positive")
	}
	return nil
}

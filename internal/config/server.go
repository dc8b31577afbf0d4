package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// ServerConfig holds HTTP listener settings. Timeouts are Go duration
// strings.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	return duration(c.ReadTimeout)
}

func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return duration(c.ReadHeaderTimeout)
}

func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	return duration(c.WriteTimeout)
}

func (c *ServerConfig) IdleTimeoutDuration() time.Duration {
	return duration(c.IdleTimeout)
}

func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	for dst, v := range c.strings(overlay) {
		if v != "" {
			*dst = v
		}
	}
}

// strings pairs each string field of c with the same field of o.
func (c *ServerConfig) strings(o *ServerConfig) map[*string]string {
	return map[*string]string{
		&c.Host:              o.Host,
		&c.ReadTimeout:       o.ReadTimeout,
		&c.ReadHeaderTimeout: o.ReadHeaderTimeout,
		&c.WriteTimeout:      o.WriteTimeout,
		&c.IdleTimeout:       o.IdleTimeout,
		&c.ShutdownTimeout:   o.ShutdownTimeout,
	}
}

func (c *ServerConfig) loadDefaults() {
	defaults := ServerConfig{
		Host:              "0.0.0.0",
		Port:              8080,
		ReadTimeout:       "30s",
		ReadHeaderTimeout: "10s",
		WriteTimeout:      "1m",
		IdleTimeout:       "2m",
		ShutdownTimeout:   "30s",
	}
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	for dst, v := range c.strings(&defaults) {
		if *dst == "" {
			*dst = v
		}
	}
}

func (c *ServerConfig) loadEnv() error {
	overlay := ServerConfig{
		Host:              os.Getenv("PROCTOR_SERVER_HOST"),
		ReadTimeout:       os.Getenv("PROCTOR_SERVER_READ_TIMEOUT"),
		ReadHeaderTimeout: os.Getenv("PROCTOR_SERVER_READ_HEADER_TIMEOUT"),
		WriteTimeout:      os.Getenv("PROCTOR_SERVER_WRITE_TIMEOUT"),
		IdleTimeout:       os.Getenv("PROCTOR_SERVER_IDLE_TIMEOUT"),
		ShutdownTimeout:   os.Getenv("PROCTOR_SERVER_SHUTDOWN_TIMEOUT"),
	}
	if v := os.Getenv("PROCTOR_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PROCTOR_SERVER_PORT: %w", err)
		}
		overlay.Port = port
	}
	c.Merge(&overlay)
	return nil
}

func (c *ServerConfig) validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Port))
	}
	timeouts := []struct{ name, value string }{
		{"read_timeout", c.ReadTimeout},
		{"read_header_timeout", c.ReadHeaderTimeout},
		{"write_timeout", c.WriteTimeout},
		{"idle_timeout", c.IdleTimeout},
		{"shutdown_timeout", c.ShutdownTimeout},
	}
	for _, t := range timeouts {
		if d, err := time.ParseDuration(t.value); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("invalid %s: %q", t.name, t.value))
		}
	}
	return errors.Join(errs...)
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

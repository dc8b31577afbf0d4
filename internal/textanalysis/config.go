package textanalysis

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	ModeAgent     = "agent"
	ModeHeuristic = "heuristic"
)

// Config tunes answer screening. Instructions overrides are keyed by stage.
type Config struct {
	Mode               string            `toml:"mode"`
	Timeout            string            `toml:"timeout"`
	HeuristicThreshold int               `toml:"heuristic_threshold"`
	Instructions       map[string]string `toml:"instructions"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Mode               string
	Timeout            string
	HeuristicThreshold string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// InstructionsFor returns the override for stage, or the built-in instructions.
func (c *Config) InstructionsFor(stage Stage) string {
	if v := c.Instructions[string(stage)]; v != "" {
		return v
	}
	return DefaultInstructions(stage)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Instruction overrides are
// merged per stage.
func (c *Config) Merge(overlay *Config) {
	if overlay.Mode != "" {
		c.Mode = overlay.Mode
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.HeuristicThreshold != 0 {
		c.HeuristicThreshold = overlay.HeuristicThreshold
	}
	for k, v := range overlay.Instructions {
		if c.Instructions == nil {
			c.Instructions = make(map[string]string)
		}
		c.Instructions[k] = v
	}
}

func (c *Config) loadDefaults() {
	if c.Mode == "" {
		c.Mode = ModeAgent
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.HeuristicThreshold == 0 {
		c.HeuristicThreshold = 2
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Mode != "" {
		if v := os.Getenv(env.Mode); v != "" {
			c.Mode = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.HeuristicThreshold != "" {
		if v := os.Getenv(env.HeuristicThreshold); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.HeuristicThreshold = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Mode != ModeAgent && c.Mode != ModeHeuristic {
		return fmt.Errorf("invalid mode %q: want %q or %q", c.Mode, ModeAgent, ModeHeuristic)
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.HeuristicThreshold < 1 || c.HeuristicThreshold > len(heuristics) {
		return fmt.Errorf("heuristic_threshold must be between 1 and %d", len(heuristics))
	}
	for k := range c.Instructions {
		if _, err := ParseStage(k); err != nil {
			return fmt.Errorf("instructions %q: %w", k, err)
		}
	}
	return nil
}

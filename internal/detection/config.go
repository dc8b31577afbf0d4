// Package detection turns raw face and object observations into discrete
// violation events and grades cumulative counts into an anomaly report.
// Everything here is pure: callers own scheduling, I/O, and locking.
package detection

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Thresholds holds the empirical tuning values of the smoothers and classifier.
type Thresholds struct {
	FaceWindow          int     `toml:"face_window" json:"face_window"`
	LookingDownY        float64 `toml:"looking_down_y" json:"looking_down_y"`
	PhonePoseY          float64 `toml:"phone_pose_y" json:"phone_pose_y"`
	RapidMovementDelta  float64 `toml:"rapid_movement_delta" json:"rapid_movement_delta"`
	RapidMovementWithin string  `toml:"rapid_movement_within" json:"rapid_movement_within"`
	OffCenterOffset     float64 `toml:"off_center_offset" json:"off_center_offset"`
	PartialWidth        float64 `toml:"partial_width" json:"partial_width"`
	SignificantMovement float64 `toml:"significant_movement" json:"significant_movement"`
	PoseFrames          int     `toml:"pose_frames" json:"pose_frames"`
	PoseDecay           int     `toml:"pose_decay" json:"pose_decay"`
	PoseCooldown        string  `toml:"pose_cooldown" json:"pose_cooldown"`
	PhoneWindow         int     `toml:"phone_window" json:"phone_window"`
	PhoneConfidence     float64 `toml:"phone_confidence" json:"phone_confidence"`
	PhoneFrames         int     `toml:"phone_frames" json:"phone_frames"`
}

// Config is the detection section of the service configuration.
type Config struct {
	FaceInterval   string     `toml:"face_interval" json:"face_interval"`
	ObjectInterval string     `toml:"object_interval" json:"object_interval"`
	TextMinLength  int        `toml:"text_min_length" json:"text_min_length"`
	RecentWarnings int        `toml:"recent_warnings" json:"recent_warnings"`
	Thresholds     Thresholds `toml:"thresholds" json:"thresholds"`
	Categories     []Category `toml:"categories" json:"categories"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	FaceInterval   string
	ObjectInterval string
	TextMinLength  string
	RecentWarnings string
}

// DefaultConfig returns a finalized configuration with every default applied.
func DefaultConfig() Config {
	var c Config
	c.loadDefaults()
	return c
}

// FaceIntervalDuration returns FaceInterval as a time.Duration.
func (c *Config) FaceIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.FaceInterval)
	return d
}

// ObjectIntervalDuration returns ObjectInterval as a time.Duration.
func (c *Config) ObjectIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.ObjectInterval)
	return d
}

// RapidMovementDuration returns RapidMovementWithin as a time.Duration.
func (t *Thresholds) RapidMovementDuration() time.Duration {
	d, _ := time.ParseDuration(t.RapidMovementWithin)
	return d
}

// PoseCooldownDuration returns PoseCooldown as a time.Duration.
func (t *Thresholds) PoseCooldownDuration() time.Duration {
	d, _ := time.ParseDuration(t.PoseCooldown)
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

// Merge overwrites non-zero fields from overlay. A non-empty overlay
// category list replaces the base list wholesale.
func (c *Config) Merge(overlay *Config) {
	if overlay.FaceInterval != "" {
		c.FaceInterval = overlay.FaceInterval
	}
	if overlay.ObjectInterval != "" {
		c.ObjectInterval = overlay.ObjectInterval
	}
	if overlay.TextMinLength != 0 {
		c.TextMinLength = overlay.TextMinLength
	}
	if overlay.RecentWarnings != 0 {
		c.RecentWarnings = overlay.RecentWarnings
	}
	if len(overlay.Categories) > 0 {
		c.Categories = overlay.Categories
	}
	c.Thresholds.merge(&overlay.Thresholds)
}

func (t *Thresholds) merge(o *Thresholds) {
	mergeInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	mergeFloat := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	mergeString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	mergeInt(&t.FaceWindow, o.FaceWindow)
	mergeFloat(&t.LookingDownY, o.LookingDownY)
	mergeFloat(&t.PhonePoseY, o.PhonePoseY)
	mergeFloat(&t.RapidMovementDelta, o.RapidMovementDelta)
	mergeString(&t.RapidMovementWithin, o.RapidMovementWithin)
	mergeFloat(&t.OffCenterOffset, o.OffCenterOffset)
	mergeFloat(&t.PartialWidth, o.PartialWidth)
	mergeFloat(&t.SignificantMovement, o.SignificantMovement)
	mergeInt(&t.PoseFrames, o.PoseFrames)
	mergeInt(&t.PoseDecay, o.PoseDecay)
	mergeString(&t.PoseCooldown, o.PoseCooldown)
	mergeInt(&t.PhoneWindow, o.PhoneWindow)
	mergeFloat(&t.PhoneConfidence, o.PhoneConfidence)
	mergeInt(&t.PhoneFrames, o.PhoneFrames)
}

func (c *Config) loadDefaults() {
	if c.FaceInterval == "" {
		c.FaceInterval = "1000ms"
	}
	if c.ObjectInterval == "" {
		c.ObjectInterval = "1500ms"
	}
	if c.TextMinLength == 0 {
		c.TextMinLength = 30
	}
	if c.RecentWarnings == 0 {
		c.RecentWarnings = 5
	}
	if len(c.Categories) == 0 {
		c.Categories = DefaultCategories()
	}

	t := &c.Thresholds
	if t.FaceWindow == 0 {
		t.FaceWindow = 10
	}
	if t.LookingDownY == 0 {
		t.LookingDownY = 0.65
	}
	if t.PhonePoseY == 0 {
		t.PhonePoseY = 0.75
	}
	if t.RapidMovementDelta == 0 {
		t.RapidMovementDelta = 0.1
	}
	if t.RapidMovementWithin == "" {
		t.RapidMovementWithin = "200ms"
	}
	if t.OffCenterOffset == 0 {
		t.OffCenterOffset = 0.3
	}
	if t.PartialWidth == 0 {
		t.PartialWidth = 0.1
	}
	if t.SignificantMovement == 0 {
		t.SignificantMovement = 0.15
	}
	if t.PoseFrames == 0 {
		t.PoseFrames = 12
	}
	if t.PoseDecay == 0 {
		t.PoseDecay = 3
	}
	if t.PoseCooldown == "" {
		t.PoseCooldown = "5s"
	}
	if t.PhoneWindow == 0 {
		t.PhoneWindow = 5
	}
	if t.PhoneConfidence == 0 {
		t.PhoneConfidence = 0.4
	}
	if t.PhoneFrames == 0 {
		t.PhoneFrames = 3
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.FaceInterval != "" {
		if v := os.Getenv(env.FaceInterval); v != "" {
			c.FaceInterval = v
		}
	}
	if env.ObjectInterval != "" {
		if v := os.Getenv(env.ObjectInterval); v != "" {
			c.ObjectInterval = v
		}
	}
	if env.TextMinLength != "" {
		if v := os.Getenv(env.TextMinLength); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.TextMinLength = n
			}
		}
	}
	if env.RecentWarnings != "" {
		if v := os.Getenv(env.RecentWarnings); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.RecentWarnings = n
			}
		}
	}
}

func (c *Config) validate() error {
	for name, s := range map[string]string{
		"face_interval":         c.FaceInterval,
		"object_interval":       c.ObjectInterval,
		"rapid_movement_within": c.Thresholds.RapidMovementWithin,
		"pose_cooldown":         c.Thresholds.PoseCooldown,
	} {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s: must be positive", name)
		}
	}

	t := c.Thresholds
	if t.FaceWindow < 2 {
		return fmt.Errorf("%w: face_window must be at least 2", ErrInvalidThreshold)
	}
	if t.PhoneWindow < 1 || t.PhoneFrames < 1 || t.PhoneFrames > t.PhoneWindow {
		return fmt.Errorf("%w: phone_frames must be within phone_window", ErrInvalidThreshold)
	}
	if t.PoseFrames < 1 || t.PoseDecay < 0 {
		return fmt.Errorf("%w: pose_frames and pose_decay", ErrInvalidThreshold)
	}
	if c.RecentWarnings < 1 {
		return fmt.Errorf("%w: recent_warnings must be positive", ErrInvalidThreshold)
	}

	if _, err := NewTable(c.Categories); err != nil {
		return err
	}
	return nil
}

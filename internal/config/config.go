package config

import (
	"fmt"
	"os"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/proctor/internal/detection"
	"github.com/JaimeStill/proctor/internal/detectors"
	"github.com/JaimeStill/proctor/internal/monitor"
	"github.com/JaimeStill/proctor/internal/proctor"
	"github.com/JaimeStill/proctor/internal/textanalysis"
	"github.com/JaimeStill/proctor/pkg/database"
	"github.com/JaimeStill/proctor/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvProctorEnv             = "PROCTOR_ENV"
	EnvProctorShutdownTimeout = "PROCTOR_SHUTDOWN_TIMEOUT"
	EnvProctorVersion         = "PROCTOR_VERSION"
	EnvProctorLogLevel        = "PROCTOR_LOG_LEVEL"
	EnvProctorLogFormat       = "PROCTOR_LOG_FORMAT"
)

var databaseEnv = &database.Env{
	DSN:             "PROCTOR_DB_DSN",
	Host:            "PROCTOR_DB_HOST",
	Port:            "PROCTOR_DB_PORT",
	Name:            "PROCTOR_DB_NAME",
	User:            "PROCTOR_DB_USER",
	Password:        "PROCTOR_DB_PASSWORD",
	SSLMode:         "PROCTOR_DB_SSL_MODE",
	MaxOpenConns:    "PROCTOR_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "PROCTOR_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "PROCTOR_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "PROCTOR_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:     "PROCTOR_STORAGE_CONTAINER_NAME",
	ConnectionString:  "PROCTOR_STORAGE_CONNECTION_STRING",
	MaxListSize:       "PROCTOR_STORAGE_MAX_LIST_SIZE",
	UploadBlockSize:   "PROCTOR_STORAGE_UPLOAD_BLOCK_SIZE",
	UploadConcurrency: "PROCTOR_STORAGE_UPLOAD_CONCURRENCY",
}

var detectionEnv = &detection.Env{
	FaceInterval:   "PROCTOR_DETECTION_FACE_INTERVAL",
	ObjectInterval: "PROCTOR_DETECTION_OBJECT_INTERVAL",
	TextMinLength:  "PROCTOR_DETECTION_TEXT_MIN_LENGTH",
	RecentWarnings: "PROCTOR_DETECTION_RECENT_WARNINGS",
}

var detectorsEnv = &detectors.Env{
	FaceURL:   "PROCTOR_DETECTORS_FACE_URL",
	ObjectURL: "PROCTOR_DETECTORS_OBJECT_URL",
	Timeout:   "PROCTOR_DETECTORS_TIMEOUT",
}

var monitorEnv = &monitor.Env{
	Buffer:       "PROCTOR_MONITOR_BUFFER",
	WriteTimeout: "PROCTOR_MONITOR_WRITE_TIMEOUT",
	PingInterval: "PROCTOR_MONITOR_PING_INTERVAL",
}

var sessionsEnv = &proctor.Env{
	RetainCompleted: "PROCTOR_SESSIONS_RETAIN_COMPLETED",
	PendingTTL:      "PROCTOR_SESSIONS_PENDING_TTL",
}

var textEnv = &textanalysis.Env{
	Mode:               "PROCTOR_TEXT_MODE",
	Timeout:            "PROCTOR_TEXT_TIMEOUT",
	HeuristicThreshold: "PROCTOR_TEXT_HEURISTIC_THRESHOLD",
}

// Config is the root configuration for the proctoring service.
type Config struct {
	Server          ServerConfig         `toml:"server"`
	Database        database.Config      `toml:"database"`
	Storage         storage.Config       `toml:"storage"`
	API             APIConfig            `toml:"api"`
	Detection       detection.Config     `toml:"detection"`
	Detectors       detectors.Config     `toml:"detectors"`
	Monitor         monitor.Config       `toml:"monitor"`
	Sessions        proctor.Config       `toml:"sessions"`
	Text            textanalysis.Config  `toml:"text"`
	Agent           gaconfig.AgentConfig `toml:"agent"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`
	LogLevel        string               `toml:"log_level"`
	LogFormat       string               `toml:"log_format"`
}

// Env returns the PROCTOR_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvProctorEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg, err := read(BaseConfigFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// LoadDetection reads base (if present) and the environment overlay like
// Load, but finalizes only the detection section. Offline tooling uses it
// without database or storage settings.
func LoadDetection(base string) (*detection.Config, error) {
	cfg, err := read(base)
	if err != nil {
		return nil, err
	}

	if err := cfg.Detection.Finalize(detectionEnv); err != nil {
		return nil, fmt.Errorf("detection: %w", err)
	}

	return &cfg.Detection, nil
}

func read(base string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	if overlay.LogFormat != "" {
		c.LogFormat = overlay.LogFormat
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Detection.Merge(&overlay.Detection)
	c.Detectors.Merge(&overlay.Detectors)
	c.Monitor.Merge(&overlay.Monitor)
	c.Sessions.Merge(&overlay.Sessions)
	c.Text.Merge(&overlay.Text)
	c.Agent.Merge(&overlay.Agent)
}

// Finalize applies defaults, environment overrides, and validation to
// every section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Detection.Finalize(detectionEnv); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if err := c.Detectors.Finalize(detectorsEnv); err != nil {
		return fmt.Errorf("detectors: %w", err)
	}
	if err := c.Monitor.Finalize(monitorEnv); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	if err := c.Sessions.Finalize(sessionsEnv); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	if err := c.Text.Finalize(textEnv); err != nil {
		return fmt.Errorf("text: %w", err)
	}
	if c.Text.Mode == textanalysis.ModeAgent {
		if err := FinalizeAgent(&c.Agent); err != nil {
			return fmt.Errorf("agent: %w", err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvProctorShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvProctorVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvProctorLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvProctorLogFormat); v != "" {
		c.LogFormat = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format: %q", c.LogFormat)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvProctorEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

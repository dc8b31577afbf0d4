package storage

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/proctor/pkg/formatting"
)

// MaxListCap bounds the page size of a blob listing.
const MaxListCap int32 = 5000

// Config holds the Azure Blob Storage account and upload tuning.
type Config struct {
	ContainerName     string `toml:"container_name"`
	ConnectionString  string `toml:"connection_string"`
	MaxListSize       int32  `toml:"max_list_size"`
	UploadBlockSize   string `toml:"upload_block_size"`
	UploadConcurrency int    `toml:"upload_concurrency"`
}

// Env names the environment variables that override Config.
type Env struct {
	ContainerName     string
	ConnectionString  string
	MaxListSize       string
	UploadBlockSize   string
	UploadConcurrency string
}

// UploadBlockSizeBytes returns UploadBlockSize in bytes.
func (c *Config) UploadBlockSizeBytes() int64 {
	n, _ := formatting.ParseBytes(c.UploadBlockSize)
	return n
}

func (c *Config) Finalize(env *Env) error {
	if c.ContainerName == "" {
		c.ContainerName = "reports"
	}
	if c.MaxListSize == 0 {
		c.MaxListSize = 50
	}
	if c.UploadBlockSize == "" {
		c.UploadBlockSize = "1MB"
	}
	if c.UploadConcurrency == 0 {
		c.UploadConcurrency = 2
	}

	if env != nil {
		if err := c.loadEnv(env); err != nil {
			return err
		}
	}
	c.MaxListSize = min(c.MaxListSize, MaxListCap)

	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.MaxListSize != 0 {
		c.MaxListSize = overlay.MaxListSize
	}
	if overlay.UploadBlockSize != "" {
		c.UploadBlockSize = overlay.UploadBlockSize
	}
	if overlay.UploadConcurrency != 0 {
		c.UploadConcurrency = overlay.UploadConcurrency
	}
}

func (c *Config) loadEnv(env *Env) error {
	if v := getenv(env.ContainerName); v != "" {
		c.ContainerName = v
	}
	if v := getenv(env.ConnectionString); v != "" {
		c.ConnectionString = v
	}
	if v := getenv(env.UploadBlockSize); v != "" {
		c.UploadBlockSize = v
	}
	if v := getenv(env.MaxListSize); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", env.MaxListSize, err)
		}
		c.MaxListSize = int32(n)
	}
	if v := getenv(env.UploadConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env.UploadConcurrency, err)
		}
		c.UploadConcurrency = n
	}
	return nil
}

func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func (c *Config) validate() error {
	var errs []error
	if c.ContainerName == "" {
		errs = append(errs, errors.New("container_name required"))
	}
	if c.ConnectionString == "" {
		errs = append(errs, errors.New("connection_string required"))
	}
	if c.MaxListSize < 1 {
		errs = append(errs, fmt.Errorf("max_list_size must be positive, got %d", c.MaxListSize))
	}
	if n, err := formatting.ParseBytes(c.UploadBlockSize); err != nil || n <= 0 {
		errs = append(errs, fmt.Errorf("invalid upload_block_size: %q", c.UploadBlockSize))
	}
	if c.UploadConcurrency < 1 {
		errs = append(errs, fmt.Errorf("upload_concurrency must be positive, got %d", c.UploadConcurrency))
	}
	return errors.Join(errs...)
}

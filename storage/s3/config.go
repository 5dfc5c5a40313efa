package s3

import (
	"errors"
	"fmt"

	"github.com/kbukum/pipedata/storage"
)

// DefaultRegion is the default AWS region.
const DefaultRegion = "us-east-1"

// Config holds S3-specific storage configuration.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // custom S3-compatible endpoint (e.g. MinIO)
	AccessKey string
	SecretKey string

	// ForcePathStyle forces path-style URLs instead of virtual-hosted-style.
	// Custom endpoints always use path style.
	ForcePathStyle bool
}

// FromStorageConfig picks the S3 fields out of the shared storage config.
func FromStorageConfig(cfg storage.Config) *Config {
	return &Config{
		Bucket:         cfg.Bucket,
		Region:         cfg.Region,
		Endpoint:       cfg.Endpoint,
		AccessKey:      cfg.AccessKey,
		SecretKey:      cfg.SecretKey,
		ForcePathStyle: cfg.ForcePathStyle,
	}
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

// Validate checks that the S3 configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.New("s3: bucket is required"))
	}
	if c.Region == "" {
		errs = append(errs, errors.New("s3: region is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("s3: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

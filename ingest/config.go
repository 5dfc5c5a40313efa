package ingest

import (
	"time"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/parquet/compress"

	"github.com/kbukum/pipedata/config"
	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/observability"
	"github.com/kbukum/pipedata/redis"
	"github.com/kbukum/pipedata/resilience"
	"github.com/kbukum/pipedata/storage"
	"github.com/kbukum/pipedata/validation"
)

// Record formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Config is the full configuration of a pipedata process running one job.
type Config struct {
	config.AppConfig `yaml:",inline" mapstructure:",squash"`

	// Job names the job in logs, metrics and stored reports.
	Job string `yaml:"job" mapstructure:"job" validate:"required"`
	// Schedule is a cron expression; empty runs the job once.
	Schedule string `yaml:"schedule" mapstructure:"schedule" validate:"omitempty,cron"`

	Source  SourceConfig  `yaml:"source" mapstructure:"source"`
	Format  FormatConfig  `yaml:"format" mapstructure:"format"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Reports ReportsConfig `yaml:"reports" mapstructure:"reports"`

	Storage   storage.Config         `yaml:"storage" mapstructure:"storage"`
	Redis     redis.Config           `yaml:"redis" mapstructure:"redis"`
	Retry     resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
	Telemetry observability.Config   `yaml:"telemetry" mapstructure:"telemetry"`

	// MetricsAddr serves Prometheus metrics while scheduled, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr" mapstructure:"metrics_addr"`
}

// SourceConfig selects where archive locators come from. Exactly one of the
// fields is set.
type SourceConfig struct {
	// Archives is a fixed list of storage keys.
	Archives []string `yaml:"archives" mapstructure:"archives"`
	// Prefix lists every .zip object under a storage prefix.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	// Queue is a redis list popped until empty.
	Queue string `yaml:"queue" mapstructure:"queue"`
}

// FormatConfig describes the archive members.
type FormatConfig struct {
	Type      string `yaml:"type" mapstructure:"type" validate:"required,oneof=csv json"`
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter" validate:"omitempty,len=1"`
	// JSONPath selects records, "item" for the elements of a top-level array.
	JSONPath string `yaml:"json_path" mapstructure:"json_path"`
	// Multiple accepts several concatenated JSON values per member.
	Multiple bool `yaml:"multiple" mapstructure:"multiple"`
}

// OutputConfig describes the parquet output.
type OutputConfig struct {
	// Path is the output path template, with {i} or {i:0Nd} when rotating.
	Path           string `yaml:"path" mapstructure:"path" validate:"required"`
	RowGroupLength int    `yaml:"row_group_length" mapstructure:"row_group_length" validate:"gte=0"`
	MaxFileLength  int    `yaml:"max_file_length" mapstructure:"max_file_length" validate:"gte=0"`
	Compression    string `yaml:"compression" mapstructure:"compression" validate:"omitempty,oneof=snappy gzip zstd none"`
	// ToStorage uploads finished files to the storage backend instead of
	// writing them to the local filesystem.
	ToStorage bool `yaml:"to_storage" mapstructure:"to_storage"`
}

// ReportsConfig controls where run reports are kept in redis.
type ReportsConfig struct {
	Prefix string        `yaml:"prefix" mapstructure:"prefix"`
	TTL    time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ApplyDefaults applies default values.
func (c *Config) ApplyDefaults() {
	c.AppConfig.ApplyDefaults()
	if c.Format.Type == "" {
		c.Format.Type = FormatJSON
	}
	if c.Format.JSONPath == "" {
		c.Format.JSONPath = "item"
	}
	if c.Output.Compression == "" {
		c.Output.Compression = "snappy"
	}
	if c.Reports.Prefix == "" {
		c.Reports.Prefix = "pipedata:reports"
	}
	if c.Reports.TTL == 0 {
		c.Reports.TTL = 7 * 24 * time.Hour
	}
	c.Storage.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Retry.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks the struct tags and the rules that span sections.
func (c *Config) Validate() error {
	if err := c.AppConfig.Validate(); err != nil {
		return errors.InvalidConfig("app", err.Error()).WithCause(err)
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return errors.InvalidConfig("storage", err.Error()).WithCause(err)
	}
	if err := c.Redis.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}

	sources := 0
	for _, set := range []bool{len(c.Source.Archives) > 0, c.Source.Prefix != "", c.Source.Queue != ""} {
		if set {
			sources++
		}
	}
	return validation.New().
		Custom(sources == 1, "source", "exactly one of archives, prefix or queue must be set").
		Custom(c.Source.Queue == "" || c.Redis.Enabled, "source.queue", "requires redis.enabled").
		Rotation("output.path", c.Output.Path, c.Output.MaxFileLength).
		Err()
}

// delimiter returns the configured CSV delimiter, which may be any single
// character including multi-byte ones such as '§'.
func (f FormatConfig) delimiter() (rune, bool) {
	if f.Delimiter == "" {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(f.Delimiter)
	return r, r != utf8.RuneError
}

// codec maps the configured compression name to a parquet codec.
func (o OutputConfig) codec() compress.Compression {
	switch o.Compression {
	case "gzip":
		return compress.Codecs.Gzip
	case "zstd":
		return compress.Codecs.Zstd
	case "none":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}

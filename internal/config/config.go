// Package config loads seqsubmit settings from YAML with SEQSUBMIT_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"seqsubmit/internal/archive"
	"seqsubmit/internal/blob"
	"seqsubmit/internal/document"
	"seqsubmit/internal/eligibility"
	"seqsubmit/internal/gdc"
	"seqsubmit/internal/ledger"
	"seqsubmit/internal/logging"
)

// Metrics exporters.
const (
	MetricsNone       = "none"
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
)

// Config is the full settings tree.
type Config struct {
	Archive   ArchiveConfig    `yaml:"archive"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
	GDC       GDCConfig        `yaml:"gdc"`
	Center    document.Center  `yaml:"center"`
	Schemas   document.Schemas `yaml:"schemas"`
	Output    OutputConfig     `yaml:"output"`
	Ledger    ledger.Config    `yaml:"ledger"`
	Logging   logging.Config   `yaml:"logging"`
	Batch     BatchConfig      `yaml:"batch"`
	Metrics   MetricsConfig    `yaml:"metrics"`
}

// ArchiveConfig points at the submission API. The token is normally
// supplied through SEQSUBMIT_ARCHIVE_TOKEN rather than the file.
type ArchiveConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token,omitempty"`
	Timeout string `yaml:"timeout"`
}

// TelemetryConfig points at the sample status report.
type TelemetryConfig struct {
	ReportURL string `yaml:"report_url"`
	Timeout   string `yaml:"timeout"`
}

// GDCConfig points at the GDC submission API for one program/project.
type GDCConfig struct {
	Endpoint string `yaml:"endpoint"`
	Program  string `yaml:"program,omitempty"`
	Project  string `yaml:"project,omitempty"`
	Token    string `yaml:"token,omitempty"`
	Timeout  string `yaml:"timeout"`
}

// OutputConfig selects where generated documents land.
type OutputConfig struct {
	Blob   blob.Config `yaml:",inline"`
	Prefix string      `yaml:"prefix"`
}

// BatchConfig bounds per-sample fan-out.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// MetricsConfig selects the step recorder.
type MetricsConfig struct {
	Exporter string `yaml:"exporter"`
	Name     string `yaml:"name"`
}

// Default returns a config that writes documents to ./out and keeps the
// ledger in a local SQLite file.
func Default() *Config {
	return &Config{
		Archive: ArchiveConfig{
			BaseURL: archive.DefaultBaseURL,
			Timeout: "60s",
		},
		Telemetry: TelemetryConfig{
			ReportURL: eligibility.DefaultReportURL,
			Timeout:   "30s",
		},
		GDC: GDCConfig{
			Endpoint: gdc.DefaultEndpoint,
			Timeout:  "60s",
		},
		Center:  document.DefaultCenter(),
		Schemas: document.DefaultSchemas(),
		Output: OutputConfig{
			Blob: blob.Config{Driver: blob.DriverFilesystem, Root: "./out"},
		},
		Ledger:  ledger.Config{Driver: ledger.DriverSQLite, Path: "seqsubmit.db"},
		Logging: logging.Default(),
		Batch:   BatchConfig{Concurrency: 4},
		Metrics: MetricsConfig{Exporter: MetricsExpvar, Name: "seqsubmit"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyEnvOverrides() error {
	strs := []struct {
		env    string
		target *string
	}{
		{"SEQSUBMIT_ARCHIVE_URL", &c.Archive.BaseURL},
		{"SEQSUBMIT_ARCHIVE_TOKEN", &c.Archive.Token},
		{"SEQSUBMIT_ARCHIVE_TIMEOUT", &c.Archive.Timeout},
		{"SEQSUBMIT_TELEMETRY_URL", &c.Telemetry.ReportURL},
		{"SEQSUBMIT_GDC_URL", &c.GDC.Endpoint},
		{"SEQSUBMIT_GDC_TOKEN", &c.GDC.Token},
		{"SEQSUBMIT_GDC_PROGRAM", &c.GDC.Program},
		{"SEQSUBMIT_GDC_PROJECT", &c.GDC.Project},
		{"SEQSUBMIT_BLOB_ROOT", &c.Output.Blob.Root},
		{"SEQSUBMIT_BLOB_PREFIX", &c.Output.Prefix},
		{"SEQSUBMIT_BLOB_S3_BUCKET", &c.Output.Blob.S3.Bucket},
		{"SEQSUBMIT_BLOB_S3_REGION", &c.Output.Blob.S3.Region},
		{"SEQSUBMIT_BLOB_S3_ENDPOINT", &c.Output.Blob.S3.Endpoint},
		{"SEQSUBMIT_SQLITE_PATH", &c.Ledger.Path},
		{"SEQSUBMIT_POSTGRES_DSN", &c.Ledger.DSN},
		{"SEQSUBMIT_LOG_LEVEL", &c.Logging.Level},
		{"SEQSUBMIT_LOG_FORMAT", &c.Logging.Format},
		{"SEQSUBMIT_METRICS", &c.Metrics.Exporter},
	}
	for _, s := range strs {
		if v := os.Getenv(s.env); v != "" {
			*s.target = v
		}
	}
	if v := os.Getenv("SEQSUBMIT_BLOB_DRIVER"); v != "" {
		c.Output.Blob.Driver = blob.Driver(v)
	}
	if v := os.Getenv("SEQSUBMIT_LEDGER_DRIVER"); v != "" {
		c.Ledger.Driver = ledger.Driver(v)
	}
	if v := os.Getenv("SEQSUBMIT_BLOB_S3_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SEQSUBMIT_BLOB_S3_PATH_STYLE: %w", err)
		}
		c.Output.Blob.S3.PathStyle = b
	}
	if v := os.Getenv("SEQSUBMIT_BATCH_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SEQSUBMIT_BATCH_CONCURRENCY: %w", err)
		}
		c.Batch.Concurrency = n
	}
	return nil
}

// Validate rejects unknown drivers, malformed durations and a
// non-positive concurrency.
func (c *Config) Validate() error {
	if c.Archive.BaseURL == "" {
		return errors.New("archive.base_url is required")
	}
	if _, err := c.ArchiveTimeout(); err != nil {
		return err
	}
	if _, err := c.TelemetryTimeout(); err != nil {
		return err
	}
	if _, err := c.GDCTimeout(); err != nil {
		return err
	}
	switch c.Output.Blob.Driver {
	case "", blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Output.Blob.S3.Bucket == "" {
			return errors.New("output.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("output.driver %q is not supported", c.Output.Blob.Driver)
	}
	switch c.Ledger.Driver {
	case "", ledger.DriverMemory, ledger.DriverSQLite, ledger.DriverPostgres:
	default:
		return fmt.Errorf("ledger.driver %q is not supported", c.Ledger.Driver)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be positive, got %d", c.Batch.Concurrency)
	}
	switch c.Metrics.Exporter {
	case "", MetricsNone, MetricsExpvar, MetricsPrometheus:
	default:
		return fmt.Errorf("metrics.exporter %q is not supported", c.Metrics.Exporter)
	}
	return nil
}

// ArchiveTimeout parses Archive.Timeout; empty means no timeout.
func (c *Config) ArchiveTimeout() (time.Duration, error) {
	return parseDuration("archive.timeout", c.Archive.Timeout)
}

// TelemetryTimeout parses Telemetry.Timeout; empty means no timeout.
func (c *Config) TelemetryTimeout() (time.Duration, error) {
	return parseDuration("telemetry.timeout", c.Telemetry.Timeout)
}

// GDCTimeout parses GDC.Timeout; empty means no timeout.
func (c *Config) GDCTimeout() (time.Duration, error) {
	return parseDuration("gdc.timeout", c.GDC.Timeout)
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqsubmit/internal/blob"
	"seqsubmit/internal/ledger"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	d, err := cfg.ArchiveTimeout()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
}

func TestLoadFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seqsubmit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
archive:
  base_url: https://archive.test/api
output:
  driver: s3
  prefix: batch-7
  s3:
    bucket: submissions
    path_style: true
ledger:
  driver: postgres
  dsn: postgres://db/seqsubmit
batch:
  concurrency: 8
center:
  name: TEST
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://archive.test/api", cfg.Archive.BaseURL)
	assert.Equal(t, blob.DriverS3, cfg.Output.Blob.Driver)
	assert.Equal(t, "submissions", cfg.Output.Blob.S3.Bucket)
	assert.True(t, cfg.Output.Blob.S3.PathStyle)
	assert.Equal(t, "batch-7", cfg.Output.Prefix)
	assert.Equal(t, ledger.DriverPostgres, cfg.Ledger.Driver)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, "TEST", cfg.Center.Name)
	// untouched sections keep their defaults
	assert.Equal(t, Default().Schemas, cfg.Schemas)
	assert.Equal(t, "30s", cfg.Telemetry.Timeout)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SEQSUBMIT_ARCHIVE_TOKEN", "secret")
	t.Setenv("SEQSUBMIT_LEDGER_DRIVER", "memory")
	t.Setenv("SEQSUBMIT_BLOB_DRIVER", "memory")
	t.Setenv("SEQSUBMIT_BATCH_CONCURRENCY", "2")
	t.Setenv("SEQSUBMIT_LOG_LEVEL", "debug")
	t.Setenv("SEQSUBMIT_GDC_PROGRAM", "BROAD")
	t.Setenv("SEQSUBMIT_GDC_TOKEN", "gdc-secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Archive.Token)
	assert.Equal(t, ledger.DriverMemory, cfg.Ledger.Driver)
	assert.Equal(t, blob.DriverMemory, cfg.Output.Blob.Driver)
	assert.Equal(t, 2, cfg.Batch.Concurrency)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "BROAD", cfg.GDC.Program)
	assert.Equal(t, "gdc-secret", cfg.GDC.Token)

	t.Setenv("SEQSUBMIT_BATCH_CONCURRENCY", "many")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no archive url", func(c *Config) { c.Archive.BaseURL = "" }},
		{"bad timeout", func(c *Config) { c.Archive.Timeout = "soon" }},
		{"bad telemetry timeout", func(c *Config) { c.Telemetry.Timeout = "later" }},
		{"bad gdc timeout", func(c *Config) { c.GDC.Timeout = "eventually" }},
		{"unknown blob driver", func(c *Config) { c.Output.Blob.Driver = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.Output.Blob.Driver = blob.DriverS3 }},
		{"unknown ledger driver", func(c *Config) { c.Ledger.Driver = "mysql" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"zero concurrency", func(c *Config) { c.Batch.Concurrency = 0 }},
		{"unknown exporter", func(c *Config) { c.Metrics.Exporter = "statsd" }},
	}
	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "seqsubmit.yaml")
	cfg := Default()
	cfg.Batch.Concurrency = 3
	cfg.Ledger = ledger.Config{Driver: ledger.DriverMemory}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch: [1, 2"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

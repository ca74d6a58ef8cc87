// Package ledger records what each registration produced so the workflow data
// tables can be updated afterwards. The ledger is write-only for the
// registration engine: remote state is always rebuilt from the archive.
package ledger

import (
	"context"
	"time"
)

// Driver identifies a persistence backend.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / dry runs)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// Config selects the ledger backend.
type Config struct {
	Driver Driver `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// Entry is the registration result for one sample.
type Entry struct {
	SampleID     string    `json:"sample_id"`
	SampleAlias  string    `json:"sample_alias"`
	SubmissionID string    `json:"submission_id"`
	ExperimentID string    `json:"experiment_id,omitempty"`
	RunIDs       []string  `json:"run_ids,omitempty"`
	DatasetID    string    `json:"dataset_id,omitempty"`
	State        string    `json:"state"`
	Finalized    bool      `json:"finalized"`
	BatchID      string    `json:"batch_id,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Key identifies an entry; re-recording a sample replaces its entry.
func (e Entry) Key() string { return e.SubmissionID + "/" + e.SampleID }

// Batch summarises one batch run.
type Batch struct {
	ID         string            `json:"id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Samples    int               `json:"samples"`
	Succeeded  int               `json:"succeeded"`
	Failures   map[string]string `json:"failures,omitempty"`
}

// Store persists ledger entries and batch summaries.
type Store interface {
	Record(ctx context.Context, e Entry) error
	RecordBatch(ctx context.Context, b Batch) error
	// Entries returns every entry ordered by key.
	Entries(ctx context.Context) ([]Entry, error)
	// Batches returns every batch ordered by start time.
	Batches(ctx context.Context) ([]Batch, error)
	Close() error
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"seqsubmit/internal/ledger"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")

	s, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if s.Path() != path {
		t.Fatalf("unexpected path %s", s.Path())
	}
	entry := ledger.Entry{
		SubmissionID: "SUB-1",
		SampleID:     "SM-1",
		SampleAlias:  "NA12878",
		ExperimentID: "11",
		RunIDs:       []string{"17"},
		DatasetID:    "EGAD00000000001",
		State:        "finalized",
		Finalized:    true,
		BatchID:      "b-1",
	}
	if err := s.Record(ctx, entry); err != nil {
		t.Fatalf("record: %v", err)
	}
	started := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if err := s.RecordBatch(ctx, ledger.Batch{ID: "b-1", StartedAt: started, Samples: 1, Succeeded: 1}); err != nil {
		t.Fatalf("record batch: %v", err)
	}
	var rows int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM state`).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 2 {
		t.Fatalf("expected 2 buckets, got %d", rows)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.Entries(ctx)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].DatasetID != "EGAD00000000001" || entries[0].RunIDs[0] != "17" || !entries[0].Finalized {
		t.Fatalf("unexpected entries %+v", entries)
	}
	batches, err := reopened.Batches(ctx)
	if err != nil {
		t.Fatalf("batches: %v", err)
	}
	if len(batches) != 1 || !batches[0].StartedAt.Equal(started) {
		t.Fatalf("unexpected batches %+v", batches)
	}
}

func TestStoreRejectsInvalidEntryWithoutPersisting(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()
	if err := s.Record(ctx, ledger.Entry{SampleID: "SM-1"}); err == nil {
		t.Fatalf("expected validation error")
	}
	var rows int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM state`).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected nothing persisted, got %d rows", rows)
	}
}

func TestStoreCorruptPayload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := s.DB().ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES('registrations', '{')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = s.Close()
	if _, err := NewStore(ctx, path); err == nil {
		t.Fatalf("expected decode error")
	}
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"seqsubmit/internal/ledger"
	"seqsubmit/internal/submiterr"
)

func TestStoreRecordReplacesBySample(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	runs := []string{"17"}
	if err := s.Record(ctx, ledger.Entry{SubmissionID: "SUB", SampleID: "SM-2", RunIDs: runs}); err != nil {
		t.Fatalf("record: %v", err)
	}
	runs[0] = "mutated"
	if err := s.Record(ctx, ledger.Entry{SubmissionID: "SUB", SampleID: "SM-1", State: "runs_ready"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(ctx, ledger.Entry{SubmissionID: "SUB", SampleID: "SM-1", State: "finalized"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := s.Entries(ctx)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].SampleID != "SM-1" || entries[0].State != "finalized" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].RunIDs[0] != "17" || entries[1].RecordedAt.IsZero() {
		t.Fatalf("entry not isolated or timestamped: %+v", entries[1])
	}
}

func TestStoreRecordValidates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, e := range []ledger.Entry{{SampleID: "SM-1"}, {SubmissionID: "SUB"}} {
		err := s.Record(ctx, e)
		if !errors.Is(err, submiterr.ErrMissingRequiredField) {
			t.Fatalf("expected missing field error, got %v", err)
		}
	}
	if err := s.RecordBatch(ctx, ledger.Batch{}); !errors.Is(err, submiterr.ErrMissingRequiredField) {
		t.Fatalf("expected missing batch id error, got %v", err)
	}
}

func TestStoreBatchesOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	_ = s.RecordBatch(ctx, ledger.Batch{ID: "b", StartedAt: t0.Add(time.Hour)})
	_ = s.RecordBatch(ctx, ledger.Batch{ID: "a", StartedAt: t0, Failures: map[string]string{"SM-9": "boom"}})
	got, err := s.Batches(ctx)
	if err != nil {
		t.Fatalf("batches: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" || got[0].Failures["SM-9"] != "boom" {
		t.Fatalf("unexpected batches %+v", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_ = s.Record(ctx, ledger.Entry{SubmissionID: "SUB", SampleID: "SM-1", RunIDs: []string{"1"}})
	snap := s.ExportState()
	snap.Registrations["SUB/SM-1"].RunIDs[0] = "changed"

	other := NewStore()
	other.ImportState(s.ExportState())
	entries, _ := other.Entries(ctx)
	if len(entries) != 1 || entries[0].RunIDs[0] != "1" {
		t.Fatalf("unexpected imported entries %+v", entries)
	}

	for _, bucket := range Buckets {
		if _, err := snap.Target(bucket); err != nil {
			t.Fatalf("target %s: %v", bucket, err)
		}
		if _, err := snap.Value(bucket); err != nil {
			t.Fatalf("value %s: %v", bucket, err)
		}
	}
	if _, err := snap.Target("organisms"); err == nil {
		t.Fatalf("expected unknown bucket error")
	}
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"seqsubmit/internal/infra/persistence/postgres/testutil"
	"seqsubmit/internal/ledger"
)

func openStub(t *testing.T) (*testutil.StubConn, func()) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != defaultDriver {
			t.Fatalf("unexpected driver %s", driverName)
		}
		return db, nil
	})
	return conn, restore
}

func TestStoreSnapshotsAfterWrites(t *testing.T) {
	ctx := context.Background()
	conn, restore := openStub(t)
	defer restore()

	s, err := NewStore(ctx, "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if !strings.Contains(conn.Execs[0], "CREATE TABLE IF NOT EXISTS state") {
		t.Fatalf("expected state DDL first, got %v", conn.Execs)
	}
	if err := s.Record(ctx, ledger.Entry{SubmissionID: "SUB", SampleID: "SM-1", RunIDs: []string{"17"}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.RecordBatch(ctx, ledger.Batch{ID: "b-1", Samples: 1}); err != nil {
		t.Fatalf("record batch: %v", err)
	}
	if conn.Commits != 2 {
		t.Fatalf("expected 2 commits, got %d", conn.Commits)
	}
	rows := conn.Tables["state"]
	if len(rows) != 2 {
		t.Fatalf("expected one row per bucket, got %d", len(rows))
	}
	var registrations map[string]ledger.Entry
	for _, row := range rows {
		if row["bucket"] == "registrations" {
			if err := json.Unmarshal(row["payload"].([]byte), &registrations); err != nil {
				t.Fatalf("decode: %v", err)
			}
		}
	}
	if registrations["SUB/SM-1"].RunIDs[0] != "17" {
		t.Fatalf("unexpected persisted registrations %+v", registrations)
	}
}

func TestStoreHydratesFromSnapshot(t *testing.T) {
	ctx := context.Background()
	conn, restore := openStub(t)
	defer restore()
	conn.Tables["state"] = []map[string]any{
		{"bucket": "registrations", "payload": []byte(`{"SUB/SM-1":{"sample_id":"SM-1","submission_id":"SUB","state":"finalized","finalized":true}}`)},
		{"bucket": "unknown", "payload": []byte(`[]`)},
		{"bucket": "batches", "payload": []byte(nil)},
	}
	s, err := NewStore(ctx, "postgres://db/ledger")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	entries, err := s.Entries(ctx)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || !entries[0].Finalized {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		setup func(*testutil.StubConn)
		open  bool
	}{
		{"ping", func(c *testutil.StubConn) { c.FailPing = true }, true},
		{"ddl", func(c *testutil.StubConn) { c.FailExec = true }, true},
		{"corrupt snapshot", func(c *testutil.StubConn) {
			c.Tables["state"] = []map[string]any{{"bucket": "registrations", "payload": []byte("{")}}
		}, true},
		{"begin", func(c *testutil.StubConn) { c.FailBegin = true }, false},
		{"commit", func(c *testutil.StubConn) { c.FailCommit = true }, false},
		{"upsert", func(c *testutil.StubConn) { c.FailTables = map[string]bool{"state": true} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, restore := openStub(t)
			defer restore()
			if tt.open {
				tt.setup(conn)
				if _, err := NewStore(ctx, ""); err == nil {
					t.Fatalf("expected open failure")
				}
				return
			}
			s, err := NewStore(ctx, "")
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			tt.setup(conn)
			if err := s.Record(ctx, ledger.Entry{SubmissionID: "SUB", SampleID: "SM-1"}); err == nil {
				t.Fatalf("expected persist failure")
			}
		})
	}
}

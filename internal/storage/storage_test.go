package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"seqsubmit/internal/infra/persistence/memory"
	"seqsubmit/internal/infra/persistence/postgres"
	"seqsubmit/internal/infra/persistence/postgres/testutil"
	"seqsubmit/internal/infra/persistence/sqlite"
	"seqsubmit/internal/ledger"
)

func TestOpenLedgerDrivers(t *testing.T) {
	ctx := context.Background()

	mem, err := OpenLedger(ctx, ledger.Config{Driver: ledger.DriverMemory})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := mem.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", mem)
	}

	lite, err := OpenLedger(ctx, ledger.Config{Path: filepath.Join(t.TempDir(), "ledger.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, ok := lite.(*sqlite.Store); !ok {
		t.Fatalf("expected sqlite store by default, got %T", lite)
	}
	if err := lite.Close(); err != nil {
		t.Fatalf("close sqlite: %v", err)
	}

	db, _ := testutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	pg, err := OpenLedger(ctx, ledger.Config{Driver: ledger.DriverPostgres, DSN: "postgres://stub"})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if _, ok := pg.(*postgres.Store); !ok {
		t.Fatalf("expected postgres store, got %T", pg)
	}

	if _, err := OpenLedger(ctx, ledger.Config{Driver: "dynamo"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

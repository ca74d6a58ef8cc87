// Package storage opens the persistence backends named in configuration.
package storage

import (
	"context"
	"fmt"

	"seqsubmit/internal/infra/persistence/memory"
	"seqsubmit/internal/infra/persistence/postgres"
	"seqsubmit/internal/infra/persistence/sqlite"
	"seqsubmit/internal/ledger"
)

// OpenLedger selects a ledger backend. The zero Config opens SQLite at the
// default path.
func OpenLedger(ctx context.Context, cfg ledger.Config) (ledger.Store, error) {
	switch cfg.Driver {
	case ledger.DriverMemory:
		return memory.NewStore(), nil
	case "", ledger.DriverSQLite:
		return sqlite.NewStore(ctx, cfg.Path)
	case ledger.DriverPostgres:
		return postgres.NewStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}
}

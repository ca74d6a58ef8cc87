// Package memory provides the in-memory ledger store. The SQLite and Postgres
// stores embed it and snapshot its state after every write.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"seqsubmit/internal/ledger"
	"seqsubmit/internal/submiterr"
)

var _ ledger.Store = (*Store)(nil)

// Snapshot captures a point-in-time clone of the store state. Each field is
// persisted as one bucket.
type Snapshot struct {
	Registrations map[string]ledger.Entry `json:"registrations"`
	Batches       map[string]ledger.Batch `json:"batches"`
}

// Buckets names the snapshot buckets in persistence order.
var Buckets = []string{"registrations", "batches"}

func newSnapshot() Snapshot {
	return Snapshot{
		Registrations: make(map[string]ledger.Entry),
		Batches:       make(map[string]ledger.Batch),
	}
}

// Store keeps the ledger in process memory.
type Store struct {
	mu    sync.RWMutex
	state Snapshot
	now   func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newSnapshot(), now: func() time.Time { return time.Now().UTC() }}
}

// Record inserts or replaces the entry for e's sample.
func (s *Store) Record(_ context.Context, e ledger.Entry) error {
	if e.SubmissionID == "" {
		return submiterr.MissingFieldError{Entity: "ledger entry", Field: "submission_id"}
	}
	if e.SampleID == "" {
		return submiterr.MissingFieldError{Entity: "ledger entry", Field: "sample_id"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.now()
	}
	s.state.Registrations[e.Key()] = cloneEntry(e)
	return nil
}

// RecordBatch inserts or replaces a batch summary.
func (s *Store) RecordBatch(_ context.Context, b ledger.Batch) error {
	if b.ID == "" {
		return submiterr.MissingFieldError{Entity: "ledger batch", Field: "id"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Batches[b.ID] = cloneBatch(b)
	return nil
}

// Entries returns all entries ordered by key.
func (s *Store) Entries(_ context.Context) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := slices.Sorted(maps.Keys(s.state.Registrations))
	out := make([]ledger.Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, cloneEntry(s.state.Registrations[k]))
	}
	return out, nil
}

// Batches returns all batch summaries ordered by start time, then id.
func (s *Store) Batches(_ context.Context) ([]ledger.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Batch, 0, len(s.state.Batches))
	for _, b := range s.state.Batches {
		out = append(out, cloneBatch(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ExportState returns a deep copy of the current state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := newSnapshot()
	for k, e := range s.state.Registrations {
		out.Registrations[k] = cloneEntry(e)
	}
	for k, b := range s.state.Batches {
		out.Batches[k] = cloneBatch(b)
	}
	return out
}

// ImportState replaces the current state with a copy of snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	next := newSnapshot()
	for k, e := range snapshot.Registrations {
		next.Registrations[k] = cloneEntry(e)
	}
	for k, b := range snapshot.Batches {
		next.Batches[k] = cloneBatch(b)
	}
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// Target returns the snapshot field a bucket decodes into.
func (snap *Snapshot) Target(bucket string) (any, error) {
	switch bucket {
	case "registrations":
		return &snap.Registrations, nil
	case "batches":
		return &snap.Batches, nil
	default:
		return nil, fmt.Errorf("unknown ledger bucket %q", bucket)
	}
}

// Value returns the snapshot field stored in a bucket.
func (snap Snapshot) Value(bucket string) (any, error) {
	switch bucket {
	case "registrations":
		return snap.Registrations, nil
	case "batches":
		return snap.Batches, nil
	default:
		return nil, fmt.Errorf("unknown ledger bucket %q", bucket)
	}
}

func cloneEntry(e ledger.Entry) ledger.Entry {
	e.RunIDs = slices.Clone(e.RunIDs)
	return e
}

func cloneBatch(b ledger.Batch) ledger.Batch {
	b.Failures = maps.Clone(b.Failures)
	return b
}

package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"seqsubmit/internal/submiterr"
)

// MemoryArchive is an in-process archive. It behaves like the remote API for
// the calls the engine makes and counts every create.
type MemoryArchive struct {
	mu        sync.Mutex
	seq       int
	entities  map[string]map[Kind][]Entity
	global    map[Kind][]Entity
	files     []File
	creates   map[Kind]int
	finalized map[string][]FinalizeRequest
	failures  map[string]error
}

var (
	_ Client     = (*MemoryArchive)(nil)
	_ FileSource = (*MemoryArchive)(nil)
)

// NewMemoryArchive returns an empty archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		entities:  make(map[string]map[Kind][]Entity),
		global:    make(map[Kind][]Entity),
		creates:   make(map[Kind]int),
		finalized: make(map[string][]FinalizeRequest),
		failures:  make(map[string]error),
	}
}

func (m *MemoryArchive) nextID() ID {
	m.seq++
	return ID(strconv.Itoa(m.seq))
}

// AddSample registers a sample under submissionID and returns its id.
func (m *MemoryArchive) AddSample(submissionID, alias string) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := Entity{ProvisionalID: m.nextID(), Alias: alias}
	m.put(submissionID, KindSamples, e)
	return e.ProvisionalID
}

// AddPolicy registers a global policy and returns its accession id.
func (m *MemoryArchive) AddPolicy(title string) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := ID(fmt.Sprintf("EGAP%011d", m.seq))
	m.global[KindPolicies] = append(m.global[KindPolicies], Entity{AccessionID: id, Title: title})
	return id
}

// AddInboxFile uploads a file to the inbox. A missing provisional id is assigned.
func (m *MemoryArchive) AddInboxFile(f File) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ProvisionalID == "" {
		f.ProvisionalID = m.nextID()
	}
	m.files = append(m.files, f)
	return f.ProvisionalID
}

// FailOn makes the next call named op ("list", "create", "finalize") on kind
// return err. Finalize failures use the empty kind.
func (m *MemoryArchive) FailOn(op string, kind Kind, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op+":"+string(kind)] = err
}

func (m *MemoryArchive) takeFailure(op string, kind Kind) error {
	key := op + ":" + string(kind)
	err, ok := m.failures[key]
	if ok {
		delete(m.failures, key)
	}
	return err
}

// Creates returns the number of create calls made for kind.
func (m *MemoryArchive) Creates(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates[kind]
}

// TotalCreates returns the number of create calls across all kinds.
func (m *MemoryArchive) TotalCreates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.creates {
		total += n
	}
	return total
}

// Finalizations returns the finalize requests received for submissionID.
func (m *MemoryArchive) Finalizations(submissionID string) []FinalizeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FinalizeRequest(nil), m.finalized[submissionID]...)
}

func (m *MemoryArchive) put(submissionID string, kind Kind, e Entity) {
	if kind.Global() {
		m.global[kind] = append(m.global[kind], e)
		return
	}
	byKind, ok := m.entities[submissionID]
	if !ok {
		byKind = make(map[Kind][]Entity)
		m.entities[submissionID] = byKind
	}
	byKind[kind] = append(byKind[kind], e)
}

func (m *MemoryArchive) list(submissionID string, kind Kind) []Entity {
	if kind.Global() {
		return append([]Entity(nil), m.global[kind]...)
	}
	return append([]Entity(nil), m.entities[submissionID][kind]...)
}

// ListEntities implements Client.
func (m *MemoryArchive) ListEntities(_ context.Context, submissionID string, kind Kind) ([]Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("list", kind); err != nil {
		return nil, err
	}
	return m.list(submissionID, kind), nil
}

// CreateEntity implements Client.
func (m *MemoryArchive) CreateEntity(_ context.Context, submissionID string, kind Kind, payload any) ([]Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates[kind]++
	if err := m.takeFailure("create", kind); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &submiterr.RemoteError{Step: "create " + string(kind), Status: http.StatusBadRequest, Body: err.Error()}
	}
	var e Entity
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, &submiterr.RemoteError{Step: "create " + string(kind), Status: http.StatusBadRequest, Body: err.Error()}
	}
	e.ProvisionalID = m.nextID()

	switch kind {
	case KindRuns:
		var req RunRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, &submiterr.RemoteError{Step: "create runs", Status: http.StatusBadRequest, Body: err.Error()}
		}
		e.Experiment = &Ref{ProvisionalID: req.ExperimentProvisionalID}
		e.Sample = &Ref{ProvisionalID: req.SampleProvisionalID}
		for _, s := range m.list(submissionID, KindSamples) {
			if s.ID() == req.SampleProvisionalID {
				e.Sample.Alias = s.Alias
			}
		}
	case KindDatasets:
		e.AccessionID = ID(fmt.Sprintf("EGAD%011d", m.seq))
	}
	m.put(submissionID, kind, e)
	return []Entity{e}, nil
}

// Finalize implements Client.
func (m *MemoryArchive) Finalize(_ context.Context, submissionID string, req FinalizeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("finalize", ""); err != nil {
		return err
	}
	m.finalized[submissionID] = append(m.finalized[submissionID], req)
	return nil
}

// ListInboxFiles implements FileSource.
func (m *MemoryArchive) ListInboxFiles(_ context.Context, _ string) ([]File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("list", KindFiles); err != nil {
		return nil, err
	}
	return append([]File(nil), m.files...), nil
}

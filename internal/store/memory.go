package store

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/lox/holdemtable/internal/game"
)

// MemoryStore keeps everything in process memory. Only the latest snapshot
// of each table is retained unless the store was created WithHistory.
type MemoryStore struct {
	mu        sync.RWMutex
	byName    map[string]string
	tables    map[string]TableRecord
	rosters   map[string][]SeatRecord
	snapshots map[string][]game.TableSnapshot
	history   bool
	failWith  error
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithHistory keeps every persisted snapshot instead of only the latest
func WithHistory() MemoryOption {
	return func(m *MemoryStore) {
		m.history = true
	}
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		byName:    make(map[string]string),
		tables:    make(map[string]TableRecord),
		rosters:   make(map[string][]SeatRecord),
		snapshots: make(map[string][]game.TableSnapshot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FailWith makes every following call fail with err. Pass nil to recover.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MemoryStore) FindOrCreateTable(ctx context.Context, config game.TableConfig) (TableRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return TableRecord{}, storageError("find table", config.Name, m.failWith)
	}
	if id, ok := m.byName[config.Name]; ok {
		return m.tables[id], nil
	}

	id := config.ID
	if id == "" {
		id = uuid.NewString()
	}
	record := NewTableRecord(id, config)
	m.byName[config.Name] = id
	m.tables[id] = record
	return record, nil
}

func (m *MemoryStore) LoadRoster(ctx context.Context, tableID string) ([]SeatRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failWith != nil {
		return nil, storageError("load roster", tableID, m.failWith)
	}
	return slices.Clone(m.rosters[tableID]), nil
}

func (m *MemoryStore) Persist(ctx context.Context, snapshot game.TableSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return storageError("persist", snapshot.TableID, m.failWith)
	}
	table, seats := recordsFromSnapshot(snapshot)
	m.tables[table.ID] = table
	m.byName[table.Name] = table.ID
	m.rosters[table.ID] = seats
	if m.history {
		m.snapshots[table.ID] = append(m.snapshots[table.ID], snapshot)
	} else {
		m.snapshots[table.ID] = []game.TableSnapshot{snapshot}
	}
	return nil
}

// LatestSnapshot returns the last persisted snapshot of a table
func (m *MemoryStore) LatestSnapshot(ctx context.Context, tableID string) (game.TableSnapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failWith != nil {
		return game.TableSnapshot{}, false, storageError("load snapshot", tableID, m.failWith)
	}
	snapshots := m.snapshots[tableID]
	if len(snapshots) == 0 {
		return game.TableSnapshot{}, false, nil
	}
	return snapshots[len(snapshots)-1], true, nil
}

// Snapshots returns the retained snapshots of a table, oldest first
func (m *MemoryStore) Snapshots(tableID string) []game.TableSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.snapshots[tableID])
}

// Table returns the stored record of a table
func (m *MemoryStore) Table(tableID string) (TableRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.tables[tableID]
	return record, ok
}

func (m *MemoryStore) Close() error { return nil }

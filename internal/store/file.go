package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/lox/holdemtable/internal/game"
)

// FileStore keeps one directory per table under a root directory:
//
//	<root>/names.json              table name -> table ID
//	<root>/<id>/table.json         TableRecord
//	<root>/<id>/roster.json        []SeatRecord
//	<root>/<id>/snapshot.json      latest game.TableSnapshot
//
// Every file is replaced atomically so a crash leaves either the previous
// or the new version, never a partial write. FileStore is safe for use by
// one process at a time.
type FileStore struct {
	mu   sync.Mutex
	root string
}

// NewFileStore opens a FileStore rooted at dir, creating it when missing
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, storageError("open", "", errors.New("a directory is required"))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageError("open", "", err)
	}
	return &FileStore{root: dir}, nil
}

func (f *FileStore) namesPath() string             { return filepath.Join(f.root, "names.json") }
func (f *FileStore) tablePath(id string) string    { return filepath.Join(f.root, id, "table.json") }
func (f *FileStore) rosterPath(id string) string   { return filepath.Join(f.root, id, "roster.json") }
func (f *FileStore) snapshotPath(id string) string { return filepath.Join(f.root, id, "snapshot.json") }

func (f *FileStore) FindOrCreateTable(ctx context.Context, config game.TableConfig) (TableRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := map[string]string{}
	if _, err := readJSON(f.namesPath(), &names); err != nil {
		return TableRecord{}, storageError("find table", config.Name, err)
	}

	if id, ok := names[config.Name]; ok {
		var record TableRecord
		found, err := readJSON(f.tablePath(id), &record)
		if err != nil {
			return TableRecord{}, storageError("find table", id, err)
		}
		if found {
			return record, nil
		}
		// Name recorded but the table file never landed.
		record = NewTableRecord(id, config)
		if err := f.writeTable(record); err != nil {
			return TableRecord{}, storageError("create table", id, err)
		}
		return record, nil
	}

	id := config.ID
	if id == "" {
		id = uuid.NewString()
	}
	record := NewTableRecord(id, config)
	if err := f.writeTable(record); err != nil {
		return TableRecord{}, storageError("create table", id, err)
	}
	names[config.Name] = id
	if err := writeJSONAtomic(f.namesPath(), names); err != nil {
		return TableRecord{}, storageError("create table", id, err)
	}
	return record, nil
}

func (f *FileStore) LoadRoster(ctx context.Context, tableID string) ([]SeatRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var seats []SeatRecord
	if _, err := readJSON(f.rosterPath(tableID), &seats); err != nil {
		return nil, storageError("load roster", tableID, err)
	}
	return seats, nil
}

func (f *FileStore) Persist(ctx context.Context, snapshot game.TableSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	table, seats := recordsFromSnapshot(snapshot)
	if err := f.writeTable(table); err != nil {
		return storageError("persist", table.ID, err)
	}
	if err := writeJSONAtomic(f.rosterPath(table.ID), seats); err != nil {
		return storageError("persist", table.ID, err)
	}
	if err := writeJSONAtomic(f.snapshotPath(table.ID), snapshot); err != nil {
		return storageError("persist", table.ID, err)
	}
	return nil
}

// LatestSnapshot returns the last persisted snapshot of a table
func (f *FileStore) LatestSnapshot(ctx context.Context, tableID string) (game.TableSnapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var snapshot game.TableSnapshot
	found, err := readJSON(f.snapshotPath(tableID), &snapshot)
	if err != nil {
		return game.TableSnapshot{}, false, storageError("load snapshot", tableID, err)
	}
	return snapshot, found, nil
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) writeTable(record TableRecord) error {
	if err := os.MkdirAll(filepath.Join(f.root, record.ID), 0o755); err != nil {
		return err
	}
	return writeJSONAtomic(f.tablePath(record.ID), record)
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("could not decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// writeJSONAtomic encodes v and swaps it into place with a rename. The
// temporary file lives in the target directory because renames across
// filesystems are not atomic.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		committed = true
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	committed = true
	return nil
}

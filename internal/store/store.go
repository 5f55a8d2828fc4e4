// Package store persists tables, their rosters and the latest snapshot of
// each table.
//
// MemoryStore serves tests and simulations. FileStore keeps a single
// process across restarts. RedisStore and PostgresStore back deployments.
// Every backend failure is returned as a *StorageError so callers can tell
// storage problems apart from game rule rejections.
package store

import (
	"context"
	"fmt"

	"github.com/lox/holdemtable/internal/game"
)

// TableRecord is the persisted form of a table
type TableRecord struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	SmallBlind int    `db:"small_blind" json:"small_blind"`
	BigBlind   int    `db:"big_blind" json:"big_blind"`
	MinPlayers int    `db:"min_players" json:"min_players"`
	MaxPlayers int    `db:"max_players" json:"max_players"`
	MinBuyIn   int    `db:"min_buy_in" json:"min_buy_in"`
	MaxBuyIn   int    `db:"max_buy_in" json:"max_buy_in"`
	Status     string `db:"status" json:"status"`
	Dealer     int    `db:"dealer" json:"dealer"`
	HandNumber int    `db:"hand_number" json:"hand_number"`
}

// NewTableRecord creates a waiting table record from config
func NewTableRecord(id string, config game.TableConfig) TableRecord {
	return TableRecord{
		ID:         id,
		Name:       config.Name,
		SmallBlind: config.SmallBlind,
		BigBlind:   config.BigBlind,
		MinPlayers: config.MinPlayers,
		MaxPlayers: config.MaxPlayers,
		MinBuyIn:   config.MinBuyIn,
		MaxBuyIn:   config.MaxBuyIn,
		Status:     game.Waiting.String(),
	}
}

// Config returns the table configuration stored in the record
func (r TableRecord) Config() game.TableConfig {
	return game.TableConfig{
		ID:         r.ID,
		Name:       r.Name,
		SmallBlind: r.SmallBlind,
		BigBlind:   r.BigBlind,
		MinPlayers: r.MinPlayers,
		MaxPlayers: r.MaxPlayers,
		MinBuyIn:   r.MinBuyIn,
		MaxBuyIn:   r.MaxBuyIn,
	}
}

// SeatRecord is one persisted seat
type SeatRecord struct {
	TableID  string `db:"table_id" json:"table_id"`
	Identity string `db:"identity" json:"identity"`
	Seat     int    `db:"seat" json:"seat"`
	Chips    int    `db:"chips" json:"chips"`
}

// Store persists tables and their rosters
type Store interface {
	// FindOrCreateTable returns the table named config.Name, creating it
	// when it does not exist. A new table gets config.ID, or a fresh ID when
	// that is empty.
	FindOrCreateTable(ctx context.Context, config game.TableConfig) (TableRecord, error)

	// LoadRoster returns the persisted seats of a table in seat order
	LoadRoster(ctx context.Context, tableID string) ([]SeatRecord, error)

	// Persist records a table snapshot together with its roster
	Persist(ctx context.Context, snapshot game.TableSnapshot) error

	Close() error
}

// StorageError wraps a failure reported by a storage backend
type StorageError struct {
	Op      string
	TableID string
	Err     error
}

func (e *StorageError) Error() string {
	if e.TableID == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s table %s: %v", e.Op, e.TableID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageError(op, tableID string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, TableID: tableID, Err: err}
}

// recordsFromSnapshot converts a snapshot into its table and roster records.
// A hand interrupted by a restart is void, so chips committed to it are
// counted back into each stack.
func recordsFromSnapshot(s game.TableSnapshot) (TableRecord, []SeatRecord) {
	table := TableRecord{
		ID:         s.TableID,
		Name:       s.Name,
		SmallBlind: s.SmallBlind,
		BigBlind:   s.BigBlind,
		MinPlayers: s.MinPlayers,
		MaxPlayers: s.MaxPlayers,
		MinBuyIn:   s.MinBuyIn,
		MaxBuyIn:   s.MaxBuyIn,
		Status:     s.Status,
		Dealer:     s.Dealer,
		HandNumber: s.HandNumber,
	}

	seats := make([]SeatRecord, 0, len(s.Seats))
	for _, seat := range s.Seats {
		if seat.LeavePending {
			continue
		}
		seats = append(seats, SeatRecord{
			TableID:  s.TableID,
			Identity: seat.Identity,
			Seat:     len(seats),
			Chips:    seat.Chips + seat.TotalBet,
		})
	}
	return table, seats
}

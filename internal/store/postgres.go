package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/lox/holdemtable/internal/game"
)

const schema = `
CREATE TABLE IF NOT EXISTS poker_table (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	small_blind INTEGER NOT NULL,
	big_blind   INTEGER NOT NULL,
	min_players INTEGER NOT NULL,
	max_players INTEGER NOT NULL,
	min_buy_in  INTEGER NOT NULL,
	max_buy_in  INTEGER NOT NULL,
	status      TEXT NOT NULL DEFAULT 'waiting',
	dealer      INTEGER NOT NULL DEFAULT 0,
	hand_number INTEGER NOT NULL DEFAULT 0,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_table (
	table_id TEXT NOT NULL REFERENCES poker_table (id) ON DELETE CASCADE,
	identity TEXT NOT NULL,
	seat     INTEGER NOT NULL,
	chips    INTEGER NOT NULL,
	PRIMARY KEY (table_id, identity)
);
`

const tableColumns = `id, name, small_blind, big_blind, min_players, max_players, min_buy_in, max_buy_in, status, dealer, hand_number`

// PostgresStore keeps tables in the poker_table relation and seats in
// user_table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to dsn and creates the schema when missing
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, storageError("connect", "", errors.Wrap(err, "could not connect to postgres"))
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, storageError("migrate", "", errors.Wrap(err, "could not create schema"))
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) FindOrCreateTable(ctx context.Context, config game.TableConfig) (TableRecord, error) {
	id := config.ID
	if id == "" {
		id = uuid.NewString()
	}
	record := NewTableRecord(id, config)

	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO poker_table (`+tableColumns+`)
		VALUES (:id, :name, :small_blind, :big_blind, :min_players, :max_players, :min_buy_in, :max_buy_in, :status, :dealer, :hand_number)
		ON CONFLICT (name) DO NOTHING`, record)
	if err != nil {
		return TableRecord{}, storageError("create table", config.Name, errors.Wrap(err, "insert into poker_table failed"))
	}

	var existing TableRecord
	err = p.db.GetContext(ctx, &existing, "SELECT "+tableColumns+" FROM poker_table WHERE name = $1", config.Name)
	if err != nil {
		return TableRecord{}, storageError("find table", config.Name, errors.Wrap(err, "sqlx Get returned an error"))
	}
	return existing, nil
}

func (p *PostgresStore) LoadRoster(ctx context.Context, tableID string) ([]SeatRecord, error) {
	var seats []SeatRecord
	err := p.db.SelectContext(ctx, &seats,
		"SELECT table_id, identity, seat, chips FROM user_table WHERE table_id = $1 ORDER BY seat", tableID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storageError("load roster", tableID, errors.Wrap(err, "sqlx Select returned an error"))
	}
	return seats, nil
}

func (p *PostgresStore) Persist(ctx context.Context, snapshot game.TableSnapshot) error {
	table, seats := recordsFromSnapshot(snapshot)

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageError("persist", table.ID, errors.Wrap(err, "could not begin transaction"))
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		UPDATE poker_table
		SET status = :status, dealer = :dealer, hand_number = :hand_number, updated_at = now()
		WHERE id = :id`, table)
	if err != nil {
		return storageError("persist", table.ID, errors.Wrap(err, "update poker_table failed"))
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_table WHERE table_id = $1", table.ID); err != nil {
		return storageError("persist", table.ID, errors.Wrap(err, "clear user_table failed"))
	}
	for _, seat := range seats {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO user_table (table_id, identity, seat, chips)
			VALUES (:table_id, :identity, :seat, :chips)`, seat)
		if err != nil {
			return storageError("persist", table.ID, errors.Wrapf(err, "insert seat for %s failed", seat.Identity))
		}
	}

	if err := tx.Commit(); err != nil {
		return storageError("persist", table.ID, errors.Wrap(err, "commit failed"))
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

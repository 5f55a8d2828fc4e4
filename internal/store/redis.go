package store

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/lox/holdemtable/internal/game"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisStore keeps tables as JSON documents in Redis.
//
// Keys:
//
//	<prefix>:name:<name>      table ID for a table name
//	<prefix>:table:<id>       TableRecord
//	<prefix>:roster:<id>      []SeatRecord
//	<prefix>:snapshot:<id>    latest public TableSnapshot
type RedisStore struct {
	rdclient *redis.Client
	prefix   string
}

// RedisOptions configures a RedisStore
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore connects to Redis and checks the connection
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	rdclient := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdclient.Ping(ctx).Err(); err != nil {
		rdclient.Close()
		return nil, storageError("connect", "", errors.Wrapf(err, "could not reach redis at %s", opts.Address))
	}
	return NewRedisStoreWithClient(rdclient, opts.Prefix), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(rdclient *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "holdem"
	}
	return &RedisStore{rdclient: rdclient, prefix: prefix}
}

func (r *RedisStore) nameKey(name string) string   { return r.prefix + ":name:" + name }
func (r *RedisStore) tableKey(id string) string    { return r.prefix + ":table:" + id }
func (r *RedisStore) rosterKey(id string) string   { return r.prefix + ":roster:" + id }
func (r *RedisStore) snapshotKey(id string) string { return r.prefix + ":snapshot:" + id }

func (r *RedisStore) FindOrCreateTable(ctx context.Context, config game.TableConfig) (TableRecord, error) {
	id := config.ID
	if id == "" {
		id = uuid.NewString()
	}

	// SetNX settles races between processes creating the same table.
	created, err := r.rdclient.SetNX(ctx, r.nameKey(config.Name), id, 0).Result()
	if err != nil {
		return TableRecord{}, storageError("find table", config.Name, errors.Wrap(err, "could not claim table name"))
	}
	if created {
		record := NewTableRecord(id, config)
		if err := r.setJSON(ctx, r.tableKey(id), record); err != nil {
			return TableRecord{}, storageError("create table", id, err)
		}
		return record, nil
	}

	id, err = r.rdclient.Get(ctx, r.nameKey(config.Name)).Result()
	if err != nil {
		return TableRecord{}, storageError("find table", config.Name, errors.Wrap(err, "could not read table id"))
	}
	var record TableRecord
	found, err := r.getJSON(ctx, r.tableKey(id), &record)
	if err != nil {
		return TableRecord{}, storageError("find table", id, err)
	}
	if !found {
		// Name claimed but the record was never written.
		record = NewTableRecord(id, config)
		if err := r.setJSON(ctx, r.tableKey(id), record); err != nil {
			return TableRecord{}, storageError("create table", id, err)
		}
	}
	return record, nil
}

func (r *RedisStore) LoadRoster(ctx context.Context, tableID string) ([]SeatRecord, error) {
	var seats []SeatRecord
	if _, err := r.getJSON(ctx, r.rosterKey(tableID), &seats); err != nil {
		return nil, storageError("load roster", tableID, err)
	}
	return seats, nil
}

func (r *RedisStore) Persist(ctx context.Context, snapshot game.TableSnapshot) error {
	table, seats := recordsFromSnapshot(snapshot)

	tableBytes, err := json.Marshal(table)
	if err != nil {
		return storageError("persist", table.ID, errors.Wrap(err, "could not encode table"))
	}
	seatBytes, err := json.Marshal(seats)
	if err != nil {
		return storageError("persist", table.ID, errors.Wrap(err, "could not encode roster"))
	}
	snapshotBytes, err := json.Marshal(snapshot)
	if err != nil {
		return storageError("persist", table.ID, errors.Wrap(err, "could not encode snapshot"))
	}

	_, err = r.rdclient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.tableKey(table.ID), tableBytes, 0)
		pipe.Set(ctx, r.rosterKey(table.ID), seatBytes, 0)
		pipe.Set(ctx, r.snapshotKey(table.ID), snapshotBytes, 0)
		return nil
	})
	if err != nil {
		return storageError("persist", table.ID, errors.Wrap(err, "redis transaction failed"))
	}
	return nil
}

// LatestSnapshot returns the last persisted snapshot of a table
func (r *RedisStore) LatestSnapshot(ctx context.Context, tableID string) (game.TableSnapshot, bool, error) {
	var snapshot game.TableSnapshot
	found, err := r.getJSON(ctx, r.snapshotKey(tableID), &snapshot)
	if err != nil {
		return game.TableSnapshot{}, false, storageError("load snapshot", tableID, err)
	}
	return snapshot, found, nil
}

func (r *RedisStore) Close() error {
	return r.rdclient.Close()
}

func (r *RedisStore) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "could not encode %s", key)
	}
	return errors.Wrapf(r.rdclient.Set(ctx, key, data, 0).Err(), "could not write %s", key)
}

func (r *RedisStore) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.rdclient.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, errors.Wrapf(err, "could not read %s", key)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "could not decode %s", key)
	}
	return true, nil
}

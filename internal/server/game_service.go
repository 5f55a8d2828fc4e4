package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/lox/holdemtable/internal/broadcast"
	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/randutil"
	"github.com/lox/holdemtable/internal/store"
)

// ErrTableNotFound is returned when a request names a table that is not running
var ErrTableNotFound = errors.New("table not found")

// ServiceOptions tunes every table a GameService runs
type ServiceOptions struct {
	ActionTimeout time.Duration
	HandInterval  time.Duration
	Seed          int64 // zero draws a fresh seed per table
}

// GameService runs one TableWorker per table and routes requests to them
type GameService struct {
	mu      sync.RWMutex
	workers map[string]*TableWorker
	byName  map[string]*TableWorker
	streams int

	creating singleflight.Group

	store       store.Store
	broadcaster broadcast.Broadcaster
	clock       quartz.Clock
	metrics     *Metrics
	logger      *log.Logger
	options     ServiceOptions

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// ServiceOption configures a GameService
type ServiceOption func(*GameService)

// WithClock sets the clock used for action timeouts and hand intervals
func WithClock(clock quartz.Clock) ServiceOption {
	return func(s *GameService) {
		s.clock = clock
	}
}

// WithMetrics sets the metrics collectors
func WithMetrics(metrics *Metrics) ServiceOption {
	return func(s *GameService) {
		s.metrics = metrics
	}
}

// WithServiceLogger sets the logger
func WithServiceLogger(logger *log.Logger) ServiceOption {
	return func(s *GameService) {
		s.logger = logger
	}
}

// NewGameService creates a service backed by st and publishing through b
func NewGameService(st store.Store, b broadcast.Broadcaster, options ServiceOptions, opts ...ServiceOption) *GameService {
	s := &GameService{
		workers:     make(map[string]*TableWorker),
		byName:      make(map[string]*TableWorker),
		store:       st,
		broadcaster: b,
		clock:       quartz.NewReal(),
		logger:      log.New(io.Discard),
		options:     options,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if s.broadcaster == nil {
		s.broadcaster = broadcast.NewLogBroadcaster(s.logger)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.group, s.ctx = errgroup.WithContext(s.ctx)
	return s
}

// CreateTable finds or creates the table named config.Name in the store,
// restores its roster and starts its worker. A table that is already
// running is returned as is. Concurrent calls for one name share a single
// store round trip, which runs without holding the service lock.
func (s *GameService) CreateTable(ctx context.Context, config game.TableConfig) (*TableWorker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if w, err := s.TableByName(config.Name); err == nil {
		return w, nil
	}

	v, err, _ := s.creating.Do(config.Name, func() (any, error) {
		if w, err := s.TableByName(config.Name); err == nil {
			return w, nil
		}
		w, err := s.openTable(ctx, config)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.workers[w.ID()] = w
		s.byName[w.Name()] = w
		s.mu.Unlock()

		s.group.Go(func() error {
			return w.Run(s.ctx)
		})
		return w, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TableWorker), nil
}

// openTable loads a table and its roster from the store and builds its worker
func (s *GameService) openTable(ctx context.Context, config game.TableConfig) (*TableWorker, error) {
	record, err := s.store.FindOrCreateTable(ctx, config)
	if err != nil {
		return nil, err
	}
	roster, err := s.store.LoadRoster(ctx, record.ID)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("table", record.Name)
	table := game.NewTable(s.newRand(logger), record.Config(),
		game.WithLogger(s.logger),
		game.WithDealer(record.Dealer),
		game.WithHandNumber(record.HandNumber),
	)
	for _, seat := range roster {
		if err := table.Restore(seat.Identity, seat.Chips); err != nil {
			return nil, fmt.Errorf("restore %s at table %s: %w", seat.Identity, record.Name, err)
		}
	}
	if len(roster) > 0 {
		logger.Info("restored roster", "players", table.NumPlayers(), "hand", record.HandNumber)
	}

	return NewTableWorker(table, WorkerOptions{
		Store:         s.store,
		Broadcaster:   s.broadcaster,
		Clock:         s.clock,
		Metrics:       s.metrics,
		Logger:        s.logger,
		ActionTimeout: s.options.ActionTimeout,
		HandInterval:  s.options.HandInterval,
	}), nil
}

func (s *GameService) newRand(logger *log.Logger) *rand.Rand {
	s.mu.Lock()
	s.streams++
	stream := s.streams
	s.mu.Unlock()

	if s.options.Seed != 0 {
		return randutil.Derive(s.options.Seed, stream)
	}
	rng, seed := randutil.NewSeeded()
	logger.Debug("table seeded", "seed", seed)
	return rng
}

// Table returns the worker for a table ID
func (s *GameService) Table(id string) (*TableWorker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.workers[id]; ok {
		return w, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTableNotFound, id)
}

// TableByName returns the worker for a table name
func (s *GameService) TableByName(name string) (*TableWorker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.byName[name]; ok {
		return w, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
}

// DefaultTable returns the table named main, creating it with default
// settings when needed
func (s *GameService) DefaultTable(ctx context.Context) (*TableWorker, error) {
	return s.CreateTable(ctx, game.DefaultTableConfig())
}

// Tables returns the running workers ordered by name
func (s *GameService) Tables() []*TableWorker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := make([]*TableWorker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	sort.Slice(workers, func(i, j int) bool {
		return workers[i].Name() < workers[j].Name()
	})
	return workers
}

// Join seats identity at a table
func (s *GameService) Join(ctx context.Context, tableID, identity string, buyIn int) (game.TableSnapshot, error) {
	w, err := s.Table(tableID)
	if err != nil {
		return game.TableSnapshot{}, err
	}
	return w.Join(ctx, identity, buyIn)
}

// Leave removes identity from a table
func (s *GameService) Leave(ctx context.Context, tableID, identity string) error {
	w, err := s.Table(tableID)
	if err != nil {
		return err
	}
	return w.Leave(ctx, identity)
}

// Act applies a decision at a table
func (s *GameService) Act(ctx context.Context, tableID, identity string, d game.Decision) (game.TableSnapshot, error) {
	w, err := s.Table(tableID)
	if err != nil {
		return game.TableSnapshot{}, err
	}
	return w.Act(ctx, identity, d)
}

// Snapshot returns a table as seen by viewer
func (s *GameService) Snapshot(ctx context.Context, tableID, viewer string) (game.TableSnapshot, error) {
	w, err := s.Table(tableID)
	if err != nil {
		return game.TableSnapshot{}, err
	}
	return w.Snapshot(ctx, viewer)
}

// Shutdown stops every table and waits for queued snapshots to be persisted
func (s *GameService) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	for _, w := range s.workers {
		w.Stop()
	}
	s.mu.RUnlock()

	done := make(chan error, 1)
	go func() {
		done <- s.group.Wait()
	}()

	select {
	case err := <-done:
		s.cancel()
		return err
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

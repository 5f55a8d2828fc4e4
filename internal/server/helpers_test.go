package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/randutil"
	"github.com/lox/holdemtable/internal/store"
)

// recordingBroadcaster keeps everything published to it
type recordingBroadcaster struct {
	mu     sync.Mutex
	public []game.TableSnapshot
	seats  map[string][]game.TableSnapshot
	events []recordedEvent
}

type recordedEvent struct {
	seq   uint64
	event game.Event
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{seats: make(map[string][]game.TableSnapshot)}
}

func (r *recordingBroadcaster) Publish(ctx context.Context, s game.TableSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.public = append(r.public, s)
	return nil
}

func (r *recordingBroadcaster) PublishSeat(ctx context.Context, identity string, s game.TableSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seats[identity] = append(r.seats[identity], s)
	return nil
}

func (r *recordingBroadcaster) PublishEvents(ctx context.Context, tableID string, seq uint64, events []game.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		r.events = append(r.events, recordedEvent{seq: seq, event: e})
	}
	return nil
}

func (r *recordingBroadcaster) Close() error { return nil }

func (r *recordingBroadcaster) Events() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func (r *recordingBroadcaster) Public() []game.TableSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]game.TableSnapshot(nil), r.public...)
}

func (r *recordingBroadcaster) Seat(identity string) []game.TableSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]game.TableSnapshot(nil), r.seats[identity]...)
}

type workerHarness struct {
	worker      *TableWorker
	store       *store.MemoryStore
	broadcaster *recordingBroadcaster
	clock       *quartz.Mock
	metrics     *Metrics
	config      game.TableConfig
}

type harnessOption func(*game.TableConfig, *WorkerOptions)

func withTableLimits(minPlayers, maxPlayers int) harnessOption {
	return func(c *game.TableConfig, _ *WorkerOptions) {
		c.MinPlayers = minPlayers
		c.MaxPlayers = maxPlayers
	}
}

func withActionTimeout(d time.Duration) harnessOption {
	return func(_ *game.TableConfig, o *WorkerOptions) {
		o.ActionTimeout = d
	}
}

func withHandInterval(d time.Duration) harnessOption {
	return func(_ *game.TableConfig, o *WorkerOptions) {
		o.HandInterval = d
	}
}

func withQueueSize(n int) harnessOption {
	return func(_ *game.TableConfig, o *WorkerOptions) {
		o.QueueSize = n
	}
}

// withStore persists through st instead of the harness MemoryStore
func withStore(st store.Store) harnessOption {
	return func(_ *game.TableConfig, o *WorkerOptions) {
		o.Store = st
	}
}

// newWorkerHarness runs a worker for a 50/100 table named test that deals
// once two players are seated
func newWorkerHarness(t *testing.T, opts ...harnessOption) *workerHarness {
	t.Helper()

	config := game.DefaultTableConfig()
	config.ID = "t1"
	config.Name = "test"
	config.MinPlayers = 2

	h := &workerHarness{
		store:       store.NewMemoryStore(store.WithHistory()),
		broadcaster: newRecordingBroadcaster(),
		clock:       quartz.NewMock(t),
		metrics:     NewMetrics(prometheus.NewRegistry()),
	}
	options := WorkerOptions{
		Store:       h.store,
		Broadcaster: h.broadcaster,
		Clock:       h.clock,
		Metrics:     h.metrics,
	}
	for _, opt := range opts {
		opt(&config, &options)
	}
	require.NoError(t, config.Validate())
	h.config = config

	h.worker = NewTableWorker(game.NewTable(randutil.New(1), config), options)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- h.worker.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errs)
	})
	return h
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (h *workerHarness) join(t *testing.T, identity string, buyIn int) game.TableSnapshot {
	t.Helper()
	s, err := h.worker.Join(testContext(t), identity, buyIn)
	require.NoError(t, err)
	return s
}

func (h *workerHarness) snapshot(t *testing.T, viewer string) game.TableSnapshot {
	t.Helper()
	s, err := h.worker.Snapshot(testContext(t), viewer)
	require.NoError(t, err)
	return s
}

func requireIncreasingSeq(t *testing.T, snapshots []game.TableSnapshot) {
	t.Helper()
	for i := 1; i < len(snapshots); i++ {
		require.Greater(t, snapshots[i].Seq, snapshots[i-1].Seq, "snapshot %d out of order", i)
	}
}

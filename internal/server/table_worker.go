package server

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdemtable/internal/broadcast"
	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/store"
)

// ErrWorkerStopped is returned for requests to a table that has shut down
var ErrWorkerStopped = errors.New("table worker stopped")

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdLeave
	cmdAct
	cmdTimeout
	cmdDeal
	cmdSnapshot
)

type command struct {
	kind     commandKind
	identity string
	buyIn    int
	decision game.Decision
	token    game.TurnToken
	reply    chan reply // nil for commands raised by timers
}

type reply struct {
	snapshot  game.TableSnapshot
	err       error
	persisted <-chan error // nil when nothing was published
}

// WorkerOptions configures a TableWorker
type WorkerOptions struct {
	Store         store.Store
	Broadcaster   broadcast.Broadcaster
	Clock         quartz.Clock
	Metrics       *Metrics
	Logger        *log.Logger
	ActionTimeout time.Duration
	HandInterval  time.Duration
	QueueSize     int
}

// TableWorker owns one table. Every request is queued and applied by a
// single goroutine, so table state needs no locking. Each change is stamped
// with the next sequence number and handed to an outbox goroutine that
// persists and then broadcasts snapshots in sequence order.
type TableWorker struct {
	table       *game.Table
	id          string
	name        string
	store       store.Store
	broadcaster broadcast.Broadcaster
	clock       quartz.Clock
	metrics     *Metrics
	logger      *log.Logger

	commands     chan command
	deals        chan struct{}
	outbox       *outbox
	actionTimer  *actionTimer
	handInterval time.Duration
	dealTimer    *quartz.Timer
	seq          uint64
	events       []game.Event // emitted since the last publish

	subMu       sync.Mutex
	subscribers map[int]EventFunc
	nextSub     int

	stopping chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// EventFunc receives hand events together with the sequence number of the
// snapshot they led to
type EventFunc = func(seq uint64, e game.Event)

// NewTableWorker creates a worker for table. Call Run to start it.
func NewTableWorker(table *game.Table, opts WorkerOptions) *TableWorker {
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Broadcaster == nil {
		opts.Broadcaster = broadcast.NewLogBroadcaster(opts.Logger)
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}

	config := table.Config()
	w := &TableWorker{
		table:        table,
		id:           config.ID,
		name:         config.Name,
		store:        opts.Store,
		broadcaster:  opts.Broadcaster,
		clock:        opts.Clock,
		metrics:      opts.Metrics,
		logger:       opts.Logger.WithPrefix("table").With("id", config.ID, "name", config.Name),
		commands:     make(chan command, opts.QueueSize),
		deals:        make(chan struct{}, 1),
		outbox:       newOutbox(),
		actionTimer:  newActionTimer(opts.Clock, opts.ActionTimeout),
		handInterval: opts.HandInterval,
		stopping:     make(chan struct{}),
		done:         make(chan struct{}),
	}
	table.Subscribe(func(e game.Event) { w.events = append(w.events, e) })
	return w
}

// ID returns the table ID
func (w *TableWorker) ID() string { return w.id }

// Name returns the table name
func (w *TableWorker) Name() string { return w.name }

// Join seats identity and returns their private view. Joining while already
// seated returns the current view.
func (w *TableWorker) Join(ctx context.Context, identity string, buyIn int) (game.TableSnapshot, error) {
	return w.submit(ctx, command{kind: cmdJoin, identity: identity, buyIn: buyIn})
}

// Leave removes identity from the table
func (w *TableWorker) Leave(ctx context.Context, identity string) error {
	_, err := w.submit(ctx, command{kind: cmdLeave, identity: identity})
	return err
}

// Act applies a decision from identity and returns their private view
func (w *TableWorker) Act(ctx context.Context, identity string, d game.Decision) (game.TableSnapshot, error) {
	return w.submit(ctx, command{kind: cmdAct, identity: identity, decision: d})
}

// Snapshot returns the table as seen by viewer. An empty viewer gets the
// public view.
func (w *TableWorker) Snapshot(ctx context.Context, viewer string) (game.TableSnapshot, error) {
	return w.submit(ctx, command{kind: cmdSnapshot, identity: viewer})
}

// Subscribe calls fn for every hand event from now on, in order, once the
// snapshot they belong to has been persisted. A request returns only after
// the events it caused have been delivered. The returned func unsubscribes.
func (w *TableWorker) Subscribe(fn EventFunc) func() {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	if w.subscribers == nil {
		w.subscribers = make(map[int]EventFunc)
	}
	id := w.nextSub
	w.nextSub++
	w.subscribers[id] = fn
	return func() {
		w.subMu.Lock()
		defer w.subMu.Unlock()
		delete(w.subscribers, id)
	}
}

func (w *TableWorker) notify(seq uint64, events []game.Event) {
	w.subMu.Lock()
	subscribers := make([]EventFunc, 0, len(w.subscribers))
	for _, fn := range w.subscribers {
		subscribers = append(subscribers, fn)
	}
	w.subMu.Unlock()

	for _, e := range events {
		for _, fn := range subscribers {
			fn(seq, e)
		}
	}
}

// Stop asks the worker to shut down. Run returns once queued snapshots have
// been persisted.
func (w *TableWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopping) })
}

// Done is closed when the worker has stopped
func (w *TableWorker) Done() <-chan struct{} { return w.done }

func (w *TableWorker) submit(ctx context.Context, cmd command) (game.TableSnapshot, error) {
	cmd.reply = make(chan reply, 1)
	select {
	case w.commands <- cmd:
	case <-ctx.Done():
		return game.TableSnapshot{}, ctx.Err()
	case <-w.done:
		return game.TableSnapshot{}, ErrWorkerStopped
	}

	var r reply
	select {
	case r = <-cmd.reply:
	case <-ctx.Done():
		return game.TableSnapshot{}, ctx.Err()
	case <-w.done:
		return game.TableSnapshot{}, ErrWorkerStopped
	}

	if r.persisted != nil {
		select {
		case err := <-r.persisted:
			if err != nil && r.err == nil {
				r.err = err
			}
		case <-ctx.Done():
			return r.snapshot, ctx.Err()
		}
	}
	return r.snapshot, r.err
}

// enqueue queues a command raised inside the process. It gives up when the
// worker is stopping.
func (w *TableWorker) enqueue(cmd command) {
	select {
	case w.commands <- cmd:
	case <-w.stopping:
	case <-w.done:
	}
}

// Run processes commands until ctx is cancelled or Stop is called
func (w *TableWorker) Run(ctx context.Context) error {
	defer close(w.done)

	var drain errgroup.Group
	drain.Go(func() error {
		w.drainOutbox(context.WithoutCancel(ctx))
		return nil
	})
	defer func() {
		w.actionTimer.stop()
		if w.dealTimer != nil {
			w.dealTimer.Stop()
		}
		w.outbox.close()
		_ = drain.Wait()
		w.logger.Info("table stopped", "seq", w.seq)
	}()

	w.logger.Info("table running", "players", w.table.NumPlayers())
	w.metrics.SeatedPlayers.WithLabelValues(w.name).Set(float64(w.table.NumPlayers()))
	w.handle(command{kind: cmdDeal})

	for {
		// A due deal goes ahead of queued requests.
		select {
		case <-w.deals:
			w.handle(command{kind: cmdDeal})
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return nil
		case <-w.stopping:
			return nil
		case <-w.deals:
			w.handle(command{kind: cmdDeal})
		case cmd := <-w.commands:
			w.handle(cmd)
		}
	}
}

func (w *TableWorker) handle(cmd command) {
	var (
		outcome game.Outcome
		err     error
		changed bool
	)

	switch cmd.kind {
	case cmdJoin:
		seated := w.table.IsSeated(cmd.identity)
		if _, err = w.table.Join(cmd.identity, cmd.buyIn); err != nil {
			w.respond(cmd, nil, err)
			return
		}
		if !seated {
			changed = true
			w.metrics.Joins.WithLabelValues(w.name).Inc()
			w.logger.Info("player joined", "player", cmd.identity, "players", w.table.NumPlayers())
		}
		outcome, err = w.table.MaybeStartHand()

	case cmdLeave:
		if !w.table.IsSeated(cmd.identity) {
			w.respond(cmd, nil, nil)
			return
		}
		changed = true
		w.metrics.Leaves.WithLabelValues(w.name).Inc()
		w.logger.Info("player left", "player", cmd.identity)
		outcome, err = w.table.Leave(cmd.identity)

	case cmdAct:
		outcome, err = w.table.Act(cmd.identity, cmd.decision)
		if err != nil && game.IsValidation(err) {
			w.metrics.Actions.WithLabelValues(w.name, cmd.decision.Action.String(), "rejected").Inc()
			w.logger.Debug("action rejected", "player", cmd.identity, "action", cmd.decision.String(), "error", err)
			w.respond(cmd, nil, err)
			return
		}
		changed = true
		w.metrics.Actions.WithLabelValues(w.name, cmd.decision.Action.String(), "ok").Inc()

	case cmdTimeout:
		var applied bool
		outcome, applied, err = w.table.Timeout(cmd.identity, cmd.token)
		if !applied && err == nil {
			return
		}
		changed = true
		w.metrics.Timeouts.WithLabelValues(w.name).Inc()
		w.logger.Warn("player timed out", "player", cmd.identity, "hand", cmd.token.Hand)

	case cmdDeal:
		w.dealTimer = nil
		outcome, err = w.table.MaybeStartHand()

	case cmdSnapshot:
		s := w.table.Snapshot(cmd.identity)
		s.Seq = w.seq
		cmd.reply <- reply{snapshot: s}
		return
	}

	if err == nil {
		err = w.afterHand(outcome)
	}
	if err != nil {
		w.logError(err)
	}
	if outcome.Started || outcome.HandComplete || len(w.events) > 0 {
		changed = true
	}

	w.armActionTimer()
	var persisted <-chan error
	if changed {
		persisted = w.publish()
	}
	w.respond(cmd, persisted, err)
}

// afterHand records a dealt or settled hand and arranges the next deal.
func (w *TableWorker) afterHand(outcome game.Outcome) error {
	if outcome.Started {
		w.metrics.HandsStarted.WithLabelValues(w.name).Inc()
	}
	if !outcome.HandComplete {
		return nil
	}

	if result := w.table.LastResult(); result != nil {
		w.metrics.HandsCompleted.WithLabelValues(w.name, strconv.FormatBool(result.Showdown)).Inc()
		w.logger.Info("hand complete", "hand", result.HandNumber, "pot", result.Pot, "winners", len(result.Winners))
	}

	if w.handInterval > 0 {
		w.scheduleDeal(w.handInterval)
		return nil
	}

	next, err := w.table.MaybeStartHand()
	if next.Started {
		w.metrics.HandsStarted.WithLabelValues(w.name).Inc()
	}
	if next.HandComplete {
		// Settled while posting blinds. Deal again from the run loop rather
		// than recursing.
		w.scheduleDeal(0)
	}
	return err
}

// scheduleDeal arranges a deal after the given delay. At most one deal is
// outstanding at a time.
func (w *TableWorker) scheduleDeal(after time.Duration) {
	if w.dealTimer != nil {
		return
	}
	if after <= 0 {
		w.signalDeal()
		return
	}
	w.dealTimer = w.clock.AfterFunc(after, w.signalDeal)
}

func (w *TableWorker) signalDeal() {
	select {
	case w.deals <- struct{}{}:
	default:
	}
}

func (w *TableWorker) armActionTimer() {
	identity, token, ok := w.table.Turn()
	if !ok {
		w.actionTimer.stop()
		return
	}
	w.actionTimer.arm(identity, token, func(identity string, token game.TurnToken) {
		w.enqueue(command{kind: cmdTimeout, identity: identity, token: token})
	})
}

func (w *TableWorker) respond(cmd command, persisted <-chan error, err error) {
	if cmd.reply == nil {
		return
	}
	s := w.table.Snapshot(cmd.identity)
	s.Seq = w.seq
	cmd.reply <- reply{snapshot: s, err: err, persisted: persisted}
}

// publish stamps the next sequence number on the current state and queues
// it for the outbox.
func (w *TableWorker) publish() <-chan error {
	w.seq++
	w.metrics.SeatedPlayers.WithLabelValues(w.name).Set(float64(w.table.NumPlayers()))

	item := outboxItem{
		public: w.table.Snapshot(""),
		events: w.events,
		done:   make(chan error, 1),
	}
	w.events = nil
	item.public.Seq = w.seq
	for _, identity := range w.table.Identities() {
		s := w.table.Snapshot(identity)
		s.Seq = w.seq
		item.seats = append(item.seats, s)
	}

	w.outbox.push(item)
	w.metrics.OutboxPending.WithLabelValues(w.name).Set(float64(w.outbox.pending()))
	return item.done
}

// drainOutbox persists and then broadcasts each queued state in order,
// events first. A failed persist is reported to the caller but the state is
// still broadcast, since it has already been applied to the table.
func (w *TableWorker) drainOutbox(ctx context.Context) {
	for {
		item, ok := w.outbox.pop()
		if !ok {
			return
		}
		w.metrics.OutboxPending.WithLabelValues(w.name).Set(float64(w.outbox.pending()))

		persistErr := w.store.Persist(ctx, item.public)
		if persistErr != nil {
			w.metrics.StorageErrors.WithLabelValues(w.name).Inc()
			w.logger.Error("failed to persist table", "seq", item.public.Seq, "error", persistErr)
		}

		if len(item.events) > 0 {
			if err := w.broadcaster.PublishEvents(ctx, w.id, item.public.Seq, item.events); err != nil {
				w.logger.Warn("failed to broadcast events", "seq", item.public.Seq, "events", len(item.events), "error", err)
			}
			w.notify(item.public.Seq, item.events)
		}
		if err := w.broadcaster.Publish(ctx, item.public); err != nil {
			w.logger.Warn("failed to broadcast table", "seq", item.public.Seq, "error", err)
		}
		for _, s := range item.seats {
			if err := w.broadcaster.PublishSeat(ctx, s.Viewer, s); err != nil {
				w.logger.Warn("failed to send seat view", "player", s.Viewer, "seq", s.Seq, "error", err)
			}
		}
		item.done <- persistErr
	}
}

func (w *TableWorker) logError(err error) {
	switch {
	case errors.Is(err, game.ErrResourceExhausted):
		w.logger.Error("table invariant violated", "error", err)
	case game.IsCapacity(err):
		w.logger.Warn("cannot deal", "error", err)
	default:
		w.logger.Error("table error", "error", err)
	}
}

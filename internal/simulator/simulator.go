// Package simulator fills tables with bots and plays hands through the
// same request path a remote player would use.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdemtable/internal/bot"
	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/randutil"
	"github.com/lox/holdemtable/internal/statistics"
)

const stallTimeout = time.Minute

// Table is the part of a running table the simulator drives
type Table interface {
	Name() string
	Join(ctx context.Context, identity string, buyIn int) (game.TableSnapshot, error)
	Act(ctx context.Context, identity string, d game.Decision) (game.TableSnapshot, error)
	Snapshot(ctx context.Context, viewer string) (game.TableSnapshot, error)
	Subscribe(fn func(seq uint64, e game.Event)) (unsubscribe func())
}

// Config holds configuration for running simulations
type Config struct {
	Hands   int      // Hands to play at each table
	Players int      // Bots seated at each table
	Bots    []string // Bot kinds, assigned to seats in turn
	BuyIn   int      // Zero buys in for the table maximum
	Seed    int64
	Logger  *log.Logger
}

// TableResult summarises one simulated table
type TableResult struct {
	Table    string
	Hands    int
	Rebuys   int
	BoughtIn int
	Chips    int // Chips on the table at the end
	Kinds    map[string]string
	Ledger   *statistics.Ledger
	Duration time.Duration
}

// Simulator runs bot games against live tables
type Simulator struct {
	config Config
	logger *log.Logger
}

// New creates a new simulator with the given configuration
func New(config Config) (*Simulator, error) {
	if config.Hands <= 0 {
		return nil, fmt.Errorf("hands must be positive, got %d", config.Hands)
	}
	if config.Players < 2 {
		return nil, fmt.Errorf("at least two players are needed, got %d", config.Players)
	}
	if len(config.Bots) == 0 {
		config.Bots = []string{"call"}
	}
	for _, kind := range config.Bots {
		if !bot.IsKind(kind) {
			return nil, fmt.Errorf("unknown bot kind %q", kind)
		}
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard)
	}
	return &Simulator{config: config, logger: config.Logger.WithPrefix("sim")}, nil
}

// Run plays every table concurrently until each has settled the configured
// number of hands
func (s *Simulator) Run(ctx context.Context, tables []Table) ([]TableResult, error) {
	results := make([]TableResult, len(tables))
	g, ctx := errgroup.WithContext(ctx)
	for i, table := range tables {
		g.Go(func() error {
			result, err := s.runTable(ctx, i, table)
			if err != nil {
				return fmt.Errorf("table %s: %w", table.Name(), err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type seatedBot struct {
	identity string
	kind     string
	bot      bot.Bot
}

func (s *Simulator) runTable(ctx context.Context, index int, table Table) (TableResult, error) {
	start := time.Now()
	logger := s.logger.With("table", table.Name())

	snap, err := table.Snapshot(ctx, "")
	if err != nil {
		return TableResult{}, err
	}
	if s.config.Players > snap.MaxPlayers || s.config.Players < snap.MinPlayers {
		return TableResult{}, fmt.Errorf("%d players cannot run a table seating %d-%d",
			s.config.Players, snap.MinPlayers, snap.MaxPlayers)
	}
	buyIn := s.config.BuyIn
	if buyIn == 0 {
		buyIn = snap.MaxBuyIn
	}

	result := TableResult{
		Table:  table.Name(),
		Kinds:  make(map[string]string, s.config.Players),
		Ledger: statistics.NewLedger(snap.BigBlind),
	}
	bots := make(map[string]seatedBot, s.config.Players)
	for j := range s.config.Players {
		kind := s.config.Bots[j%len(s.config.Bots)]
		identity := fmt.Sprintf("%s-%s-%d", table.Name(), kind, j+1)
		b, err := bot.New(kind, randutil.Derive(s.config.Seed, 1000*(index+1)+j), s.logger)
		if err != nil {
			return TableResult{}, err
		}
		bots[identity] = seatedBot{identity: identity, kind: kind, bot: b}
		result.Kinds[identity] = kind
	}

	// The ledger follows the event stream, so no hand is missed between
	// two snapshots.
	ledger := result.Ledger
	leaks := make(chan error, 1)
	unsubscribe := table.Subscribe(func(seq uint64, e game.Event) {
		if err := ledger.Record(e); err != nil {
			select {
			case leaks <- err:
			default:
			}
		}
	})
	defer unsubscribe()

	// Everyone sits down at once.
	joins, joinCtx := errgroup.WithContext(ctx)
	for identity := range bots {
		joins.Go(func() error {
			_, err := table.Join(joinCtx, identity, buyIn)
			return err
		})
	}
	if err := joins.Wait(); err != nil {
		return TableResult{}, err
	}
	result.BoughtIn = buyIn * len(bots)

	var idleSince time.Time
	for result.Ledger.Hands() < s.config.Hands {
		select {
		case err := <-leaks:
			return TableResult{}, err
		default:
		}

		snap, err := table.Snapshot(ctx, "")
		if err != nil {
			return TableResult{}, err
		}

		if n, err := s.rebuy(ctx, table, snap, bots, buyIn); err != nil {
			return TableResult{}, err
		} else if n > 0 {
			result.Rebuys += n
			result.BoughtIn += n * buyIn
			continue
		}

		if snap.Actor == "" {
			// Nothing to do until the worker deals.
			if idleSince.IsZero() {
				idleSince = time.Now()
			} else if time.Since(idleSince) > stallTimeout {
				return TableResult{}, fmt.Errorf("table stalled in %s state", snap.Status)
			}
			time.Sleep(time.Millisecond)
			continue
		}
		idleSince = time.Time{}

		if err := s.act(ctx, table, bots[snap.Actor]); err != nil {
			return TableResult{}, err
		}
	}

	final, err := table.Snapshot(ctx, "")
	if err != nil {
		return TableResult{}, err
	}
	result.Hands = result.Ledger.Hands()
	result.Chips = final.TotalChips()
	result.Duration = time.Since(start)
	if result.Chips != result.BoughtIn {
		return result, fmt.Errorf("chips not conserved: %d on table, %d bought in", result.Chips, result.BoughtIn)
	}

	logger.Info("simulation finished", "hands", result.Hands, "rebuys", result.Rebuys, "elapsed", result.Duration)
	return result, nil
}

// act asks the bot to move and applies the decision. A rejected decision
// is logged and replaced by checking or folding.
func (s *Simulator) act(ctx context.Context, table Table, seated seatedBot) error {
	view, err := table.Snapshot(ctx, seated.identity)
	if err != nil {
		return err
	}
	if len(view.Options) == 0 {
		// The turn moved on between the two snapshots.
		return nil
	}

	d := seated.bot.Decide(view)
	_, err = table.Act(ctx, seated.identity, d)
	if err == nil || !game.IsValidation(err) {
		return err
	}

	s.logger.Warn("bot decision rejected", "player", seated.identity, "decision", d.String(), "error", err)
	fallback := game.Decision{Action: game.Fold}
	for _, o := range view.Options {
		if o.Action == game.Check.String() {
			fallback = game.Decision{Action: game.Check}
		}
	}
	_, err = table.Act(ctx, seated.identity, fallback)
	if errors.Is(err, game.ErrNotYourTurn) {
		return nil
	}
	return err
}

// rebuy seats again any bot that busted out
func (s *Simulator) rebuy(ctx context.Context, table Table, snap game.TableSnapshot, bots map[string]seatedBot, buyIn int) (int, error) {
	n := 0
	for identity := range bots {
		if _, seated := snap.Seat(identity); seated {
			continue
		}
		if _, err := table.Join(ctx, identity, buyIn); err != nil {
			return n, err
		}
		s.logger.Debug("rebuy", "player", identity, "chips", buyIn)
		n++
	}
	return n, nil
}

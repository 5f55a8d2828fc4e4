package statistics

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lox/holdemtable/internal/game"
)

// Ledger turns the hand events of one table into per-player statistics. It
// remembers every dealt-in stack when a hand starts and settles the
// differences when that hand ends.
type Ledger struct {
	mu       sync.Mutex
	bigBlind int
	hand     int
	stacks   map[string]int
	players  map[string]*Statistics
	hands    int
}

// NewLedger creates a ledger for a table with the given big blind
func NewLedger(bigBlind int) *Ledger {
	return &Ledger{
		bigBlind: bigBlind,
		players:  make(map[string]*Statistics),
	}
}

// Record feeds a hand event to the ledger. Events must be recorded in the
// order they were emitted; a hand whose start was not seen is ignored. It
// fails when the stacks of a settled hand do not net to zero.
func (l *Ledger) Record(e game.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch e := e.(type) {
	case game.HandStartEvent:
		l.hand = e.HandNumber
		l.stacks = make(map[string]int, len(e.Stacks))
		for _, stack := range e.Stacks {
			l.stacks[stack.Identity] = stack.Chips
		}

	case game.HandEndEvent:
		if l.stacks == nil || e.Result.HandNumber != l.hand {
			return nil
		}
		// Stacks at hand end include players whose seat was released, so
		// a player who left is credited with what they took with them.
		after := make(map[string]int, len(e.Stacks))
		for _, stack := range e.Stacks {
			after[stack.Identity] = stack.Chips
		}
		err := l.settle(after, e.Result)
		l.stacks = nil
		return err
	}
	return nil
}

func (l *Ledger) settle(after map[string]int, result game.HandResult) error {
	potBB := float64(result.Pot) / float64(l.bigBlind)
	sum := 0
	for identity, before := range l.stacks {
		net := after[identity] - before
		sum += net

		stats, ok := l.players[identity]
		if !ok {
			stats = &Statistics{}
			l.players[identity] = stats
		}
		stats.Add(HandResult{
			NetBB:          float64(net) / float64(l.bigBlind),
			WentToShowdown: result.Showdown,
			PotBB:          potBB,
		})
	}
	l.hands++

	if sum != 0 {
		return fmt.Errorf("hand %d: stacks changed by %d chips in total", result.HandNumber, sum)
	}
	return nil
}

// Hands returns the number of hands settled
func (l *Ledger) Hands() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hands
}

// Players returns every identity with results, sorted
func (l *Ledger) Players() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.players))
	for name := range l.players {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns the statistics of a player, or nil
func (l *Ledger) Stats(identity string) *Statistics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.players[identity]
}

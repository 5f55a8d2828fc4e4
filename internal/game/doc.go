// Package game implements a single Texas Hold'em cash table.
//
// The main type is Table, which owns the roster of seated players, the
// dealer position and the hand in progress. A table waits until enough
// players have joined, then deals hands back to back: blinds, four betting
// streets, and a showdown that splits main and side pots between the best
// hands.
//
// # Basic Usage
//
//	t := game.NewTable(randutil.New(42), game.DefaultTableConfig())
//	for _, id := range []string{"alice", "bob", "carol", "dave"} {
//	    t.Join(id, 0)
//	}
//	t.MaybeStartHand()
//	actor, _, _ := t.Turn()
//	t.Act(actor, game.Decision{Action: game.Call})
//
// # Errors
//
// Every error wraps one category (ErrValidation, ErrCapacity or
// ErrResourceExhausted) and one specific reason such as ErrNotYourTurn, so
// callers can test either with errors.Is. A rejected request leaves the
// table unchanged.
//
// # Concurrency
//
// Table does no locking. The server package runs each table on its own
// goroutine and serializes every mutation through it.
package game

package server

import (
	"time"

	"github.com/coder/quartz"

	"github.com/lox/holdemtable/internal/game"
)

// actionTimer tracks the deadline of the pending decision. It only ever
// enqueues work; the table is never touched from a timer goroutine.
type actionTimer struct {
	clock    quartz.Clock
	timeout  time.Duration
	timer    *quartz.Timer
	identity string
	token    game.TurnToken
}

func newActionTimer(clock quartz.Clock, timeout time.Duration) *actionTimer {
	return &actionTimer{clock: clock, timeout: timeout}
}

// arm starts the countdown for identity's turn. Re-arming the same turn
// keeps the running countdown.
func (a *actionTimer) arm(identity string, token game.TurnToken, expire func(identity string, token game.TurnToken)) {
	if a.timeout <= 0 {
		return
	}
	if a.timer != nil && a.identity == identity && a.token == token {
		return
	}
	a.stop()

	a.identity = identity
	a.token = token
	a.timer = a.clock.AfterFunc(a.timeout, func() {
		expire(identity, token)
	})
}

func (a *actionTimer) stop() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.identity = ""
	a.token = game.TurnToken{}
}

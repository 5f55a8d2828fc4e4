package server

import (
	"sync"

	"github.com/lox/holdemtable/internal/game"
)

// outboxItem is one published state: the public view plus one private
// view per seat, all carrying the same Seq, and the hand events that led
// to it.
type outboxItem struct {
	public game.TableSnapshot
	seats  []game.TableSnapshot
	events []game.Event
	done   chan error
}

// outbox is an unbounded FIFO between a table worker and the goroutine that
// persists and broadcasts its snapshots. push never blocks, so slow storage
// delays publication but never the table.
type outbox struct {
	mu     sync.Mutex
	items  []outboxItem
	closed bool
	ready  chan struct{}
}

func newOutbox() *outbox {
	return &outbox{ready: make(chan struct{}, 1)}
}

func (o *outbox) push(item outboxItem) {
	o.mu.Lock()
	o.items = append(o.items, item)
	o.mu.Unlock()
	o.signal()
}

// close lets pop return false once the queue is empty
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.signal()
}

// pop waits for the next item. It returns false when the outbox is closed
// and drained.
func (o *outbox) pop() (outboxItem, bool) {
	for {
		o.mu.Lock()
		if len(o.items) > 0 {
			item := o.items[0]
			o.items[0] = outboxItem{}
			o.items = o.items[1:]
			o.mu.Unlock()
			return item, true
		}
		if o.closed {
			o.mu.Unlock()
			return outboxItem{}, false
		}
		o.mu.Unlock()
		<-o.ready
	}
}

// pending returns the number of queued items
func (o *outbox) pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

func (o *outbox) signal() {
	select {
	case o.ready <- struct{}{}:
	default:
	}
}

package broadcast

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtable/internal/game"
)

type countingBroadcaster struct {
	public  int
	private []string
	events  int
	err     error
	closed  bool
}

func (c *countingBroadcaster) Publish(ctx context.Context, s game.TableSnapshot) error {
	c.public++
	return c.err
}

func (c *countingBroadcaster) PublishSeat(ctx context.Context, identity string, s game.TableSnapshot) error {
	c.private = append(c.private, identity)
	return c.err
}

func (c *countingBroadcaster) PublishEvents(ctx context.Context, tableID string, seq uint64, events []game.Event) error {
	c.events += len(events)
	return c.err
}

func (c *countingBroadcaster) Close() error {
	c.closed = true
	return nil
}

func TestMultiCallsEveryBroadcaster(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	failing := &countingBroadcaster{err: boom}
	ok := &countingBroadcaster{}
	m := Multi{failing, ok}

	err := m.Publish(context.Background(), game.TableSnapshot{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, failing.public)
	assert.Equal(t, 1, ok.public)

	err = m.PublishSeat(context.Background(), "alice", game.TableSnapshot{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"alice"}, ok.private)

	err = m.PublishEvents(context.Background(), "t1", 4, []game.Event{game.HandStartEvent{HandNumber: 1}})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, ok.events)

	require.NoError(t, m.Close())
	assert.True(t, failing.closed)
	assert.True(t, ok.closed)
}

func TestLogBroadcaster(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	b := NewLogBroadcaster(logger)

	err := b.Publish(context.Background(), game.TableSnapshot{Name: "main", Seq: 3, Status: "started", Pot: 150})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "table update")
	assert.Contains(t, buf.String(), "seq=3")

	buf.Reset()
	require.NoError(t, b.PublishSeat(context.Background(), "alice", game.TableSnapshot{}))
	assert.Empty(t, buf.String(), "private views are never logged")

	require.NoError(t, b.PublishEvents(context.Background(), "t1", 4, []game.Event{
		game.PlayerActionEvent{HandNumber: 2, Identity: "bob", Action: "fold", Reason: "timeout"},
		game.HandEndEvent{Result: game.HandResult{HandNumber: 2}},
	}))
	assert.Contains(t, buf.String(), "player_action")
	assert.Contains(t, buf.String(), "reason=timeout")
	assert.Contains(t, buf.String(), "hand_end")
}

func TestSubjects(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "table.abc.state", StateSubject("abc"))
	assert.Equal(t, "table.abc.seat.alice", SeatSubject("abc", "alice"))
	assert.Equal(t, "table.a_b.seat.j_smith__", SeatSubject("a.b", "j smith*>"))
	assert.Equal(t, "table.abc.events", EventsSubject("abc"))
}

func TestEventMessageEncoding(t *testing.T) {
	t.Parallel()

	msg := EventMessage{
		TableID: "t1",
		Seq:     7,
		Type:    game.EventPlayerAction,
		Event:   game.PlayerActionEvent{HandNumber: 3, Identity: "bob", Street: "flop", Action: "bet", Amount: 200, Bet: 200, Pot: 500},
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"table_id": "t1",
		"seq": 7,
		"type": "player_action",
		"event": {"hand_number": 3, "identity": "bob", "street": "flop", "action": "bet", "amount": 200, "bet": 200, "pot": 500}
	}`, string(data))
}

package broadcast

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	natsgo "github.com/nats-io/nats.go"

	"github.com/lox/holdemtable/internal/game"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

/*
Subjects, one set per table:

	table.<id>.state                public snapshot after every change
	table.<id>.seat.<identity>      private snapshot for one seated player
	table.<id>.events               hand events, one message per event
*/

// StateSubject returns the subject public snapshots are published on
func StateSubject(tableID string) string {
	return fmt.Sprintf("table.%s.state", subjectToken(tableID))
}

// SeatSubject returns the subject private snapshots for identity are published on
func SeatSubject(tableID, identity string) string {
	return fmt.Sprintf("table.%s.seat.%s", subjectToken(tableID), subjectToken(identity))
}

// EventsSubject returns the subject hand events are published on
func EventsSubject(tableID string) string {
	return fmt.Sprintf("table.%s.events", subjectToken(tableID))
}

// EventMessage is the payload published for each hand event
type EventMessage struct {
	TableID string         `json:"table_id"`
	Seq     uint64         `json:"seq"`
	Type    game.EventType `json:"type"`
	Event   game.Event     `json:"event"`
}

// subjectToken makes s usable as a single subject token
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

// NATSBroadcaster publishes JSON snapshots to NATS
type NATSBroadcaster struct {
	nc *natsgo.Conn
}

// NewNATSBroadcaster connects to the NATS server at url
func NewNATSBroadcaster(url string) (*NATSBroadcaster, error) {
	nc, err := natsgo.Connect(url, natsgo.Name("holdem-table"))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	return &NATSBroadcaster{nc: nc}, nil
}

// NewNATSBroadcasterWithConn wraps an existing connection
func NewNATSBroadcasterWithConn(nc *natsgo.Conn) *NATSBroadcaster {
	return &NATSBroadcaster{nc: nc}
}

func (b *NATSBroadcaster) Publish(ctx context.Context, s game.TableSnapshot) error {
	return b.publish(StateSubject(s.TableID), s)
}

func (b *NATSBroadcaster) PublishSeat(ctx context.Context, identity string, s game.TableSnapshot) error {
	return b.publish(SeatSubject(s.TableID, identity), s)
}

func (b *NATSBroadcaster) PublishEvents(ctx context.Context, tableID string, seq uint64, events []game.Event) error {
	subject := EventsSubject(tableID)
	for _, e := range events {
		msg := EventMessage{TableID: tableID, Seq: seq, Type: e.EventType(), Event: e}
		if err := b.publish(subject, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *NATSBroadcaster) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding message for %s: %w", subject, err)
	}
	if err := b.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection
func (b *NATSBroadcaster) Close() error {
	return b.nc.Drain()
}

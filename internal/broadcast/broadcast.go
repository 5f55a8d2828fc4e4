// Package broadcast delivers table snapshots to whoever is watching a table.
package broadcast

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/lox/holdemtable/internal/game"
)

// Broadcaster publishes table snapshots. Publish carries the public view;
// PublishSeat carries one seat's private view including its hole cards.
// PublishEvents carries the hand events that led to the snapshot with the
// same sequence number.
type Broadcaster interface {
	Publish(ctx context.Context, snapshot game.TableSnapshot) error
	PublishSeat(ctx context.Context, identity string, snapshot game.TableSnapshot) error
	PublishEvents(ctx context.Context, tableID string, seq uint64, events []game.Event) error
	Close() error
}

// LogBroadcaster writes a one-line summary of each public snapshot to a
// logger. Private views are not logged.
type LogBroadcaster struct {
	logger *log.Logger
}

// NewLogBroadcaster creates a LogBroadcaster
func NewLogBroadcaster(logger *log.Logger) *LogBroadcaster {
	return &LogBroadcaster{logger: logger.WithPrefix("broadcast")}
}

func (b *LogBroadcaster) Publish(ctx context.Context, s game.TableSnapshot) error {
	b.logger.Debug("table update",
		"table", s.Name,
		"seq", s.Seq,
		"status", s.Status,
		"hand", s.HandNumber,
		"street", s.Street,
		"board", s.Board,
		"pot", s.Pot,
		"actor", s.Actor,
		"players", len(s.Seats))
	return nil
}

func (b *LogBroadcaster) PublishSeat(ctx context.Context, identity string, s game.TableSnapshot) error {
	return nil
}

func (b *LogBroadcaster) PublishEvents(ctx context.Context, tableID string, seq uint64, events []game.Event) error {
	for _, e := range events {
		switch e := e.(type) {
		case game.PlayerActionEvent:
			b.logger.Debug(e.EventType().String(), "table", tableID, "seq", seq, "hand", e.HandNumber,
				"player", e.Identity, "action", e.Action, "amount", e.Amount, "reason", e.Reason)
		case game.StreetChangeEvent:
			b.logger.Debug(e.EventType().String(), "table", tableID, "seq", seq, "hand", e.HandNumber,
				"street", e.Street, "board", e.Board)
		default:
			b.logger.Debug(e.EventType().String(), "table", tableID, "seq", seq, "hand", e.Hand())
		}
	}
	return nil
}

func (b *LogBroadcaster) Close() error { return nil }

// Multi fans snapshots out to several broadcasters. Every broadcaster is
// called even when an earlier one fails.
type Multi []Broadcaster

func (m Multi) Publish(ctx context.Context, s game.TableSnapshot) error {
	var errs []error
	for _, b := range m {
		errs = append(errs, b.Publish(ctx, s))
	}
	return errors.Join(errs...)
}

func (m Multi) PublishSeat(ctx context.Context, identity string, s game.TableSnapshot) error {
	var errs []error
	for _, b := range m {
		errs = append(errs, b.PublishSeat(ctx, identity, s))
	}
	return errors.Join(errs...)
}

func (m Multi) PublishEvents(ctx context.Context, tableID string, seq uint64, events []game.Event) error {
	var errs []error
	for _, b := range m {
		errs = append(errs, b.PublishEvents(ctx, tableID, seq, events))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, b := range m {
		errs = append(errs, b.Close())
	}
	return errors.Join(errs...)
}

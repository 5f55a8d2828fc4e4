package game

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by a Table wraps exactly one of
// these together with a specific reason below.
var (
	// ErrValidation marks a rejected request. Table state is unchanged.
	ErrValidation = errors.New("validation error")
	// ErrCapacity marks a seat-count problem (table full, too few players).
	ErrCapacity = errors.New("capacity error")
	// ErrResourceExhausted marks a broken invariant such as deck underflow.
	ErrResourceExhausted = errors.New("resource exhausted")
)

// Specific reasons.
var (
	ErrNotYourTurn         = errors.New("not your turn")
	ErrInvalidAction       = errors.New("invalid action")
	ErrInsufficientChips   = errors.New("insufficient chips")
	ErrInvalidBuyIn        = errors.New("invalid buy-in")
	ErrInvalidIdentity     = errors.New("invalid player identity")
	ErrNoActiveHand        = errors.New("no hand in progress")
	ErrNotSeated           = errors.New("player not seated")
	ErrTableFull           = errors.New("table is full")
	ErrInsufficientPlayers = errors.New("not enough players")
)

func validationError(reason error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrValidation, reason, fmt.Sprintf(format, args...))
}

func capacityError(reason error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrCapacity, reason, fmt.Sprintf(format, args...))
}

func exhaustedError(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrResourceExhausted, what, err)
}

// IsValidation reports whether err is a rejected request
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsCapacity reports whether err is a capacity problem
func IsCapacity(err error) bool { return errors.Is(err, ErrCapacity) }

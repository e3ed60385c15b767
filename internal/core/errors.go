package core

import (
	"errors"
	"fmt"
)

// Domain error sentinels. Adapters map these with errors.Is; none of them is
// retryable.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidInput           = errors.New("invalid input")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrInsufficientStock      = errors.New("insufficient stock")
)

// TransitionError reports an operation attempted from a state that does not allow it.
type TransitionError struct {
	Entity    string // "count session", "requisition"
	ID        int
	Operation string
	From      string
	To        string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s %d: transition %s -> %s not allowed",
		e.Operation, e.Entity, e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStateTransition }

// NotFoundError names the missing entity and the key it was looked up by.
type NotFoundError struct {
	Entity string
	Key    any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func notFound(entity string, key any) error {
	return &NotFoundError{Entity: entity, Key: key}
}

// InsufficientStockError carries the shortfall for one item at one location.
type InsufficientStockError struct {
	ItemID     int
	LocationID int
	Requested  string
	Available  string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d at location %d: requested %s, available %s",
		e.ItemID, e.LocationID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

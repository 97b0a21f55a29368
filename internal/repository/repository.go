package repository

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned when a write would break a stored invariant.
	ErrInvalid = errors.New("invalid record")
	// ErrTxConflict is returned when a transaction lost a race against a
	// concurrent one and can be retried with fresh data.
	ErrTxConflict = errors.New("transaction conflict")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("storage unavailable")
)

// Tx exposes the repositories bound to one transaction.
type Tx interface {
	Products() ProductRepository
	Sales() SaleRepository
	OutboxMsgs() OutboxMsgRepository
}

// UnitOfWork runs a function inside a transaction spanning the catalog,
// the sales ledger and the outbox. Writes made through the Tx commit
// together when fn returns nil and are discarded otherwise.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

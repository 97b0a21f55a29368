package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/event-pos/internal/storage/db"
)

const (
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
	pgCodeLockNotAvailable     = "55P03"
	pgCodeCheckViolation       = "23514"
	pgCodeNumericOutOfRange    = "22003"
)

type unitOfWork struct {
	db db.DB
}

// NewUnitOfWork returns a UnitOfWork backed by postgres transactions.
func NewUnitOfWork(db db.DB) UnitOfWork {
	return &unitOfWork{
		db: db,
	}
}

func (u *unitOfWork) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	err := u.db.WithTx(ctx, func(txDB db.DB) error {
		return fn(&pgTx{db: txDB})
	})
	if err != nil {
		return classifyErr(err)
	}

	return nil
}

type pgTx struct {
	db db.DB
}

func (t *pgTx) Products() ProductRepository {
	return &productRepository{db: t.db}
}

func (t *pgTx) Sales() SaleRepository {
	return &saleRepository{db: t.db}
}

func (t *pgTx) OutboxMsgs() OutboxMsgRepository {
	return &outboxMsgRepository{db: t.db}
}

// classifyErr tags driver errors with the repository sentinel callers branch on.
// Errors that already carry a sentinel, or are not driver errors, pass through.
func classifyErr(err error) error {
	if errors.Is(err, ErrTxConflict) || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrInvalid) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeSerializationFailure, pgCodeDeadlockDetected, pgCodeLockNotAvailable:
			return fmt.Errorf("%w: %w", ErrTxConflict, err)
		case pgCodeCheckViolation, pgCodeNumericOutOfRange:
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return err
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{
		Int:   d.Coefficient(),
		Exp:   d.Exponent(),
		Valid: true,
	}
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, errors.New("numeric is null")
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Zero, errors.New("numeric is not finite")
	}
	if n.Int == nil {
		return decimal.Zero, nil
	}

	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

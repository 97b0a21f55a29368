package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is an immutable ledger entry. ProductName and Price are copied from
// the product when the sale is committed and never follow later edits.
type Sale struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
	Timestamp   time.Time       `json:"timestamp"`
}

// MaxSaleTotal is the exclusive upper bound of a sale total, the range of NUMERIC(14,2).
var MaxSaleTotal = decimal.New(1, 12)

var (
	ErrInvalidQuantity = errors.New("sale quantity is out of range")
	ErrTotalOutOfRange = errors.New("sale total is too large")
)

// Validate checks the bounds a ledger entry must respect to be stored.
func (s Sale) Validate() error {
	if s.Quantity <= 0 || s.Quantity > MaxStock {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, s.Quantity)
	}
	if s.Total.GreaterThanOrEqual(MaxSaleTotal) {
		return fmt.Errorf("%w: %s", ErrTotalOutOfRange, s.Total)
	}
	return nil
}

// LineTotal is the stored total of a sale line: unit price times quantity.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

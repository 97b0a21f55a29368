package model

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sizes maps a size label to its stock count. A missing label means zero stock.
type Sizes map[string]int

// Stock returns the stock for size, zero when the label is absent.
func (s Sizes) Stock(size string) int {
	return s[size]
}

// Total returns the stock summed over every size.
func (s Sizes) Total() int {
	total := 0
	for _, qty := range s {
		total += qty
	}
	return total
}

// Labels returns the size labels in lexical order.
func (s Sizes) Labels() []string {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns an independent copy. A nil map clones to an empty one.
func (s Sizes) Clone() Sizes {
	out := make(Sizes, len(s))
	maps.Copy(out, s)
	return out
}

type Product struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Sizes     Sizes           `json:"sizes"`
	ImageURL  *string         `json:"image_url,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const (
	// PriceScale is the number of decimal places a price may carry.
	PriceScale = 2
	// MaxStock bounds a size's stock and a sale quantity so both fit a
	// 32-bit column.
	MaxStock   = 1_000_000_000
)

// MaxPrice is the exclusive upper bound of a price, the range of NUMERIC(12,2).
var MaxPrice = decimal.New(1, 10)

var (
	ErrEmptyName       = errors.New("product name is empty")
	ErrNegativePrice   = errors.New("product price is negative")
	ErrPricePrecision  = errors.New("product price has more than two decimal places")
	ErrPriceOutOfRange = errors.New("product price is too large")
	ErrNegativeStock   = errors.New("product stock is negative")
	ErrStockOutOfRange = errors.New("product stock is too large")
)

// ValidatePrice checks that price is a non-negative amount in whole cents
// below MaxPrice.
func ValidatePrice(price decimal.Decimal) error {
	switch {
	case price.IsNegative():
		return ErrNegativePrice
	case !price.Equal(price.Truncate(PriceScale)):
		return fmt.Errorf("%w: %s", ErrPricePrecision, price)
	case price.GreaterThanOrEqual(MaxPrice):
		return fmt.Errorf("%w: %s", ErrPriceOutOfRange, price)
	}
	return nil
}

// Validate checks the invariants every stored product must hold.
// Storage backends call it before any write.
func (p Product) Validate() error {
	if p.Name == "" {
		return ErrEmptyName
	}
	if err := ValidatePrice(p.Price); err != nil {
		return err
	}
	for size, qty := range p.Sizes {
		if qty < 0 {
			return fmt.Errorf("%w: size %s has %d", ErrNegativeStock, size, qty)
		}
		if qty > MaxStock {
			return fmt.Errorf("%w: size %s has %d", ErrStockOutOfRange, size, qty)
		}
	}
	return nil
}

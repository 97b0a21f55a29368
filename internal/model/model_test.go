package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tuanvumaihuynh/event-pos/internal/model"
)

func TestProductValidate(t *testing.T) {
	testCases := []struct {
		name    string
		product model.Product
		wantErr error
	}{
		{
			name:    "valid",
			product: model.Product{Name: "Camiseta", Price: decimal.RequireFromString("59.9"), Sizes: model.Sizes{"P": 0, "M": 3}},
		},
		{
			name:    "empty name",
			product: model.Product{Price: decimal.NewFromInt(1)},
			wantErr: model.ErrEmptyName,
		},
		{
			name:    "negative price",
			product: model.Product{Name: "A", Price: decimal.NewFromInt(-1)},
			wantErr: model.ErrNegativePrice,
		},
		{
			name:    "negative stock",
			product: model.Product{Name: "A", Sizes: model.Sizes{"G": -2}},
			wantErr: model.ErrNegativeStock,
		},
		{
			name:    "sub-cent price",
			product: model.Product{Name: "A", Price: decimal.RequireFromString("10.005")},
			wantErr: model.ErrPricePrecision,
		},
		{
			name:    "trailing zeros are whole cents",
			product: model.Product{Name: "A", Price: decimal.RequireFromString("10.500")},
		},
		{
			name:    "price beyond storage range",
			product: model.Product{Name: "A", Price: decimal.RequireFromString("10000000000")},
			wantErr: model.ErrPriceOutOfRange,
		},
		{
			name:    "largest storable price",
			product: model.Product{Name: "A", Price: decimal.RequireFromString("9999999999.99")},
		},
		{
			name:    "stock beyond range",
			product: model.Product{Name: "A", Sizes: model.Sizes{"G": model.MaxStock + 1}},
			wantErr: model.ErrStockOutOfRange,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.product.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSaleValidate(t *testing.T) {
	price := decimal.RequireFromString("9999999999.99")

	assert.NoError(t, model.Sale{Quantity: 99, Total: model.LineTotal(price, 99)}.Validate())
	assert.ErrorIs(t, model.Sale{Quantity: 0}.Validate(), model.ErrInvalidQuantity)
	assert.ErrorIs(t, model.Sale{Quantity: model.MaxStock + 1}.Validate(), model.ErrInvalidQuantity)
	assert.ErrorIs(t, model.Sale{Quantity: 101, Total: model.LineTotal(price, 101)}.Validate(), model.ErrTotalOutOfRange)
}

func TestSizes(t *testing.T) {
	sizes := model.Sizes{"M": 2, "P": 1}

	assert.Equal(t, 2, sizes.Stock("M"))
	assert.Equal(t, 0, sizes.Stock("GG"))
	assert.Equal(t, 3, sizes.Total())
	assert.Equal(t, []string{"M", "P"}, sizes.Labels())

	clone := sizes.Clone()
	clone["M"] = 0
	assert.Equal(t, 2, sizes["M"])

	assert.NotNil(t, model.Sizes(nil).Clone())
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "R$ 12.50", model.FormatMoney(decimal.RequireFromString("12.5")))
	assert.Equal(t, "R$ 149.70", model.FormatMoney(model.LineTotal(decimal.RequireFromString("49.90"), 3)))
}

package model

import "github.com/shopspring/decimal"

// FormatMoney renders an amount the way the shop displays prices.
func FormatMoney(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}

// Package aggregate computes sales statistics over ledger entries that were
// already loaded. Every function is pure.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/event-pos/internal/model"
)

// DefaultExtremes is how many groups RankExtremes returns on each side when
// callers do not ask for a specific number.
const DefaultExtremes = 3

type Totals struct {
	Count         int             `json:"count"`
	TotalQuantity int             `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

// ComputeTotals sums quantity and stored totals.
func ComputeTotals(sales []model.Sale) Totals {
	t := Totals{
		Count:        len(sales),
		TotalRevenue: decimal.Zero,
	}
	for _, sale := range sales {
		t.TotalQuantity += sale.Quantity
		t.TotalRevenue = t.TotalRevenue.Add(sale.Total)
	}
	return t
}

// RollupEntry is the sum of sales sharing a product name and size.
type RollupEntry struct {
	ProductName string          `json:"product_name"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type rollupKey struct {
	productName string
	size        string
}

// Rollup groups sales by the literal (product name, size) pair. Groups keep
// the order in which their first sale appears.
func Rollup(sales []model.Sale) []RollupEntry {
	index := make(map[rollupKey]int)
	entries := make([]RollupEntry, 0)

	for _, sale := range sales {
		key := rollupKey{productName: sale.ProductName, size: sale.Size}
		i, ok := index[key]
		if !ok {
			i = len(entries)
			index[key] = i
			entries = append(entries, RollupEntry{
				ProductName: sale.ProductName,
				Size:        sale.Size,
				Revenue:     decimal.Zero,
			})
		}
		entries[i].Quantity += sale.Quantity
		entries[i].Revenue = entries[i].Revenue.Add(sale.Total)
	}

	return entries
}

// RankExtremes returns the n best sellers by quantity and the n worst.
// Ties keep rollup order. With fewer than 2n groups the lists may overlap.
func RankExtremes(rollup []RollupEntry, n int) (top, bottom []RollupEntry) {
	if n <= 0 {
		return []RollupEntry{}, []RollupEntry{}
	}

	desc := make([]RollupEntry, len(rollup))
	copy(desc, rollup)
	sort.SliceStable(desc, func(i, j int) bool {
		return desc[i].Quantity > desc[j].Quantity
	})

	asc := make([]RollupEntry, len(rollup))
	copy(asc, rollup)
	sort.SliceStable(asc, func(i, j int) bool {
		return asc[i].Quantity < asc[j].Quantity
	})

	return desc[:min(n, len(desc))], asc[:min(n, len(asc))]
}

// Summary is everything the stats views render for one range.
type Summary struct {
	Totals Totals        `json:"totals"`
	Rollup []RollupEntry `json:"rollup"`
	Top    []RollupEntry `json:"top"`
	Bottom []RollupEntry `json:"bottom"`
}

// Summarize computes totals, the rollup and its n extremes on each side.
func Summarize(sales []model.Sale, n int) Summary {
	rollup := Rollup(sales)
	top, bottom := RankExtremes(rollup, n)
	return Summary{
		Totals: ComputeTotals(sales),
		Rollup: rollup,
		Top:    top,
		Bottom: bottom,
	}
}

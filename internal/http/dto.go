package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/event-pos/internal/aggregate"
	"github.com/tuanvumaihuynh/event-pos/internal/http/apierr"
	"github.com/tuanvumaihuynh/event-pos/internal/model"
)

type CreateProductRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Sizes    map[string]int  `json:"sizes"`
	ImageURL *string         `json:"imageUrl"`
}

type UpdateProductRequest struct {
	Name     *string          `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Sizes    *map[string]int  `json:"sizes"`
	ImageURL *string          `json:"imageUrl"`
}

type ProductResponse struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	PriceLabel string          `json:"priceLabel"`
	Sizes      map[string]int  `json:"sizes"`
	TotalStock int             `json:"totalStock"`
	ImageURL   *string         `json:"imageUrl,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func newProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		ID:         p.ID,
		Name:       p.Name,
		Price:      p.Price,
		PriceLabel: model.FormatMoney(p.Price),
		Sizes:      p.Sizes.Clone(),
		TotalStock: p.Sizes.Total(),
		ImageURL:   p.ImageURL,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

type SaleItemRequest struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

type RecordSalesRequest struct {
	Mode  string            `json:"mode"`
	Items []SaleItemRequest `json:"items"`
}

type SaleResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
	TotalLabel  string          `json:"totalLabel"`
	Timestamp   time.Time       `json:"timestamp"`
}

func newSaleResponse(s model.Sale) SaleResponse {
	return SaleResponse{
		ID:          s.ID,
		ProductID:   s.ProductID,
		ProductName: s.ProductName,
		Size:        s.Size,
		Quantity:    s.Quantity,
		Price:       s.Price,
		Total:       s.Total,
		TotalLabel:  model.FormatMoney(s.Total),
		Timestamp:   s.Timestamp,
	}
}

type SaleLineResponse struct {
	Size     string                `json:"size"`
	Quantity int                   `json:"quantity"`
	Sale     *SaleResponse         `json:"sale,omitempty"`
	Error    *apierr.ErrorResponse `json:"error,omitempty"`
	// Available is the stock seen when a line failed for lack of it.
	Available *int `json:"available,omitempty"`
}

type RecordSalesResponse struct {
	Mode    string             `json:"mode"`
	Failed  int                `json:"failed"`
	Results []SaleLineResponse `json:"results"`
}

type TotalsResponse struct {
	Count         int             `json:"count"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	RevenueLabel  string          `json:"revenueLabel"`
}

type RollupEntryResponse struct {
	ProductName string          `json:"productName"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type SalesStatsResponse struct {
	Range  string                `json:"range"`
	Totals TotalsResponse        `json:"totals"`
	Rollup []RollupEntryResponse `json:"rollup"`
	Top    []RollupEntryResponse `json:"top"`
	Bottom []RollupEntryResponse `json:"bottom"`
}

func newSalesStatsResponse(preset aggregate.Preset, s aggregate.Summary) SalesStatsResponse {
	return SalesStatsResponse{
		Range: string(preset),
		Totals: TotalsResponse{
			Count:         s.Totals.Count,
			TotalQuantity: s.Totals.TotalQuantity,
			TotalRevenue:  s.Totals.TotalRevenue,
			RevenueLabel:  model.FormatMoney(s.Totals.TotalRevenue),
		},
		Rollup: newRollupResponses(s.Rollup),
		Top:    newRollupResponses(s.Top),
		Bottom: newRollupResponses(s.Bottom),
	}
}

func newRollupResponses(entries []aggregate.RollupEntry) []RollupEntryResponse {
	items := make([]RollupEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, RollupEntryResponse{
			ProductName: e.ProductName,
			Size:        e.Size,
			Quantity:    e.Quantity,
			Revenue:     e.Revenue,
		})
	}
	return items
}

type ClearSalesResponse struct {
	Deleted int64 `json:"deleted"`
}

type SeedDemoSalesResponse struct {
	Today     int `json:"today"`
	Yesterday int `json:"yesterday"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

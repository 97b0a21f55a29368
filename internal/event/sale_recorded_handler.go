package event

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

const TopicSaleRecorded = "sale.recorded"

// SaleRecordedEvent is published once per committed sale.
type SaleRecordedEvent struct {
	SaleID         string          `json:"sale_id"`
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Size           string          `json:"size"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Total          decimal.Decimal `json:"total"`
	RemainingStock int             `json:"remaining_stock"`
	Timestamp      string          `json:"timestamp"`
}

func (s *Service) handleSaleRecordedEvent(ctx context.Context, ev SaleRecordedEvent) error {
	s.logger.InfoContext(ctx, "sale recorded",
		slog.String("sale_id", ev.SaleID),
		slog.String("product_id", ev.ProductID),
		slog.String("size", ev.Size),
		slog.Int("quantity", ev.Quantity),
		slog.String("total", ev.Total.StringFixed(2)),
	)

	if ev.RemainingStock <= s.lowStockThreshold {
		s.logger.WarnContext(ctx, "low stock",
			slog.String("product_id", ev.ProductID),
			slog.String("product_name", ev.ProductName),
			slog.String("size", ev.Size),
			slog.Int("remaining", ev.RemainingStock),
		)
	}

	return nil
}

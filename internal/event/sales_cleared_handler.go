package event

import (
	"context"
	"log/slog"
)

const TopicSalesCleared = "sales.cleared"

// SalesClearedEvent is published when the ledger is emptied.
type SalesClearedEvent struct {
	Deleted   int64  `json:"deleted"`
	Timestamp string `json:"timestamp"`
}

func (s *Service) handleSalesClearedEvent(ctx context.Context, ev SalesClearedEvent) error {
	s.logger.WarnContext(ctx, "sales ledger cleared",
		slog.Int64("deleted", ev.Deleted),
		slog.String("at", ev.Timestamp),
	)
	return nil
}

package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/event-pos/internal/model"
	"github.com/tuanvumaihuynh/event-pos/internal/repository"
)

type saleRepository struct {
	store *Store
	tx    *tx
}

func (r *saleRepository) CreateSale(ctx context.Context, sale model.Sale) error {
	if err := sale.Validate(); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrInvalid, err)
	}

	return r.store.run(ctx, r.tx, func(t *tx) error {
		t.sales = append(t.sales, sale)
		return nil
	})
}

func (r *saleRepository) ListSales(ctx context.Context, params repository.ListSalesParams) ([]model.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []model.Sale
	r.store.mu.RLock()
	for _, sale := range r.store.sales {
		if r.tx != nil && r.tx.clearsSale(sale.ID) {
			continue
		}
		all = append(all, sale)
	}
	r.store.mu.RUnlock()
	if r.tx != nil {
		all = append(all, r.tx.sales...)
	}

	out := make([]model.Sale, 0, len(all))
	for _, sale := range all {
		if !params.From.IsZero() && sale.Timestamp.Before(params.From) {
			continue
		}
		if !params.To.IsZero() && !sale.Timestamp.Before(params.To) {
			continue
		}
		out = append(out, sale)
	}
	sortSalesNewestFirst(out)

	return out, nil
}

func (r *saleRepository) DeleteAllSales(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.store.run(ctx, r.tx, func(t *tx) error {
		if t.clearedSales == nil {
			t.clearedSales = make(map[uuid.UUID]struct{})
		}

		// Only entries visible now are removed; sales committed by other
		// transactions before this one commits survive.
		t.store.mu.RLock()
		for _, sale := range t.store.sales {
			if _, ok := t.clearedSales[sale.ID]; !ok {
				t.clearedSales[sale.ID] = struct{}{}
				deleted++
			}
		}
		t.store.mu.RUnlock()

		deleted += int64(len(t.sales))
		t.sales = nil
		return nil
	})
	return deleted, err
}

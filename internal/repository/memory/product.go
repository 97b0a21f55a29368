package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/event-pos/internal/model"
	"github.com/tuanvumaihuynh/event-pos/internal/repository"
)

type productRepository struct {
	store *Store
	tx    *tx
}

func (r *productRepository) CreateProduct(ctx context.Context, product model.Product) error {
	if err := product.Validate(); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrInvalid, err)
	}

	return r.store.run(ctx, r.tx, func(t *tx) error {
		if _, exists := t.lookupProduct(product.ID); exists {
			return fmt.Errorf("%w: product %s already exists", repository.ErrInvalid, product.ID)
		}
		p := cloneProduct(product)
		t.products[product.ID] = &p
		return nil
	})
}

func (r *productRepository) GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, err
	}

	var t *tx
	if r.tx != nil {
		t = r.tx
	} else {
		t = newTx(r.store)
	}

	p, ok := t.lookupProduct(id)
	if !ok {
		return model.Product{}, fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
	}
	return p, nil
}

func (r *productRepository) GetProductForUpdate(ctx context.Context, id uuid.UUID) (model.Product, error) {
	var product model.Product
	err := r.store.run(ctx, r.tx, func(t *tx) error {
		if err := t.lockProduct(ctx, id); err != nil {
			return err
		}
		p, ok := t.lookupProduct(id)
		if !ok {
			return fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
		}
		product = p
		return nil
	})
	return product, err
}

func (r *productRepository) ListAllProducts(ctx context.Context) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	merged := make(map[uuid.UUID]model.Product, len(r.store.products))
	for id, p := range r.store.products {
		merged[id] = cloneProduct(p)
	}
	r.store.mu.RUnlock()

	if r.tx != nil {
		for id, staged := range r.tx.products {
			if staged == nil {
				delete(merged, id)
				continue
			}
			merged[id] = cloneProduct(*staged)
		}
	}

	out := make([]model.Product, 0, len(merged))
	for _, p := range merged {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Product) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return out, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, product model.Product) error {
	if err := product.Validate(); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrInvalid, err)
	}

	return r.store.run(ctx, r.tx, func(t *tx) error {
		if err := t.lockProduct(ctx, product.ID); err != nil {
			return err
		}
		existing, ok := t.lookupProduct(product.ID)
		if !ok {
			return fmt.Errorf("product %s: %w", product.ID, repository.ErrNotFound)
		}
		p := cloneProduct(product)
		p.CreatedAt = existing.CreatedAt
		t.products[product.ID] = &p
		return nil
	})
}

func (r *productRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.store.run(ctx, r.tx, func(t *tx) error {
		if err := t.lockProduct(ctx, id); err != nil {
			return err
		}
		if _, ok := t.lookupProduct(id); !ok {
			return fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
		}
		t.products[id] = nil
		return nil
	})
}

// Package backend opens the storage selected by configuration and exposes it
// through the repository interfaces.
package backend

import (
	"context"
	"fmt"

	"github.com/tuanvumaihuynh/event-pos/internal/config"
	"github.com/tuanvumaihuynh/event-pos/internal/repository"
	"github.com/tuanvumaihuynh/event-pos/internal/repository/memory"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/db"
)

// Backend bundles the repositories of one storage driver.
type Backend struct {
	UnitOfWork repository.UnitOfWork
	Products   repository.ProductRepository
	Sales      repository.SaleRepository
	OutboxMsgs repository.OutboxMsgRepository
	Health     db.HealthChecker

	closeFn func()
}

// Close releases the connections held by the backend.
func (b *Backend) Close() {
	if b.closeFn != nil {
		b.closeFn()
	}
}

// Open constructs the backend for cfg.Driver.
func Open(ctx context.Context, cfg config.Storage, pgCfg config.Postgres) (*Backend, error) {
	switch cfg.Driver {
	case config.StorageDriverMemory:
		return NewMemory(), nil
	case config.StorageDriverPostgres:
		pool, err := db.NewPgxPool(ctx, pgCfg)
		if err != nil {
			return nil, fmt.Errorf("create pgx pool: %w", err)
		}

		client := db.NewClient(pool)
		return &Backend{
			UnitOfWork: repository.NewUnitOfWork(client),
			Products:   repository.NewProductRepository(client),
			Sales:      repository.NewSaleRepository(client),
			OutboxMsgs: repository.NewOutboxMsgRepository(client),
			Health:     client,
			closeFn:    pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

// NewMemory returns a backend over a fresh in-memory store.
func NewMemory() *Backend {
	store := memory.NewStore()
	return &Backend{
		UnitOfWork: store,
		Products:   store.Products(),
		Sales:      store.Sales(),
		OutboxMsgs: store.OutboxMsgs(),
		Health:     store,
	}
}

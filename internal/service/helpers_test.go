package service_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/event-pos/internal/config"
	"github.com/tuanvumaihuynh/event-pos/internal/model"
	"github.com/tuanvumaihuynh/event-pos/internal/repository"
	"github.com/tuanvumaihuynh/event-pos/internal/repository/memory"
	"github.com/tuanvumaihuynh/event-pos/internal/service"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/imagestore"
	"github.com/tuanvumaihuynh/event-pos/pkg/validator"
)

var testSaleConfig = config.Sale{
	MaxAttempts:       3,
	RetryBaseDelay:    time.Millisecond,
	Timezone:          "UTC",
	LowStockThreshold: 2,
}

type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{t: start, step: time.Second}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.t
	c.t = c.t.Add(c.step)
	return t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fixture struct {
	store    *memory.Store
	fs       afero.Fs
	clock    *fakeClock
	products service.ProductService
	sales    service.SaleService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithUoW(t, nil)
}

// newFixtureWithUoW builds services over a memory store. wrap, when set,
// decorates the unit of work handed to the services.
func newFixtureWithUoW(t *testing.T, wrap func(repository.UnitOfWork) repository.UnitOfWork) *fixture {
	t.Helper()

	store := memory.NewStore()
	var uow repository.UnitOfWork = store
	if wrap != nil {
		uow = wrap(store)
	}

	fs := afero.NewMemMapFs()
	clock := newFakeClock(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))
	logger := slog.New(slog.DiscardHandler)
	v := validator.MustNewDefaultValidator()

	products := service.NewProductService(logger, uow, store.Products(), imagestore.NewFSStore(fs, "/images", 1<<20), v,
		service.WithClock(clock.Now))
	sales, err := service.NewSaleService(testSaleConfig, logger, uow, store.Products(), store.Sales(), v,
		service.WithClock(clock.Now))
	require.NoError(t, err)

	return &fixture{
		store:    store,
		fs:       fs,
		clock:    clock,
		products: products,
		sales:    sales,
	}
}

func (f *fixture) createProduct(t *testing.T, name, price string, sizes model.Sizes) model.Product {
	t.Helper()
	p, err := f.products.CreateProduct(context.Background(), service.CreateProductParams{
		Name:  name,
		Price: mustDecimal(price),
		Sizes: sizes,
	})
	require.NoError(t, err)
	return p
}

var errBoom = errors.New("boom")

// failingSalesUoW makes every ledger append fail after the stock write.
type failingSalesUoW struct {
	repository.UnitOfWork
}

func (u failingSalesUoW) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return u.UnitOfWork.WithTx(ctx, func(tx repository.Tx) error {
		return fn(failingSalesTx{tx})
	})
}

type failingSalesTx struct {
	repository.Tx
}

func (t failingSalesTx) Sales() repository.SaleRepository {
	return failingSaleRepository{t.Tx.Sales()}
}

type failingSaleRepository struct {
	repository.SaleRepository
}

func (failingSaleRepository) CreateSale(context.Context, model.Sale) error {
	return errBoom
}

// conflictingUoW runs fn and then reports a commit conflict for the first
// failures transactions, rolling them back.
type conflictingUoW struct {
	repository.UnitOfWork
	failures int32
	calls    atomic.Int32
}

func (u *conflictingUoW) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	call := u.calls.Add(1)
	return u.UnitOfWork.WithTx(ctx, func(tx repository.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		if u.failures < 0 || call <= u.failures {
			return fmt.Errorf("commit transaction: %w", repository.ErrTxConflict)
		}
		return nil
	})
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/tuanvumaihuynh/event-pos/internal/aggregate"
	"github.com/tuanvumaihuynh/event-pos/internal/apperr"
	"github.com/tuanvumaihuynh/event-pos/internal/config"
	"github.com/tuanvumaihuynh/event-pos/internal/event"
	"github.com/tuanvumaihuynh/event-pos/internal/model"
	"github.com/tuanvumaihuynh/event-pos/internal/repository"
	"github.com/tuanvumaihuynh/event-pos/pkg/outbox"
	"github.com/tuanvumaihuynh/event-pos/pkg/validator"
)

// BatchMode decides what happens to the other lines of a batch when one fails.
type BatchMode string

const (
	// BatchModePartial commits every line on its own and keeps going past failures.
	BatchModePartial BatchMode = "partial"
	// BatchModeAllOrNothing commits all lines in one transaction or none of them.
	BatchModeAllOrNothing BatchMode = "all_or_nothing"
)

func (m BatchMode) Validate() error {
	switch m {
	case BatchModePartial, BatchModeAllOrNothing:
		return nil
	default:
		return fmt.Errorf("unknown batch mode %q", m)
	}
}

type SaleLine struct {
	Size     string `validate:"sizelabel"`
	Quantity int    `validate:"gt=0,lte=1000000000"`
}

type RecordSalesParams struct {
	ProductID uuid.UUID
	Mode      BatchMode  `validate:"omitempty,enum"`
	Lines     []SaleLine `validate:"required,min=1,dive"`
}

// LineResult is the outcome of one line. Exactly one of Sale and Err is set.
type LineResult struct {
	Line SaleLine
	Sale *model.Sale
	Err  error
}

type RecordSalesResult struct {
	Mode  BatchMode
	Lines []LineResult
}

// Failed reports how many lines did not commit.
func (r RecordSalesResult) Failed() int {
	n := 0
	for _, l := range r.Lines {
		if l.Err != nil {
			n++
		}
	}
	return n
}

type ListSalesParams struct {
	Range aggregate.Preset `validate:"omitempty,enum"`
}

type SalesStatsParams struct {
	Range aggregate.Preset `validate:"omitempty,enum"`
	Top   int              `validate:"gte=0,lte=100"`
}

type SeedDemoSalesResult struct {
	Today     int
	Yesterday int
}

type SaleService interface {
	// RecordSale atomically takes quantity units of size from the product's
	// stock and appends the matching ledger entry.
	RecordSale(ctx context.Context, productID uuid.UUID, line SaleLine) (model.Sale, error)
	RecordSales(ctx context.Context, params RecordSalesParams) (RecordSalesResult, error)
	// ListSales returns the ledger, newest first.
	ListSales(ctx context.Context, params ListSalesParams) ([]model.Sale, error)
	SalesStats(ctx context.Context, params SalesStatsParams) (aggregate.Summary, error)
	// ClearSales empties the ledger and reports how many entries it removed.
	ClearSales(ctx context.Context) (int64, error)
	SeedDemoSales(ctx context.Context) (SeedDemoSalesResult, error)
}

type saleService struct {
	cfg         config.Sale
	logger      *slog.Logger
	uow         repository.UnitOfWork
	productRepo repository.ProductRepository
	saleRepo    repository.SaleRepository
	validator   validator.Validator
	location    *time.Location
	now         func() time.Time
	rand        *lockedRand
}

func NewSaleService(
	cfg config.Sale,
	logger *slog.Logger,
	uow repository.UnitOfWork,
	productRepo repository.ProductRepository,
	saleRepo repository.SaleRepository,
	validator validator.Validator,
	opts ...Option,
) (SaleService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("sale config location: %w", err)
	}

	o := newOptions(opts)
	return &saleService{
		cfg:         cfg,
		logger:      logger.With(slog.String("service", "sale")),
		uow:         uow,
		productRepo: productRepo,
		saleRepo:    saleRepo,
		validator:   validator,
		location:    loc,
		now:         o.now,
		rand:        newLockedRand(o.rand),
	}, nil
}

func (s *saleService) RecordSale(ctx context.Context, productID uuid.UUID, line SaleLine) (model.Sale, error) {
	if err := s.validator.Validate(line); err != nil {
		return model.Sale{}, apperr.ValidationErr.WrapParent(err)
	}

	var sale model.Sale
	if err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.uow.WithTx(ctx, func(tx repository.Tx) error {
			var err error
			sale, err = s.recordSaleTx(ctx, tx, productID, line)
			return err
		})
	}); err != nil {
		return model.Sale{}, fmt.Errorf("record sale: %w", mapRepoErr(err))
	}

	s.logger.InfoContext(ctx, "sale recorded",
		slog.String("sale_id", sale.ID.String()),
		slog.String("product_id", productID.String()),
		slog.String("size", line.Size),
		slog.Int("quantity", line.Quantity),
	)

	return sale, nil
}

func (s *saleService) RecordSales(ctx context.Context, params RecordSalesParams) (RecordSalesResult, error) {
	if params.Mode == "" {
		params.Mode = BatchModePartial
	}
	if err := s.validator.Validate(params); err != nil {
		return RecordSalesResult{}, apperr.ValidationErr.WrapParent(err)
	}

	result := RecordSalesResult{
		Mode:  params.Mode,
		Lines: make([]LineResult, 0, len(params.Lines)),
	}

	switch params.Mode {
	case BatchModeAllOrNothing:
		var sales []model.Sale
		err := s.withRetry(ctx, func(ctx context.Context) error {
			sales = sales[:0]
			return s.uow.WithTx(ctx, func(tx repository.Tx) error {
				for _, line := range params.Lines {
					sale, err := s.recordSaleTx(ctx, tx, params.ProductID, line)
					if err != nil {
						return fmt.Errorf("size %s: %w", line.Size, err)
					}
					sales = append(sales, sale)
				}
				return nil
			})
		})
		if err != nil {
			return RecordSalesResult{}, fmt.Errorf("record sales: %w", mapRepoErr(err))
		}

		for i, line := range params.Lines {
			result.Lines = append(result.Lines, LineResult{Line: line, Sale: &sales[i]})
		}
	default:
		for _, line := range params.Lines {
			sale, err := s.RecordSale(ctx, params.ProductID, line)
			if err != nil {
				if errors.Is(err, apperr.ProductNotFoundErr) && len(result.Lines) == 0 {
					return RecordSalesResult{}, err
				}
				result.Lines = append(result.Lines, LineResult{Line: line, Err: err})
				continue
			}
			result.Lines = append(result.Lines, LineResult{Line: line, Sale: &sale})
		}
	}

	return result, nil
}

// recordSaleTx runs the sale protocol inside tx: lock the product, check the
// stock of the size, decrement it, append the ledger entry and its event.
func (s *saleService) recordSaleTx(ctx context.Context, tx repository.Tx, productID uuid.UUID, line SaleLine) (model.Sale, error) {
	product, err := tx.Products().GetProductForUpdate(ctx, productID)
	if err != nil {
		return model.Sale{}, fmt.Errorf("product repository get product for update: %w", err)
	}

	available := product.Sizes.Stock(line.Size)
	if available < line.Quantity {
		return model.Sale{}, &apperr.InsufficientStockError{
			ProductID: productID,
			Size:      line.Size,
			Requested: line.Quantity,
			Available: available,
		}
	}

	now := s.now()
	product.Sizes = product.Sizes.Clone()
	product.Sizes[line.Size] = available - line.Quantity
	product.UpdatedAt = now
	if err := tx.Products().UpdateProduct(ctx, product); err != nil {
		return model.Sale{}, fmt.Errorf("product repository update product: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.Sale{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	sale := model.Sale{
		ID:          id,
		ProductID:   product.ID,
		ProductName: product.Name,
		Size:        line.Size,
		Quantity:    line.Quantity,
		Price:       product.Price,
		Total:       model.LineTotal(product.Price, line.Quantity),
		Timestamp:   now,
	}
	if err := tx.Sales().CreateSale(ctx, sale); err != nil {
		return model.Sale{}, fmt.Errorf("sale repository create sale: %w", err)
	}

	ev := event.SaleRecordedEvent{
		SaleID:         sale.ID.String(),
		ProductID:      sale.ProductID.String(),
		ProductName:    sale.ProductName,
		Size:           sale.Size,
		Quantity:       sale.Quantity,
		Price:          sale.Price,
		Total:          sale.Total,
		RemainingStock: product.Sizes[line.Size],
		Timestamp:      sale.Timestamp.Format(time.RFC3339Nano),
	}
	if err := writeOutboxMsg(ctx, tx, event.TopicSaleRecorded, ev, sale.ProductID.String()); err != nil {
		return model.Sale{}, err
	}

	return sale, nil
}

// withRetry retries fn while it fails with a transaction conflict, with
// exponential backoff, up to MaxAttempts tries in total.
func (s *saleService) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	maxRetries := uint64(0)
	if s.cfg.MaxAttempts > 1 {
		maxRetries = s.cfg.MaxAttempts - 1
	}

	base := s.cfg.RetryBaseDelay
	if base <= 0 {
		base = time.Millisecond
	}

	backoff := retry.NewExponential(base)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxRetries(maxRetries, backoff)

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if errors.Is(err, repository.ErrTxConflict) {
			s.logger.DebugContext(ctx, "sale transaction conflict, retrying",
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *saleService) ListSales(ctx context.Context, params ListSalesParams) ([]model.Sale, error) {
	r, err := s.resolveRange(params.Range)
	if err != nil {
		return nil, err
	}

	sales, err := s.saleRepo.ListSales(ctx, repository.ListSalesParams{
		From: r.Start,
		To:   r.End,
	})
	if err != nil {
		return nil, fmt.Errorf("sale repository list sales: %w", mapRepoErr(err))
	}

	return sales, nil
}

func (s *saleService) SalesStats(ctx context.Context, params SalesStatsParams) (aggregate.Summary, error) {
	if err := s.validator.Validate(params); err != nil {
		return aggregate.Summary{}, apperr.ValidationErr.WrapParent(err)
	}

	sales, err := s.ListSales(ctx, ListSalesParams{Range: params.Range})
	if err != nil {
		return aggregate.Summary{}, err
	}

	top := params.Top
	if top == 0 {
		top = aggregate.DefaultExtremes
	}

	return aggregate.Summarize(sales, top), nil
}

func (s *saleService) resolveRange(preset aggregate.Preset) (aggregate.Range, error) {
	if preset == "" {
		preset = aggregate.PresetAll
	}
	r, err := aggregate.RangeFor(preset, s.now().In(s.location))
	if err != nil {
		return aggregate.Range{}, apperr.ValidationErr.WithMsg("%s", err.Error()).WrapParent(err)
	}
	return r, nil
}

func (s *saleService) ClearSales(ctx context.Context) (int64, error) {
	var deleted int64
	if err := s.uow.WithTx(ctx, func(tx repository.Tx) error {
		n, err := tx.Sales().DeleteAllSales(ctx)
		if err != nil {
			return fmt.Errorf("sale repository delete all sales: %w", err)
		}
		deleted = n

		ev := event.SalesClearedEvent{
			Deleted:   n,
			Timestamp: s.now().Format(time.RFC3339Nano),
		}
		return writeOutboxMsg(ctx, tx, event.TopicSalesCleared, ev, "")
	}); err != nil {
		return 0, fmt.Errorf("uow with tx: %w", mapRepoErr(err))
	}

	s.logger.WarnContext(ctx, "sales ledger cleared", slog.Int64("deleted", deleted))

	return deleted, nil
}

var demoSizes = []string{"P", "M", "G", "GG", "G1"}

const (
	demoSalesToday     = 15
	demoSalesYesterday = 10
)

// SeedDemoSales appends random sales for today and yesterday over the
// current catalog. Stock is left untouched.
func (s *saleService) SeedDemoSales(ctx context.Context) (SeedDemoSalesResult, error) {
	products, err := s.productRepo.ListAllProducts(ctx)
	if err != nil {
		return SeedDemoSalesResult{}, fmt.Errorf("product repository list all products: %w", mapRepoErr(err))
	}
	if len(products) == 0 {
		return SeedDemoSalesResult{}, apperr.ValidationErr.WithMsg("the catalog is empty, create products before seeding sales")
	}

	now := s.now().In(s.location)
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, s.location)
	yesterday := today.AddDate(0, 0, -1)

	if err := s.uow.WithTx(ctx, func(tx repository.Tx) error {
		for i := range demoSalesToday + demoSalesYesterday {
			day := today
			if i >= demoSalesToday {
				day = yesterday
			}

			sale, err := s.demoSale(products, day)
			if err != nil {
				return err
			}
			if err := tx.Sales().CreateSale(ctx, sale); err != nil {
				return fmt.Errorf("sale repository create sale: %w", err)
			}
		}
		return nil
	}); err != nil {
		return SeedDemoSalesResult{}, fmt.Errorf("uow with tx: %w", mapRepoErr(err))
	}

	return SeedDemoSalesResult{
		Today:     demoSalesToday,
		Yesterday: demoSalesYesterday,
	}, nil
}

func (s *saleService) demoSale(products []model.Product, day time.Time) (model.Sale, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return model.Sale{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	product := products[s.rand.IntN(len(products))]
	quantity := s.rand.IntN(3) + 1
	offset := time.Duration(s.rand.Int64N(int64(24 * time.Hour)))

	return model.Sale{
		ID:          id,
		ProductID:   product.ID,
		ProductName: product.Name,
		Size:        demoSizes[s.rand.IntN(len(demoSizes))],
		Quantity:    quantity,
		Price:       product.Price,
		Total:       model.LineTotal(product.Price, quantity),
		Timestamp:   day.Add(offset),
	}, nil
}

func writeOutboxMsg(ctx context.Context, tx repository.Tx, topic string, ev any, partitionKey string) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	params := repository.CreateOutboxMsgParams{
		Topic:   topic,
		Headers: outbox.BuildHeaders(ctx),
		Payload: payload,
	}
	if partitionKey != "" {
		params.PartitionKey = &partitionKey
	}

	if err := tx.OutboxMsgs().CreateOutboxMsg(ctx, params); err != nil {
		return fmt.Errorf("outbox msg repository create outbox msg: %w", err)
	}

	return nil
}

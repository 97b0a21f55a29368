package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tuanvumaihuynh/event-pos/internal/model"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/db"
)

// ListSalesParams narrows a ledger listing to [From, To). Zero bounds are open.
type ListSalesParams struct {
	From time.Time
	To   time.Time
}

// SaleRepository is the append-only sales ledger.
type SaleRepository interface {
	CreateSale(ctx context.Context, sale model.Sale) error
	// ListSales returns sales ordered by timestamp, newest first.
	ListSales(ctx context.Context, params ListSalesParams) ([]model.Sale, error)
	// DeleteAllSales empties the ledger and reports how many entries it removed.
	DeleteAllSales(ctx context.Context) (int64, error)
}

type saleRepository struct {
	db db.DB
}

func NewSaleRepository(db db.DB) SaleRepository {
	return &saleRepository{
		db: db,
	}
}

type saleRow struct {
	ID          uuid.UUID      `db:"id"`
	ProductID   uuid.UUID      `db:"product_id"`
	ProductName string         `db:"product_name"`
	Size        string         `db:"size"`
	Quantity    int32          `db:"quantity"`
	Price       pgtype.Numeric `db:"price"`
	Total       pgtype.Numeric `db:"total"`
	SoldAt      time.Time      `db:"sold_at"`
}

func (r saleRepository) CreateSale(ctx context.Context, sale model.Sale) error {
	if err := sale.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if _, err := r.db.Exec(ctx, `
		INSERT INTO sales (id, product_id, product_name, size, quantity, price, total, sold_at)
		VALUES (@id, @product_id, @product_name, @size, @quantity, @price, @total, @sold_at)
	`, pgx.NamedArgs{
		"id":           sale.ID,
		"product_id":   sale.ProductID,
		"product_name": sale.ProductName,
		"size":         sale.Size,
		"quantity":     sale.Quantity,
		"price":        decimalToNumeric(sale.Price),
		"total":        decimalToNumeric(sale.Total),
		"sold_at":      sale.Timestamp,
	}); err != nil {
		return fmt.Errorf("create sale: %w", classifyErr(err))
	}

	return nil
}

func (r saleRepository) ListSales(ctx context.Context, params ListSalesParams) ([]model.Sale, error) {
	var from, to *time.Time
	if !params.From.IsZero() {
		from = &params.From
	}
	if !params.To.IsZero() {
		to = &params.To
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, product_name, size, quantity, price, total, sold_at
		FROM sales
		WHERE (@from::timestamptz IS NULL OR sold_at >= @from::timestamptz)
		  AND (@to::timestamptz IS NULL OR sold_at < @to::timestamptz)
		ORDER BY sold_at DESC
	`, pgx.NamedArgs{
		"from": from,
		"to":   to,
	})
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", classifyErr(err))
	}

	saleRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[saleRow])
	if err != nil {
		return nil, fmt.Errorf("collect sales: %w", classifyErr(err))
	}

	sales := make([]model.Sale, 0, len(saleRows))
	for _, row := range saleRows {
		sale, err := saleRowToModelSale(row)
		if err != nil {
			return nil, fmt.Errorf("convert sale %s: %w", row.ID, err)
		}
		sales = append(sales, sale)
	}

	return sales, nil
}

func (r saleRepository) DeleteAllSales(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sales`)
	if err != nil {
		return 0, fmt.Errorf("delete all sales: %w", classifyErr(err))
	}

	return tag.RowsAffected(), nil
}

func saleRowToModelSale(row saleRow) (model.Sale, error) {
	price, err := numericToDecimal(row.Price)
	if err != nil {
		return model.Sale{}, fmt.Errorf("convert price: %w", err)
	}
	total, err := numericToDecimal(row.Total)
	if err != nil {
		return model.Sale{}, fmt.Errorf("convert total: %w", err)
	}

	return model.Sale{
		ID:          row.ID,
		ProductID:   row.ProductID,
		ProductName: row.ProductName,
		Size:        row.Size,
		Quantity:    int(row.Quantity),
		Price:       price,
		Total:       total,
		Timestamp:   row.SoldAt,
	}, nil
}

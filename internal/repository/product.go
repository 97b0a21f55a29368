package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tuanvumaihuynh/event-pos/internal/model"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/db"
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, product model.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error)
	// GetProductForUpdate reads the product and holds a lock on it until the
	// enclosing transaction ends.
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (model.Product, error)
	// ListAllProducts returns every product ordered by name.
	ListAllProducts(ctx context.Context) ([]model.Product, error)
	// UpdateProduct overwrites the mutable fields of an existing product.
	UpdateProduct(ctx context.Context, product model.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type productRepository struct {
	db db.DB
}

func NewProductRepository(db db.DB) ProductRepository {
	return &productRepository{
		db: db,
	}
}

const productColumns = `id, name, price, sizes, image_url, created_at, updated_at`

type productRow struct {
	ID        uuid.UUID      `db:"id"`
	Name      string         `db:"name"`
	Price     pgtype.Numeric `db:"price"`
	Sizes     map[string]int `db:"sizes"`
	ImageURL  *string        `db:"image_url"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r productRepository) CreateProduct(ctx context.Context, product model.Product) error {
	if err := product.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if _, err := r.db.Exec(ctx, `
		INSERT INTO products (id, name, price, sizes, image_url, created_at, updated_at)
		VALUES (@id, @name, @price, @sizes, @image_url, @created_at, @updated_at)
	`, pgx.NamedArgs{
		"id":         product.ID,
		"name":       product.Name,
		"price":      decimalToNumeric(product.Price),
		"sizes":      sizesOrEmpty(product.Sizes),
		"image_url":  product.ImageURL,
		"created_at": product.CreatedAt,
		"updated_at": product.UpdatedAt,
	}); err != nil {
		return fmt.Errorf("create product: %w", classifyErr(err))
	}

	return nil
}

func (r productRepository) GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error) {
	return r.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (r productRepository) GetProductForUpdate(ctx context.Context, id uuid.UUID) (model.Product, error) {
	return r.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r productRepository) getProduct(ctx context.Context, query string, id uuid.UUID) (model.Product, error) {
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return model.Product{}, fmt.Errorf("query product: %w", classifyErr(err))
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return model.Product{}, fmt.Errorf("collect product: %w", classifyErr(err))
	}

	return productRowToModelProduct(row)
}

func (r productRepository) ListAllProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list all products: %w", classifyErr(err))
	}

	productRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		return nil, fmt.Errorf("collect products: %w", classifyErr(err))
	}

	modelProducts := make([]model.Product, 0, len(productRows))
	for _, row := range productRows {
		modelProduct, err := productRowToModelProduct(row)
		if err != nil {
			return nil, fmt.Errorf("convert product to model product: %w", err)
		}
		modelProducts = append(modelProducts, modelProduct)
	}

	return modelProducts, nil
}

func (r productRepository) UpdateProduct(ctx context.Context, product model.Product) error {
	if err := product.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET
			name       = @name,
			price      = @price,
			sizes      = @sizes,
			image_url  = @image_url,
			updated_at = @updated_at
		WHERE id = @id
	`, pgx.NamedArgs{
		"id":         product.ID,
		"name":       product.Name,
		"price":      decimalToNumeric(product.Price),
		"sizes":      sizesOrEmpty(product.Sizes),
		"image_url":  product.ImageURL,
		"updated_at": product.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("update product: %w", classifyErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", product.ID, ErrNotFound)
	}

	return nil
}

func (r productRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", classifyErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}

	return nil
}

func productRowToModelProduct(row productRow) (model.Product, error) {
	price, err := numericToDecimal(row.Price)
	if err != nil {
		return model.Product{}, fmt.Errorf("convert price: %w", err)
	}

	return model.Product{
		ID:        row.ID,
		Name:      row.Name,
		Price:     price,
		Sizes:     model.Sizes(row.Sizes).Clone(),
		ImageURL:  row.ImageURL,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func sizesOrEmpty(sizes model.Sizes) map[string]int {
	if sizes == nil {
		return map[string]int{}
	}
	return sizes
}

package service_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/event-pos/internal/apperr"
	"github.com/tuanvumaihuynh/event-pos/internal/model"
	"github.com/tuanvumaihuynh/event-pos/internal/service"
	"github.com/tuanvumaihuynh/event-pos/pkg/ptr"
)

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestProductService_CreateGetUpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.products.CreateProduct(ctx, service.CreateProductParams{
		Name:  "  Camiseta  ",
		Price: mustDecimal("49.90"),
		Sizes: model.Sizes{"P": 2, "M": 5},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "Camiseta", created.Name)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := f.products.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := f.products.UpdateProduct(ctx, created.ID, service.UpdateProductParams{
		Name: ptr.New("Camiseta Preta"),
	})
	require.NoError(t, err)

	got, err = f.products.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
	assert.Equal(t, "Camiseta Preta", got.Name)
	assert.True(t, got.Price.Equal(created.Price))
	assert.Equal(t, created.Sizes, got.Sizes)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestProductService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name   string
		params service.CreateProductParams
	}{
		{name: "empty name", params: service.CreateProductParams{Name: "   ", Price: mustDecimal("1")}},
		{name: "negative price", params: service.CreateProductParams{Name: "Boné", Price: mustDecimal("-1")}},
		{name: "negative stock", params: service.CreateProductParams{Name: "Boné", Price: mustDecimal("1"), Sizes: model.Sizes{"U": -2}}},
		{name: "blank size label", params: service.CreateProductParams{Name: "Boné", Price: mustDecimal("1"), Sizes: model.Sizes{" ": 1}}},
		{name: "sub-cent price", params: service.CreateProductParams{Name: "Boné", Price: mustDecimal("10.005")}},
		{name: "price beyond range", params: service.CreateProductParams{Name: "Boné", Price: mustDecimal("10000000000")}},
		{name: "stock beyond range", params: service.CreateProductParams{Name: "Boné", Price: mustDecimal("1"), Sizes: model.Sizes{"U": model.MaxStock + 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.products.CreateProduct(ctx, tt.params)
			assert.ErrorIs(t, err, apperr.ValidationErr)
		})
	}

	products, err := f.products.ListAllProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestProductService_PriceKeepsWholeCents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.products.CreateProduct(ctx, service.CreateProductParams{Name: "Boné", Price: mustDecimal("10.005")})
	require.ErrorIs(t, err, apperr.ValidationErr)
	assert.ErrorIs(t, err, model.ErrPricePrecision)

	created := f.createProduct(t, "Boné", "10.50", model.Sizes{"U": 3})
	got, err := f.products.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, created.Price.Equal(got.Price))

	sale, err := f.sales.RecordSale(ctx, created.ID, service.SaleLine{Size: "U", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "31.5", sale.Total.String())
}

func TestProductService_UpdateValidationAndNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.createProduct(t, "Regata", "30", model.Sizes{"M": 1})

	_, err := f.products.UpdateProduct(ctx, p.ID, service.UpdateProductParams{Name: ptr.New("")})
	assert.ErrorIs(t, err, apperr.ValidationErr)

	_, err = f.products.UpdateProduct(ctx, p.ID, service.UpdateProductParams{Price: ptr.New(mustDecimal("-0.01"))})
	assert.ErrorIs(t, err, apperr.ValidationErr)

	_, err = f.products.UpdateProduct(ctx, p.ID, service.UpdateProductParams{Price: ptr.New(mustDecimal("10.005"))})
	assert.ErrorIs(t, err, apperr.ValidationErr)

	_, err = f.products.UpdateProduct(ctx, uuid.New(), service.UpdateProductParams{Name: ptr.New("x")})
	assert.ErrorIs(t, err, apperr.ProductNotFoundErr)

	_, err = f.products.GetProduct(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ProductNotFoundErr)
}

func TestProductService_UpdateReplacesSizes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.createProduct(t, "Regata", "30", model.Sizes{"M": 1, "G": 4})

	updated, err := f.products.UpdateProduct(ctx, p.ID, service.UpdateProductParams{
		Sizes: &model.Sizes{"M": 7},
	})
	require.NoError(t, err)
	assert.Equal(t, model.Sizes{"M": 7}, updated.Sizes)
	assert.Equal(t, "Regata", updated.Name)
}

func TestProductService_ListAllProductsOrderedByName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createProduct(t, "Regata", "30", nil)
	f.createProduct(t, "Boné", "25", nil)

	products, err := f.products.ListAllProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Boné", products[0].Name)
	assert.Equal(t, "Regata", products[1].Name)
}

func TestProductService_DeleteIsIdempotentAndRemovesImage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.createProduct(t, "Camiseta", "49.90", model.Sizes{"M": 1})

	withImage, err := f.products.UploadImage(ctx, service.UploadImageParams{
		ProductID: p.ID,
		Filename:  "front.png",
		Body:      bytes.NewReader([]byte("png")),
	})
	require.NoError(t, err)
	require.NotNil(t, withImage.ImageURL)
	assert.Equal(t, "/images/products/"+p.ID.String()+".png", *withImage.ImageURL)

	require.NoError(t, f.products.DeleteProduct(ctx, p.ID))

	_, err = f.products.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.ProductNotFoundErr)

	exists, err := afero.Exists(f.fs, "/products/"+p.ID.String()+".png")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, f.products.DeleteProduct(ctx, p.ID))
}

func TestProductService_DeleteToleratesImageFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.products.CreateProduct(ctx, service.CreateProductParams{
		Name:     "Boné",
		Price:    mustDecimal("25"),
		ImageURL: ptr.New("https://cdn.example.com/elsewhere.png"),
	})
	require.NoError(t, err)

	assert.NoError(t, f.products.DeleteProduct(ctx, p.ID))
}

func TestProductService_UploadImage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.createProduct(t, "Camiseta", "49.90", nil)

	_, err := f.products.UploadImage(ctx, service.UploadImageParams{
		ProductID: p.ID,
		Filename:  "notes.txt",
		Body:      bytes.NewReader([]byte("x")),
	})
	assert.ErrorIs(t, err, apperr.ImageInvalidErr)

	_, err = f.products.UploadImage(ctx, service.UploadImageParams{
		ProductID: uuid.New(),
		Filename:  "a.png",
		Body:      bytes.NewReader([]byte("x")),
	})
	assert.ErrorIs(t, err, apperr.ProductNotFoundErr)

	first, err := f.products.UploadImage(ctx, service.UploadImageParams{
		ProductID: p.ID,
		Filename:  "a.png",
		Body:      bytes.NewReader([]byte("png")),
	})
	require.NoError(t, err)

	second, err := f.products.UploadImage(ctx, service.UploadImageParams{
		ProductID:   p.ID,
		ContentType: "image/jpeg",
		Body:        bytes.NewReader([]byte("jpg")),
	})
	require.NoError(t, err)
	assert.NotEqual(t, *first.ImageURL, *second.ImageURL)

	oldExists, err := afero.Exists(f.fs, "/products/"+p.ID.String()+".png")
	require.NoError(t, err)
	assert.False(t, oldExists, "replaced image is removed")

	newExists, err := afero.Exists(f.fs, "/products/"+p.ID.String()+".jpg")
	require.NoError(t, err)
	assert.True(t, newExists)
}

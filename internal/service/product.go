package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/event-pos/internal/apperr"
	"github.com/tuanvumaihuynh/event-pos/internal/model"
	"github.com/tuanvumaihuynh/event-pos/internal/repository"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/imagestore"
	"github.com/tuanvumaihuynh/event-pos/pkg/validator"
)

// ImageStore is the collaborator that holds product images.
type ImageStore interface {
	Store(ctx context.Context, key string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

type CreateProductParams struct {
	Name     string          `validate:"required"`
	Price    decimal.Decimal `validate:"gte=0"`
	Sizes    model.Sizes     `validate:"omitempty,dive,keys,sizelabel,endkeys,gte=0,lte=1000000000"`
	ImageURL *string
}

// UpdateProductParams changes only the fields that are set.
type UpdateProductParams struct {
	Name     *string
	Price    *decimal.Decimal `validate:"omitempty,gte=0"`
	Sizes    *model.Sizes     `validate:"omitempty,dive,keys,sizelabel,endkeys,gte=0,lte=1000000000"`
	ImageURL *string
}

type UploadImageParams struct {
	ProductID   uuid.UUID
	Filename    string
	ContentType string
	Body        io.Reader
}

type ProductService interface {
	ListAllProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error)
	CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, params UpdateProductParams) (model.Product, error)
	// DeleteProduct removes the product and, best effort, its image.
	// Deleting a missing product succeeds.
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	UploadImage(ctx context.Context, params UploadImageParams) (model.Product, error)
}

type productService struct {
	logger      *slog.Logger
	uow         repository.UnitOfWork
	productRepo repository.ProductRepository
	images      ImageStore
	validator   validator.Validator
	now         func() time.Time
}

func NewProductService(
	logger *slog.Logger,
	uow repository.UnitOfWork,
	productRepo repository.ProductRepository,
	images ImageStore,
	validator validator.Validator,
	opts ...Option,
) ProductService {
	o := newOptions(opts)
	return &productService{
		logger:      logger.With(slog.String("service", "product")),
		uow:         uow,
		productRepo: productRepo,
		images:      images,
		validator:   validator,
		now:         o.now,
	}
}

func (s *productService) ListAllProducts(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.ListAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("product repository list all products: %w", mapRepoErr(err))
	}

	return products, nil
}

func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error) {
	product, err := s.productRepo.GetProduct(ctx, id)
	if err != nil {
		return model.Product{}, fmt.Errorf("product repository get product: %w", mapRepoErr(err))
	}

	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error) {
	params.Name = strings.TrimSpace(params.Name)
	if err := s.validator.Validate(params); err != nil {
		return model.Product{}, apperr.ValidationErr.WrapParent(err)
	}
	if err := validatePrice(params.Price); err != nil {
		return model.Product{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.Product{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := s.now()
	product := model.Product{
		ID:        id,
		Name:      params.Name,
		Price:     params.Price,
		Sizes:     params.Sizes.Clone(),
		ImageURL:  params.ImageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.productRepo.CreateProduct(ctx, product); err != nil {
		return model.Product{}, fmt.Errorf("product repository create product: %w", mapRepoErr(err))
	}

	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id uuid.UUID, params UpdateProductParams) (model.Product, error) {
	if params.Name != nil {
		params.Name = ptrTrim(params.Name)
		if *params.Name == "" {
			return model.Product{}, apperr.ValidationErr.WithMsg("name must not be empty")
		}
	}
	if err := s.validator.Validate(params); err != nil {
		return model.Product{}, apperr.ValidationErr.WrapParent(err)
	}
	if params.Price != nil {
		if err := validatePrice(*params.Price); err != nil {
			return model.Product{}, err
		}
	}

	var updated model.Product
	if err := s.uow.WithTx(ctx, func(tx repository.Tx) error {
		product, err := tx.Products().GetProductForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("product repository get product for update: %w", err)
		}

		if params.Name != nil {
			product.Name = *params.Name
		}
		if params.Price != nil {
			product.Price = *params.Price
		}
		if params.Sizes != nil {
			product.Sizes = params.Sizes.Clone()
		}
		if params.ImageURL != nil {
			product.ImageURL = params.ImageURL
		}
		product.UpdatedAt = s.now()

		if err := tx.Products().UpdateProduct(ctx, product); err != nil {
			return fmt.Errorf("product repository update product: %w", err)
		}

		updated = product
		return nil
	}); err != nil {
		return model.Product{}, fmt.Errorf("uow with tx: %w", mapRepoErr(err))
	}

	return updated, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	var imageURL *string
	if err := s.uow.WithTx(ctx, func(tx repository.Tx) error {
		product, err := tx.Products().GetProductForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("product repository get product for update: %w", err)
		}
		imageURL = product.ImageURL

		if err := tx.Products().DeleteProduct(ctx, id); err != nil {
			return fmt.Errorf("product repository delete product: %w", err)
		}
		return nil
	}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("uow with tx: %w", mapRepoErr(err))
	}

	if imageURL != nil {
		s.deleteImage(ctx, id, *imageURL)
	}

	return nil
}

func (s *productService) UploadImage(ctx context.Context, params UploadImageParams) (model.Product, error) {
	key, err := imagestore.ProductKey(params.ProductID, params.Filename, params.ContentType)
	if err != nil {
		return model.Product{}, apperr.ImageInvalidErr.WithMsg("%s", err.Error()).WrapParent(err)
	}

	if _, err := s.productRepo.GetProduct(ctx, params.ProductID); err != nil {
		return model.Product{}, fmt.Errorf("product repository get product: %w", mapRepoErr(err))
	}

	url, err := s.images.Store(ctx, key, params.Body)
	if err != nil {
		if errors.Is(err, imagestore.ErrTooLarge) {
			return model.Product{}, apperr.ImageInvalidErr.WithMsg("%s", err.Error()).WrapParent(err)
		}
		return model.Product{}, fmt.Errorf("image store store: %w", err)
	}

	var (
		updated  model.Product
		previous *string
	)
	if err := s.uow.WithTx(ctx, func(tx repository.Tx) error {
		product, err := tx.Products().GetProductForUpdate(ctx, params.ProductID)
		if err != nil {
			return fmt.Errorf("product repository get product for update: %w", err)
		}

		previous = product.ImageURL
		product.ImageURL = &url
		product.UpdatedAt = s.now()
		if err := tx.Products().UpdateProduct(ctx, product); err != nil {
			return fmt.Errorf("product repository update product: %w", err)
		}

		updated = product
		return nil
	}); err != nil {
		return model.Product{}, fmt.Errorf("uow with tx: %w", mapRepoErr(err))
	}

	if previous != nil && *previous != url {
		s.deleteImage(ctx, params.ProductID, *previous)
	}

	return updated, nil
}

// deleteImage never fails the caller; a leftover file is only logged.
func (s *productService) deleteImage(ctx context.Context, productID uuid.UUID, url string) {
	if err := s.images.Delete(ctx, url); err != nil {
		s.logger.WarnContext(ctx, "error deleting product image",
			slog.String("product_id", productID.String()),
			slog.String("image_url", url),
			slog.Any("error", err),
		)
	}
}

func ptrTrim(s *string) *string {
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}

func validatePrice(price decimal.Decimal) error {
	if err := model.ValidatePrice(price); err != nil {
		return apperr.ValidationErr.WithMsg("invalid price: %s", err.Error()).WrapParent(err)
	}
	return nil
}

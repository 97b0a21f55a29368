package apperr

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/event-pos/pkg/zerror"
)

const (
	ValidationErrorCode     = "VALIDATION_FAILED"
	ProductNotFoundCode     = "PRODUCT_NOT_FOUND"
	InsufficientStockCode   = "INSUFFICIENT_STOCK"
	TransactionConflictCode = "TRANSACTION_CONFLICT"
	StorageUnavailableCode  = "STORAGE_UNAVAILABLE"
	UnauthorizedCode        = "UNAUTHORIZED"
	AdminDisabledCode       = "ADMIN_DISABLED"
	ImageInvalidCode        = "IMAGE_INVALID"
)

var (
	ValidationErr          = zerror.NewValidationFailed(ValidationErrorCode, "validation error")
	ProductNotFoundErr     = zerror.NewNotFound(ProductNotFoundCode, "product not found")
	InsufficientStockErr   = zerror.NewUnprocessableEntity(InsufficientStockCode, "insufficient stock")
	TransactionConflictErr = zerror.NewConflict(TransactionConflictCode, "the sale could not be committed, reload the stock and try again")
	StorageUnavailableErr  = zerror.NewServiceUnavailable(StorageUnavailableCode, "storage is unavailable")
	UnauthorizedErr        = zerror.NewUnauthorized(UnauthorizedCode, "invalid admin credentials")
	AdminDisabledErr       = zerror.NewForbidden(AdminDisabledCode, "admin operations are disabled")
	ImageInvalidErr        = zerror.NewBadRequest(ImageInvalidCode, "invalid image")
)

// InsufficientStockError is returned when a sale asks for more units of a
// size than the product holds. Available is the stock seen by the transaction.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Size      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s size %s: requested %d, available %d",
		e.ProductID, e.Size, e.Requested, e.Available)
}

// Unwrap exposes the INSUFFICIENT_STOCK ZError so transport layers can map it.
func (e *InsufficientStockError) Unwrap() error {
	return InsufficientStockErr.WithMsg("insufficient stock for size %s, available: %d", e.Size, e.Available)
}

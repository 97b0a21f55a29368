package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/tuanvumaihuynh/event-pos/internal/apperr"
	"github.com/tuanvumaihuynh/event-pos/pkg/zerror"
)

func TestInsufficientStockError(t *testing.T) {
	err := fmt.Errorf("record sale: %w", &apperr.InsufficientStockError{
		ProductID: uuid.New(),
		Size:      "M",
		Requested: 3,
		Available: 1,
	})

	var stockErr *apperr.InsufficientStockError
	assert.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 1, stockErr.Available)

	assert.ErrorIs(t, err, apperr.InsufficientStockErr)

	var zErr zerror.ZError
	assert.True(t, errors.As(err, &zErr))
	assert.Equal(t, zerror.StatusUnprocessableEntity, zErr.Status())
	assert.Equal(t, "insufficient stock for size M, available: 1", zErr.Msg())
}

package service

import (
	"errors"

	"github.com/tuanvumaihuynh/event-pos/internal/apperr"
	"github.com/tuanvumaihuynh/event-pos/internal/repository"
)

// mapRepoErr translates repository sentinels into application errors.
// Anything else is returned untouched.
func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.ProductNotFoundErr.WrapParent(err)
	case errors.Is(err, repository.ErrInvalid):
		return apperr.ValidationErr.WithMsg("%s", err.Error()).WrapParent(err)
	case errors.Is(err, repository.ErrTxConflict):
		return apperr.TransactionConflictErr.WrapParent(err)
	case errors.Is(err, repository.ErrUnavailable):
		return apperr.StorageUnavailableErr.WrapParent(err)
	default:
		return err
	}
}

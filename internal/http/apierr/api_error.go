package apierr

import (
	"errors"
	"fmt"
	"net/http"

	govalidator "github.com/go-playground/validator/v10"

	"github.com/tuanvumaihuynh/event-pos/internal/apperr"
	"github.com/tuanvumaihuynh/event-pos/pkg/validator"
	"github.com/tuanvumaihuynh/event-pos/pkg/zerror"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the error response for the API.
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details *[]FieldError `json:"details,omitempty"`

	// Size and Available are set for INSUFFICIENT_STOCK.
	Size      *string `json:"size,omitempty"`
	Available *int    `json:"available,omitempty"`

	// StatusCode is the status code for the error response.
	StatusCode int  `json:"-"`
	// Retryable marks failures the client may repeat unchanged.
	Retryable  bool `json:"-"`
}

func New(err error) ErrorResponse {
	return errorToErrorResponse(err)
}

var InternalServerErr = ErrorResponse{
	Code:       "internalServerError",
	Message:    "an unknown error occurred",
	StatusCode: http.StatusInternalServerError,
}

// ParamError reports a path, query or body value that could not be decoded.
type ParamError struct {
	Param string
	Err   error
}

func NewParamError(param string, err error) *ParamError {
	return &ParamError{Param: param, Err: err}
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Param, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

func errorToErrorResponse(err error) ErrorResponse {
	details := fieldErrors(err)

	if zErr, ok := zerror.From(err); ok {
		res := ErrorResponse{
			Code:       zErr.Code(),
			Message:    zErr.Msg(),
			Details:    details,
			StatusCode: ZErrorStatusToHTTPStatus(zErr.Status()),
			Retryable:  zErr.Temporary(),
		}

		var stockErr *apperr.InsufficientStockError
		if errors.As(err, &stockErr) {
			size, available := stockErr.Size, stockErr.Available
			res.Size = &size
			res.Available = &available
		}
		return res
	}

	if details != nil {
		return ErrorResponse{
			Code:       "validationError",
			Message:    "validation error",
			Details:    details,
			StatusCode: http.StatusBadRequest,
		}
	}

	var paramErr *ParamError
	if errors.As(err, &paramErr) {
		return ErrorResponse{
			Code:       "validationError",
			Message:    paramErr.Error(),
			StatusCode: http.StatusBadRequest,
		}
	}

	return InternalServerErr
}

func fieldErrors(err error) *[]FieldError {
	var validationErrs govalidator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	details := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		details[i] = FieldError{
			Field:   fe.Field(),
			Message: validator.ValidationErrorMessage(fe),
		}
	}
	return &details
}

func ZErrorStatusToHTTPStatus(status zerror.Status) int {
	switch status {
	case zerror.StatusUnauthorized:
		return http.StatusUnauthorized
	case zerror.StatusForbidden:
		return http.StatusForbidden
	case zerror.StatusNotFound:
		return http.StatusNotFound
	case zerror.StatusUnprocessableEntity:
		return http.StatusUnprocessableEntity
	case zerror.StatusConflict:
		return http.StatusConflict
	case zerror.StatusTooManyRequests:
		return http.StatusTooManyRequests
	case zerror.StatusBadRequest:
		return http.StatusBadRequest
	case zerror.StatusValidationFailed:
		return http.StatusBadRequest
	case zerror.StatusUnknown, zerror.StatusInternalServerError:
		return http.StatusInternalServerError
	case zerror.StatusTimeout:
		return http.StatusGatewayTimeout
	case zerror.StatusNotImplemented:
		return http.StatusNotImplemented
	case zerror.StatusBadGateway:
		return http.StatusBadGateway
	case zerror.StatusServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

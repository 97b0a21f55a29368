package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const maxSizeLabelLen = 32

// Validator is a validator that validates the given struct.
type Validator interface {
	// Validate validates the given struct
	Validate(s any) error
}

type DefaultValidator struct {
	v *validator.Validate
}

// NewDefaultValidator creates a new default validator.
// It returns a new DefaultValidator and an error if the validator registration fails.
func NewDefaultValidator() (*DefaultValidator, error) {
	v := validator.New()

	// decimal.Decimal is validated as a float64 so numeric tags (gte, lte) apply to it.
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	// Register custom validators
	if err := v.RegisterValidation("sizelabel", validateSizeLabel); err != nil {
		return nil, fmt.Errorf("register sizelabel validator: %w", err)
	}

	if err := v.RegisterValidation("enum", validateEnum); err != nil {
		return nil, fmt.Errorf("register enum validator: %w", err)
	}

	return &DefaultValidator{v: v}, nil
}

// MustNewDefaultValidator is NewDefaultValidator for package-level initialization.
func MustNewDefaultValidator() *DefaultValidator {
	v, err := NewDefaultValidator()
	if err != nil {
		panic(err)
	}
	return v
}

func (v DefaultValidator) Validate(s any) error {
	return v.v.Struct(s)
}

// IsValidationError checks if the given error is a validation error
func IsValidationError(err error) bool {
	var validationErrs validator.ValidationErrors
	return errors.As(err, &validationErrs)
}

func ValidationErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters long", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "sizelabel":
		return fmt.Sprintf("must be a non-blank size label of at most %d characters", maxSizeLabelLen)
	case "enum":
		return fmt.Sprintf("invalid enum value: %v", fe.Value())
	default:
		return "is invalid"
	}
}

func decimalValue(field reflect.Value) any {
	d, ok := field.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	f, _ := d.Float64()
	return f
}

// validateSizeLabel accepts open-ended labels such as "P", "GG" or "G1"
// but rejects blank labels, surrounding whitespace and control characters.
func validateSizeLabel(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || utf8.RuneCountInString(s) > maxSizeLabelLen {
		return false
	}
	if strings.TrimSpace(s) != s {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

func validateEnum(fl validator.FieldLevel) bool {
	type Enum interface {
		Validate() error
	}

	value, ok := fl.Field().Interface().(Enum)
	if !ok {
		return false
	}

	return value.Validate() == nil
}

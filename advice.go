package agentpay

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)
	validate        = newValidator()
)

// PaymentAdvice carries the proposed payment terms submitted by an agent.
// It is immutable once handed to the handshake.
type PaymentAdvice struct {
	// Amount to charge, in the major unit of Currency. Must be positive.
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
	// Currency is a 3-letter code.
	Currency string `json:"currency" validate:"required,currency"`
	// Description is free-form text shown alongside the payment.
	Description string `json:"description,omitempty"`
	// Metadata holds arbitrary key/value pairs supplied by the agent.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate runs go-playground/validator rules plus custom constraints and
// returns an [InvalidAdvice] error naming the offending field.
func (a PaymentAdvice) Validate() error {
	if err := validate.Struct(a); err != nil {
		return normalizeValidationError(err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	// Decimal amounts are validated through their float value so numeric
	// tags like gt apply.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	if err := v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return currencyPattern.MatchString(value)
	}); err != nil {
		panic(err)
	}

	return v
}

func normalizeValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return NewInvalidAdviceError(err.Error(), WithCause(err))
	}
	first := validationErrs[0]
	fieldPath := jsonPath(first)
	message := validationMessage(first)
	return NewInvalidAdviceError(fmt.Sprintf("%s %s", fieldPath, message), WithOffendingParam(fieldPath))
}

func jsonPath(fe validator.FieldError) string {
	path := fe.Namespace()
	if idx := strings.Index(path, "."); idx >= 0 {
		path = path[idx+1:]
	}
	if path == "" {
		return fe.Field()
	}
	return path
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "currency":
		return "must be a 3-letter currency code"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

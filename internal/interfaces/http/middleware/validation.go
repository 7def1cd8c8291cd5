package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/backoffice/installments/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// maxMoneyDigits bounds the integer digits of a money field, matching DECIMAL(18,2)
const maxMoneyDigits = 16

// SetupValidator configures the gin validator: JSON field names in errors,
// decimal.Decimal validated through its string form and the "money" tag.
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterValidations(v)
	}
}

// RegisterValidations installs the custom tags on v
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("money", validateMoney)
}

// validateMoney accepts amounts with at most two decimal places.
// Sign is left to the domain, which reports NEGATIVE_AMOUNT with context.
func validateMoney(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return false
	}
	return len(d.Abs().Truncate(0).String()) <= maxMoneyDigits
}

// FormatValidationErrors lists every failed field of err in a validation
// error response. Errors that are not field errors produce an empty list.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var fieldErrs validator.ValidationErrors
	errors.As(err, &fieldErrs)

	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: fieldPath(fe), Message: validationMessage(fe)})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError answers 400 with the failed fields of err
func HandleValidationError(c *gin.Context, err error) {
	SetErrorCode(c, dto.ErrCodeValidation)
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

// fieldPath drops the root struct name, "RegisterPaymentRequest.amounts.cash" -> "amounts.cash"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// tagMessages maps a validation tag to its message; %s is the tag parameter.
// Length tags on strings read as character counts.
var tagMessages = map[string]string{
	"required": "This field is required",
	"money":    "Must be an amount with at most 2 decimal places",
	"datetime": "Must be a date in %s format",
	"uuid":     "Invalid UUID format",
	"oneof":    "Must be one of: %s",
	"len":      "Must be exactly %s characters",
	"min":      "Must be at least %s",
	"max":      "Must be at most %s",
	"gte":      "Must be greater than or equal to %s",
	"lte":      "Must be less than or equal to %s",
	"gt":       "Must be greater than %s",
	"lt":       "Must be less than %s",
}

func validationMessage(fe validator.FieldError) string {
	tmpl, ok := tagMessages[fe.Tag()]
	if !ok {
		return "Invalid value"
	}
	if (fe.Tag() == "min" || fe.Tag() == "max") && fe.Kind() == reflect.String {
		tmpl += " characters"
	}
	if !strings.Contains(tmpl, "%s") {
		return tmpl
	}
	return fmt.Sprintf(tmpl, fe.Param())
}

package catalog

import (
	"github.com/go-playground/validator/v10"

	"github.com/m3rciful/shopbot/internal/apperr"
)

var validate = validator.New()

// Validate checks p against its struct rules and reports a validation error naming the first bad field.
func (p NewProduct) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		return &apperr.Error{Kind: apperr.KindValidation, Reason: "invalid_" + fieldErrs[0].Field(), Err: err}
	}
	return &apperr.Error{Kind: apperr.KindValidation, Reason: "invalid_product", Err: err}
}

package errutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromValidation turns validator errors into a ValidationFailed error with one
// detail per failing field. Other errors become a BadRequest.
func FromValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return BadRequest("invalid request body", err)
	}

	details := make([]Detail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, Detail{
			Field:   fe.Field(),
			Message: describe(fe),
		})
	}

	return ValidationFailed("validation failed", nil, WithDetails(details...))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "len":
		return fmt.Sprintf("must have length %s", fe.Param())
	default:
		return strings.TrimSpace(fmt.Sprintf("failed on %s %s", fe.Tag(), fe.Param()))
	}
}

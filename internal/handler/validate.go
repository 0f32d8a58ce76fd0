package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/challenge-tracker/internal/apperror"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so messages match what the client sent.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// fieldMessages maps "field.tag" (or just "field") to the message shown
// when that rule fails.
type fieldMessages map[string]string

// validateRequest checks req's `validate` tags and turns the first failure
// into an apperror.ValidationFailed.
func validateRequest(req any, messages fieldMessages) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) || len(vErrs) == 0 {
		return fmt.Errorf("handler: validating request: %w", err)
	}

	first := vErrs[0]
	msg, ok := messages[first.Field()+"."+first.Tag()]
	if !ok {
		msg, ok = messages[first.Field()]
	}
	if !ok {
		msg = fmt.Sprintf("%s 값이 올바르지 않습니다.", first.Field())
	}
	return apperror.ValidationFailed(first.Field(), msg)
}

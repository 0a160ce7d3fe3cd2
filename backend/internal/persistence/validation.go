package persistence

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	apperrors "linklander/backend/pkg/errors"
)

// inputValidator wraps go-playground/validator and converts its failures into ValidationError
type inputValidator struct {
	v *validator.Validate
}

func newInputValidator() *inputValidator {
	v := validator.New()

	// notblank rejects whitespace-only strings, which "required" lets through
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	// Report fields by their stored property key
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name, _, _ := strings.Cut(fld.Tag.Get("prop"), ","); name != "" {
			return name
		}
		return fld.Name
	})

	return &inputValidator{v: v}
}

// Validate checks s and returns the first failing field as a ValidationError
func (iv *inputValidator) Validate(s any) error {
	err := iv.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.NewValidation("input", err.Error())
	}
	first := fieldErrs[0]
	return apperrors.NewValidation(first.Field(), friendlyMessage(first))
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "notblank", "required":
		return "must not be blank"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	default:
		return "is invalid"
	}
}

// Validated inputs, one per mutation shape

type linkInput struct {
	Name string `prop:"name" validate:"notblank"`
	URL  string `prop:"url" validate:"notblank"`
}

type tagInput struct {
	Name        string `prop:"name" validate:"notblank"`
	Description string `prop:"description" validate:"notblank,max=255"`
}

type tagDescriptionInput struct {
	Description string `prop:"description" validate:"notblank,max=255"`
}

type lookupInput struct {
	Value string `prop:"value" validate:"notblank"`
}

type updateInput struct {
	Match    string `prop:"match" validate:"notblank"`
	NewValue string `prop:"value" validate:"notblank"`
}

// Package validation checks submitted forms before they reach the stores.
package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", NotBlank); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("maxbytes", MaxBytes); err != nil {
		panic(err)
	}
	return v
}

// NotBlank rejects strings that are empty after trimming whitespace.
func NotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// MaxBytes limits the encoded length of a string, unlike max which counts
// runes. bcrypt refuses passwords longer than 72 bytes.
func MaxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

type Credentials struct {
	Username string `validate:"notblank,max=100"`
	Password string `validate:"required,maxbytes=72"`
}

type Upload struct {
	DisplayName string `validate:"notblank,max=200"`
	Category    string `validate:"notblank,max=100"`
	Filename    string `validate:"notblank,max=200"`
}

// Struct validates s and flattens the first failure into a message fit for a
// flash.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return errors.New(describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	field := humanize(fe.Field())
	switch fe.Tag() {
	case "notblank", "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func humanize(field string) string {
	switch field {
	case "DisplayName":
		return "Display name"
	case "Filename":
		return "File"
	default:
		return field
	}
}

package models

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nikhileshnr/mess-rebate-system/internal/apperrors"
)

var gatePassRegex = regexp.MustCompile(`^[A-Z]-[0-9]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("gatepass", func(fl validator.FieldLevel) bool {
		return gatePassRegex.MatchString(fl.Field().String())
	})
	return v
}

// Validator returns the shared validator with the project's custom tags
// registered.
func Validator() *validator.Validate {
	return validate
}

// ValidateStruct runs struct tag validation and reports the first failing
// field as a validation error.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.Validation(
			fe.Field(),
			apperrors.CodeInvalidRequest,
			fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag()),
		)
	}
	return apperrors.Validation("", apperrors.CodeInvalidRequest, err.Error())
}

// ValidGatePass reports whether s looks like "A-123" and fits in ten characters.
func ValidGatePass(s string) bool {
	return validate.Var(s, "max=10,gatepass") == nil
}

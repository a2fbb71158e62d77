// Package validation configures the request validator shared by services.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var personNamePattern = regexp.MustCompile(`^[\p{L} '\-]+$`)

// New returns a validator with the wellbeing tags registered and JSON field names reported.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("personname", personName)
	_ = v.RegisterValidation("strongpassword", strongPassword)
	_ = v.RegisterValidation("maxbytes", maxBytes)
	return v
}

func personName(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	n := utf8.RuneCountInString(value)
	if n < 2 || n > 50 {
		return false
	}
	return personNamePattern.MatchString(value)
}

// maxBytes bounds the encoded length, which is what bcrypt limits.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func strongPassword(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if utf8.RuneCountInString(value) < 8 {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range value {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return lower && upper && digit && special
}

// Details flattens validator errors into a field → message map. Errors of any
// other type produce nil.
func Details(err error) map[string]string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		if _, exists := out[fe.Field()]; exists {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "personname":
		return "must be 2-50 characters of letters, spaces, hyphens or apostrophes"
	case "strongpassword":
		return "must be at least 8 characters with upper and lower case letters, a digit and a special character"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes", fe.Param())
	default:
		return "is invalid"
	}
}

package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	v *validator.Validate
}

var (
	phoneRegex = regexp.MustCompile(`^\+?[0-9 .()-]{7,20}$`)
	slugRegex  = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

func New() *Validator {
	v := validator.New()

	// Report fields under their JSON names so error details match the payload.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	v.RegisterValidation("date", stringRule(func(value string) bool {
		_, err := time.Parse("2006-01-02", value)
		return err == nil
	}))

	v.RegisterValidation("clock", stringRule(func(value string) bool {
		_, err := time.Parse("15:04", value)
		return err == nil
	}))

	v.RegisterValidation("rfc3339", stringRule(func(value string) bool {
		_, err := time.Parse(time.RFC3339, value)
		return err == nil
	}))

	v.RegisterValidation("phone", stringRule(phoneRegex.MatchString))
	v.RegisterValidation("slug", stringRule(slugRegex.MatchString))

	return &Validator{v: v}
}

func stringRule(fn func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return fn(value)
	}
}

func (v *Validator) Struct(s interface{}) error {
	return v.v.Struct(s)
}

func (v *Validator) ValidationErrors(err error) validator.ValidationErrors {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

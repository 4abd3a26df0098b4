package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Role validation
	validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		role := fl.Field().String()
		for _, r := range []string{"member", "admin"} {
			if role == r {
				return true
			}
		}
		return false
	})

	// Catalog sort key validation
	validate.RegisterValidation("catalog_sort", func(fl validator.FieldLevel) bool {
		sort := fl.Field().String()
		for _, s := range []string{"newest", "price", "popular", ""} {
			if sort == s {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email address"
		case "min":
			errors[field] = "Value is too short"
		case "max":
			errors[field] = "Value is too long"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

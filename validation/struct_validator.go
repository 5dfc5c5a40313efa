package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/kbukum/pipedata/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Placeholder matches the {i} and {i:0Nd} file index placeholders of a
// rotating output path. The first submatch is the padding width N.
var Placeholder = regexp.MustCompile(`\{i(?::0(\d+)d)?\}`)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Config structs are addressed by their mapstructure keys
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"mapstructure", "json"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return toSnakeCase(fld.Name)
		})

		_ = validate.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
			return IsCronSpec(fl.Field().String())
		})
		_ = validate.RegisterValidation("rotation", func(fl validator.FieldLevel) bool {
			return HasPlaceholder(fl.Field().String())
		})
	})
	return validate
}

// IsCronSpec reports whether spec is a five-field cron expression or a
// descriptor such as "@hourly".
func IsCronSpec(spec string) bool {
	if spec == "" {
		return false
	}
	_, err := cronParser.Parse(spec)
	return err == nil
}

// HasPlaceholder reports whether a path template contains a file index
// placeholder.
func HasPlaceholder(template string) bool {
	return Placeholder.MatchString(template)
}

// Validate validates a struct using struct tags such as
// `validate:"required,oneof=csv json"`. Field names in the message are the
// mapstructure keys, so they match what users write in config files.
func Validate(s any) error {
	v := getValidator()
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed").WithCause(err)
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))

	for _, e := range validationErrors {
		fieldName := fieldPath(e.Namespace())
		message := formatValidationError(e)
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fieldName,
			Message: message,
		})
		messages = append(messages, fieldName+": "+message)
	}

	return errors.Validation(strings.Join(messages, "; ")).
		WithDetail("fields", fieldErrors)
}

// fieldPath drops the root struct name: "Config.output.path" -> "output.path".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + toSnakeCase(e.Param()) + " is not set"
	case "min", "gte":
		if e.Kind() == reflect.String || e.Kind() == reflect.Slice {
			return "must have at least " + e.Param() + " elements"
		}
		return "must be at least " + e.Param()
	case "max", "lte":
		if e.Kind() == reflect.String || e.Kind() == reflect.Slice {
			return "must have at most " + e.Param() + " elements"
		}
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "uuid":
		return "must be a valid UUID"
	case "cron":
		return "must be a valid cron expression"
	case "rotation":
		return "must contain an {i} or {i:0Nd} placeholder"
	default:
		return "is invalid"
	}
}

// toSnakeCase converts a field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32) // lowercase
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

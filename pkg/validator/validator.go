package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the calendar date format accepted by the "isodate" rule.
const DateLayout = "2006-01-02"

var (
	once     sync.Once
	validate *validator.Validate

	slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// ValidationError is one failed rule. Field uses the json tag name.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// Message renders the failure for API clients, without the field name.
func (e ValidationError) Message() string {
	switch e.Tag {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + e.Param + " characters"
	case "min":
		return "must be at least " + e.Param + " characters"
	case "gte":
		return "must be at least " + e.Param
	case "lte":
		return "must be at most " + e.Param
	case "url":
		return "must be a valid URL"
	case "isodate":
		return "must be a date in YYYY-MM-DD format"
	case "slug":
		return "must contain lowercase letters, digits and single dashes"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(e.Param, " ", ", ")
	default:
		return "is invalid"
	}
}

// ValidationErrors collects every failure of one struct.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, failure := range v {
		parts[i] = failure.Field + " " + failure.Message()
	}
	return strings.Join(parts, "; ")
}

// Fields maps prefix+field to its message. The first failure of a field wins.
func (v ValidationErrors) Fields(prefix string) map[string]string {
	fields := make(map[string]string, len(v))
	for _, failure := range v {
		key := prefix + failure.Field
		if _, exists := fields[key]; !exists {
			fields[key] = failure.Message()
		}
	}
	return fields
}

// ValidateStruct runs the struct's validate tags. Rule failures are returned
// as ValidationErrors; anything else (a non-struct argument) as is.
func ValidateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	failures := make(ValidationErrors, 0, len(ve))
	for _, fe := range ve {
		failures = append(failures, ValidationError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}
	return failures
}

// RegisterValidation adds a custom rule to the shared validator.
func RegisterValidation(tag string, fn validator.Func) error {
	return getValidator().RegisterValidation(tag, fn)
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
		_ = validate.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(DateLayout, fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

package validation

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"wiki-quiz/internal/domain"

	"github.com/go-playground/validator/v10"
)

// WikipediaURLPrefix is the only accepted article URL form.
const WikipediaURLPrefix = "https://en.wikipedia.org/wiki/"

// Validator provides request validation functionality
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the "wikiurl" rule registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("wikiurl", isWikipediaArticleURL); err != nil {
		panic(err)
	}
	return &Validator{validate: v}
}

// ValidateStruct runs the struct's validate tags.
func (v *Validator) ValidateStruct(s interface{}) domain.ValidationErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.ValidationErrors{{Message: err.Error()}}
	}

	result := make(domain.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			result = append(result, domain.NewMissingFieldError(fe.Field()))
		case "wikiurl":
			result = append(result, domain.ValidationError{
				Field:   fe.Field(),
				Message: "must be an English Wikipedia article URL starting with " + WikipediaURLPrefix,
				Value:   fe.Value(),
			})
		default:
			result = append(result, domain.NewInvalidFormatError(fe.Field(), fe.Value()))
		}
	}
	return result
}

// ParseQuizID validates a path id: a positive integer.
func (v *Validator) ParseQuizID(raw string) (int64, domain.ValidationErrors) {
	if strings.TrimSpace(raw) == "" {
		return 0, domain.ValidationErrors{domain.NewMissingFieldError("id")}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ValidationErrors{domain.NewInvalidFormatError("id", raw)}
	}
	return id, nil
}

func isWikipediaArticleURL(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return strings.HasPrefix(s, WikipediaURLPrefix) && len(s) > len(WikipediaURLPrefix)
}

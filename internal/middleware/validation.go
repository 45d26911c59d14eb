package middleware

import (
	"wiki-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	// ValidatedQuizIDKey holds the parsed :id path parameter.
	ValidatedQuizIDKey = "validated_quiz_id"
	// ValidatedGenerateRequestKey holds the parsed generate request body.
	ValidatedGenerateRequestKey = "validated_generate_request"
)

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware(v *validation.Validator) *ValidationMiddleware {
	return &ValidationMiddleware{validator: v}
}

// ValidateQuizID parses the :id path parameter.
func (vm *ValidationMiddleware) ValidateQuizID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, errs := vm.validator.ParseQuizID(c.Params("id"))
		if len(errs) > 0 {
			return errs
		}
		c.Locals(ValidatedQuizIDKey, id)
		return c.Next()
	}
}

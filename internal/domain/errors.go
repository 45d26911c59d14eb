package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeNotFound     ErrorCode = "NOT_FOUND"

	// Article retrieval
	CodeContentUnavailable ErrorCode = "CONTENT_UNAVAILABLE"
	CodeUpstreamFetch      ErrorCode = "UPSTREAM_FETCH_FAILED"

	// Quiz generation
	CodeGenerationFailed ErrorCode = "GENERATION_FAILED"
	CodeParseFailed      ErrorCode = "PARSE_FAILED"
	CodeQuizNotFound     ErrorCode = "QUIZ_NOT_FOUND"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, &DomainError{Code: CodeParseFailed}) works through wrapping.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// WithContext attaches a diagnostic key/value and returns the same error.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// HasCode reports whether err is, or wraps, a DomainError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var de *DomainError
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewInternalError(message string, err error) *DomainError {
	return NewError(CodeInternal, message, err)
}

func NewContentUnavailableError(url string) *DomainError {
	return NewError(CodeContentUnavailable, fmt.Sprintf("No readable article text found at %s", url), nil).
		WithContext("url", url)
}

func NewUpstreamFetchError(url string, err error) *DomainError {
	return NewError(CodeUpstreamFetch, "Failed to fetch article content", err).
		WithContext("url", url)
}

// NewGenerationFailedError carries the last model error and every identifier tried.
func NewGenerationFailedError(lastErr error, modelsTried []string) *DomainError {
	return NewError(CodeGenerationFailed, "Quiz generation failed", lastErr).
		WithContext("models_tried", modelsTried)
}

// NewParseFailedError carries the validation error and the raw model text.
func NewParseFailedError(err error, rawOutput string) *DomainError {
	return NewError(CodeParseFailed, "Failed to parse model response as a quiz", err).
		WithContext("raw_output", rawOutput)
}

func NewQuizNotFoundError(quizID int64) *DomainError {
	return NewError(CodeQuizNotFound, fmt.Sprintf("Quiz not found with ID: %d", quizID), nil)
}

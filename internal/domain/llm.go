package domain

import (
	"context"
	"fmt"
)

// LLMErrorKind classifies a model invocation failure. The provider adapter
// decides the kind once, where the native error is received.
type LLMErrorKind int

const (
	LLMErrorOther LLMErrorKind = iota
	LLMErrorModelNotFound
	LLMErrorAuth
	LLMErrorRateLimited
)

func (k LLMErrorKind) String() string {
	switch k {
	case LLMErrorModelNotFound:
		return "model_not_found"
	case LLMErrorAuth:
		return "auth"
	case LLMErrorRateLimited:
		return "rate_limited"
	default:
		return "other"
	}
}

// LLMError is a classified model failure.
type LLMError struct {
	Kind  LLMErrorKind
	Model string
	Err   error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("model %q (%s): %v", e.Model, e.Kind, e.Err)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// ModelResponse is what a model invocation returns: the textual payload when
// the provider exposes one, and the provider's response object.
type ModelResponse struct {
	Model   string
	Content string
	Raw     interface{}
}

// Text returns Content, or a stringified Raw when Content is empty.
func (r *ModelResponse) Text() string {
	if r == nil {
		return ""
	}
	if r.Content != "" {
		return r.Content
	}
	if r.Raw == nil {
		return ""
	}
	return fmt.Sprintf("%v", r.Raw)
}

// ModelClient is a generative model bound to a single model identifier.
type ModelClient interface {
	Invoke(ctx context.Context, prompt string) (*ModelResponse, error)
}

// ModelClientFactory builds a client for a model identifier. Errors returned
// by the factory or the client are *LLMError.
type ModelClientFactory interface {
	NewClient(ctx context.Context, model string) (ModelClient, error)
}

// ModelPreference holds the identifier of the last model that answered.
type ModelPreference interface {
	// Preferred returns "" when nothing has been remembered yet.
	Preferred(ctx context.Context) (string, error)
	Remember(ctx context.Context, model string) error
}

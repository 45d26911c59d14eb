package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"wiki-quiz/internal/domain"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Classify wraps a provider error in a *domain.LLMError. It is the only place
// where provider errors are inspected; callers branch on LLMError.Kind.
func Classify(model string, err error) error {
	if err == nil {
		return nil
	}
	var llmErr *domain.LLMError
	if errors.As(err, &llmErr) {
		return err
	}
	return &domain.LLMError{Kind: kindOf(err), Model: model, Err: err}
}

func kindOf(err error) domain.LLMErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.LLMErrorOther
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if kind, ok := kindForHTTPStatus(apiErr.Code); ok {
			return kind
		}
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.NotFound:
			return domain.LLMErrorModelNotFound
		case codes.Unauthenticated, codes.PermissionDenied:
			return domain.LLMErrorAuth
		case codes.ResourceExhausted:
			return domain.LLMErrorRateLimited
		}
	}

	return kindForMessage(err.Error())
}

func kindForHTTPStatus(code int) (domain.LLMErrorKind, bool) {
	switch code {
	case http.StatusNotFound:
		return domain.LLMErrorModelNotFound, true
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.LLMErrorAuth, true
	case http.StatusTooManyRequests:
		return domain.LLMErrorRateLimited, true
	}
	return domain.LLMErrorOther, false
}

// kindForMessage is the last resort for providers that only report a status
// code inside the error text (openai, ollama).
func kindForMessage(msg string) domain.LLMErrorKind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "404"), strings.Contains(lower, "not found"):
		return domain.LLMErrorModelNotFound
	case strings.Contains(lower, "401"), strings.Contains(lower, "403"),
		strings.Contains(lower, "unauthenticated"), strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "api key not valid"), strings.Contains(lower, "invalid api key"):
		return domain.LLMErrorAuth
	case strings.Contains(lower, "429"), strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "resource exhausted"), strings.Contains(lower, "quota"):
		return domain.LLMErrorRateLimited
	}
	return domain.LLMErrorOther
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"wiki-quiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.LLMErrorKind
	}{
		{"grpc not found", status.Error(codes.NotFound, "models/gemini-pro is not found for API version v1beta"), domain.LLMErrorModelNotFound},
		{"wrapped grpc permission denied", fmt.Errorf("generate: %w", status.Error(codes.PermissionDenied, "denied")), domain.LLMErrorAuth},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "no credentials"), domain.LLMErrorAuth},
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, "quota"), domain.LLMErrorRateLimited},
		{"grpc internal", status.Error(codes.Internal, "boom"), domain.LLMErrorOther},
		{"googleapi 404", &googleapi.Error{Code: 404, Message: "model missing"}, domain.LLMErrorModelNotFound},
		{"googleapi 403", &googleapi.Error{Code: 403, Message: "forbidden"}, domain.LLMErrorAuth},
		{"googleapi 429", &googleapi.Error{Code: 429}, domain.LLMErrorRateLimited},
		{"googleapi 500", &googleapi.Error{Code: 500, Message: "backend"}, domain.LLMErrorOther},
		{"ollama message", errors.New("model 'llama9' not found, try pulling it first"), domain.LLMErrorModelNotFound},
		{"openai status text 401", errors.New("API returned unexpected status code: 401: Incorrect API key provided"), domain.LLMErrorAuth},
		{"openai status text 429", errors.New("API returned unexpected status code: 429: Rate limit reached"), domain.LLMErrorRateLimited},
		{"invalid key text", errors.New("API key not valid. Please pass a valid API key."), domain.LLMErrorAuth},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), domain.LLMErrorOther},
		{"plain", errors.New("connection reset by peer"), domain.LLMErrorOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("gemini-pro", tt.err)

			var llmErr *domain.LLMError
			require.True(t, errors.As(err, &llmErr))
			assert.Equal(t, tt.want, llmErr.Kind)
			assert.Equal(t, "gemini-pro", llmErr.Model)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassify_KeepsExistingClassification(t *testing.T) {
	original := &domain.LLMError{Kind: domain.LLMErrorAuth, Model: "a", Err: errors.New("x")}
	wrapped := fmt.Errorf("outer: %w", original)

	assert.Same(t, wrapped, Classify("b", wrapped))
	assert.NoError(t, Classify("b", nil))
}

package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"wiki-quiz/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
)

// Config selects the provider backing every model client.
type Config struct {
	Provider    string
	APIKey      string
	ServerURL   string
	Temperature float64
}

// Factory implements domain.ModelClientFactory on top of langchaingo.
type Factory struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFactory checks the provider settings. It does not contact the provider.
func NewFactory(cfg Config, logger *zap.Logger) (*Factory, error) {
	switch cfg.Provider {
	case ProviderGoogleAI, ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm provider %q requires an API key", cfg.Provider)
		}
	case ProviderOllama:
		if cfg.ServerURL == "" {
			return nil, fmt.Errorf("llm provider %q requires a server URL", cfg.Provider)
		}
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}

	return &Factory{
		cfg: cfg,
		// Per-invocation deadlines come from the caller's context.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     logger,
	}, nil
}

// NewClient builds a client bound to model.
func (f *Factory) NewClient(ctx context.Context, model string) (domain.ModelClient, error) {
	var (
		backend llms.Model
		err     error
	)
	switch f.cfg.Provider {
	case ProviderGoogleAI:
		backend, err = googleai.New(ctx,
			googleai.WithAPIKey(f.cfg.APIKey),
			googleai.WithDefaultModel(model),
		)
	case ProviderOpenAI:
		backend, err = openai.New(
			openai.WithToken(f.cfg.APIKey),
			openai.WithModel(model),
			openai.WithHTTPClient(f.httpClient),
		)
	case ProviderOllama:
		backend, err = ollama.New(
			ollama.WithServerURL(f.cfg.ServerURL),
			ollama.WithModel(model),
			ollama.WithHTTPClient(f.httpClient),
		)
	}
	if err != nil {
		return nil, Classify(model, fmt.Errorf("creating %s client: %w", f.cfg.Provider, err))
	}

	f.logger.Debug("Created model client", zap.String("provider", f.cfg.Provider), zap.String("model", model))
	return newClient(model, backend, f.cfg.Temperature), nil
}

type client struct {
	model       string
	backend     llms.Model
	temperature float64
}

func newClient(model string, backend llms.Model, temperature float64) *client {
	return &client{model: model, backend: backend, temperature: temperature}
}

// Invoke sends prompt as a single human message.
func (c *client) Invoke(ctx context.Context, prompt string) (*domain.ModelResponse, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	resp, err := c.backend.GenerateContent(ctx, messages, llms.WithTemperature(c.temperature))
	if err != nil {
		return nil, Classify(c.model, err)
	}

	var content string
	if resp != nil && len(resp.Choices) > 0 && resp.Choices[0] != nil {
		content = resp.Choices[0].Content
	}
	return &domain.ModelResponse{Model: c.model, Content: content, Raw: resp}, nil
}

// Close releases provider connections where the backend holds any.
func (c *client) Close() error {
	if closer, ok := c.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

var _ domain.ModelClientFactory = (*Factory)(nil)

package quizgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/metrics"

	"go.uber.org/zap"
)

const promptTemplate = `
Read the following Wikipedia article content and generate a JSON quiz with 5-10 multiple-choice questions.
Include summary, key entities, and related topics. Use concise, factual answers.

Article Title: %s

Article Text:
%s

Return ONLY valid JSON that conforms to the format instructions below.
%s
`

// GeneratorConfig holds the model selection settings.
type GeneratorConfig struct {
	// Candidates are tried in order after the start model.
	Candidates []string
	// PreferredModel is the operator's start model, used until some model
	// has answered successfully.
	PreferredModel string
	// Timeout bounds each model invocation. Zero means no bound.
	Timeout time.Duration
}

// Generator implements domain.QuizGenerator with candidate-model fallback.
type Generator struct {
	cfg        GeneratorConfig
	factory    domain.ModelClientFactory
	parser     domain.ResponseParser
	preference domain.ModelPreference
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewGenerator creates a Generator. A nil preference keeps state in memory.
func NewGenerator(
	cfg GeneratorConfig,
	factory domain.ModelClientFactory,
	parser domain.ResponseParser,
	preference domain.ModelPreference,
	logger *zap.Logger,
	m *metrics.Metrics,
) (*Generator, error) {
	if len(cfg.Candidates) == 0 {
		return nil, errors.New("at least one model candidate is required")
	}
	if factory == nil || parser == nil {
		return nil, errors.New("model client factory and response parser are required")
	}
	if preference == nil {
		preference = NewMemoryModelPreference()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Generator{
		cfg:        cfg,
		factory:    factory,
		parser:     parser,
		preference: preference,
		logger:     logger,
		metrics:    m,
	}, nil
}

// BuildPrompt embeds the title, the article text and the parser's format
// instructions.
func (g *Generator) BuildPrompt(title, articleText string) string {
	return fmt.Sprintf(promptTemplate, title, articleText, g.parser.FormatInstructions())
}

// GenerateQuiz asks the models for a quiz and parses the first answer.
func (g *Generator) GenerateQuiz(ctx context.Context, title, articleText string) (*domain.QuizOutput, error) {
	prompt := g.BuildPrompt(title, articleText)

	resp, err := g.invoke(ctx, prompt)
	if err != nil {
		g.metrics.Generations.WithLabelValues("generation_failed").Inc()
		return nil, err
	}

	quiz, err := g.parser.Parse(resp)
	if err != nil {
		g.metrics.Generations.WithLabelValues("parse_failed").Inc()
		g.logger.Warn("Model output could not be parsed",
			zap.String("model", resp.Model),
			zap.Error(err),
		)
		return nil, err
	}

	g.metrics.Generations.WithLabelValues("ok").Inc()
	return quiz, nil
}

// ModelOrder returns the start model followed by every other candidate,
// each exactly once.
func (g *Generator) ModelOrder(ctx context.Context) []string {
	start, err := g.preference.Preferred(ctx)
	if err != nil {
		g.logger.Warn("Could not read preferred model", zap.Error(err))
		start = ""
	}
	if start == "" {
		start = g.cfg.PreferredModel
	}
	if start == "" {
		start = g.cfg.Candidates[0]
	}

	order := make([]string, 0, len(g.cfg.Candidates)+1)
	seen := make(map[string]struct{}, len(g.cfg.Candidates)+1)
	for _, model := range append([]string{start}, g.cfg.Candidates...) {
		if _, ok := seen[model]; ok {
			continue
		}
		seen[model] = struct{}{}
		order = append(order, model)
	}
	return order
}

// invoke walks the model order. Only ModelNotFound moves on to the next
// candidate; any other failure aborts.
func (g *Generator) invoke(ctx context.Context, prompt string) (*domain.ModelResponse, error) {
	var (
		tried   []string
		lastErr error
	)

	for _, model := range g.ModelOrder(ctx) {
		tried = append(tried, model)

		resp, err := g.tryModel(ctx, model, prompt)
		if err == nil {
			g.metrics.ModelAttempts.WithLabelValues(model, "ok").Inc()
			if err := g.preference.Remember(ctx, model); err != nil {
				g.logger.Warn("Could not remember working model", zap.String("model", model), zap.Error(err))
			}
			if len(tried) > 1 {
				g.logger.Info("Switched to fallback model", zap.String("model", model), zap.Strings("models_tried", tried))
			}
			return resp, nil
		}

		lastErr = err
		kind := domain.LLMErrorOther
		var llmErr *domain.LLMError
		if errors.As(err, &llmErr) {
			kind = llmErr.Kind
		}
		g.metrics.ModelAttempts.WithLabelValues(model, kind.String()).Inc()

		if kind != domain.LLMErrorModelNotFound {
			g.logger.Error("Model invocation failed",
				zap.String("model", model),
				zap.String("kind", kind.String()),
				zap.Error(err),
			)
			return nil, domain.NewGenerationFailedError(err, tried)
		}
		g.logger.Info("Model not available, trying next candidate", zap.String("model", model))
	}

	g.logger.Error("All model candidates failed", zap.Strings("models_tried", tried), zap.Error(lastErr))
	return nil, domain.NewGenerationFailedError(lastErr, tried)
}

func (g *Generator) tryModel(ctx context.Context, model, prompt string) (*domain.ModelResponse, error) {
	client, err := g.factory.NewClient(ctx, model)
	if err != nil {
		return nil, err
	}
	if closer, ok := client.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				g.logger.Debug("Closing model client failed", zap.String("model", model), zap.Error(err))
			}
		}()
	}

	callCtx := ctx
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	resp, err := client.Invoke(callCtx, prompt)
	if err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = model
	}
	return resp, nil
}

var _ domain.QuizGenerator = (*Generator)(nil)

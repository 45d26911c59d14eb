package quizgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/metrics"

	"github.com/tmc/langchaingo/outputparser"
	"go.uber.org/zap"
)

// ParserMode is decided once when the parser is built.
type ParserMode int

const (
	// ManualParser decodes the response text directly.
	ManualParser ParserMode = iota
	// StructuredParser first tries langchaingo's fenced-JSON parser.
	StructuredParser
)

func (m ParserMode) String() string {
	if m == StructuredParser {
		return "structured"
	}
	return "manual"
}

const (
	strategyStructured = "structured"
	strategyDirect     = "direct"
	strategyBrace      = "brace"

	fenceOpen  = "```json"
	fenceClose = "```"
)

const manualInstructions = `Respond with a single JSON object and nothing else. Use exactly these fields:
{
  "article_title": "title of the article",
  "summary": "short summary of the article",
  "questions": [
    {
      "question": "question text",
      "options": ["option A", "option B", "option C", "option D"],
      "answer": "the correct option, copied exactly from options",
      "explanation": "one sentence explaining the answer"
    }
  ],
  "key_entities": ["people, places and concepts named in the article"],
  "related_topics": ["related Wikipedia topics"]
}`

var errNotFenced = errors.New("response is not a fenced JSON block")

// ParserConfig tunes validation beyond the schema.
type ParserConfig struct {
	// StrictValidation requires every answer to be one of its options and
	// between 5 and 10 questions.
	StrictValidation bool
}

// Parser implements domain.ResponseParser.
type Parser struct {
	mode    ParserMode
	defined outputparser.Defined[domain.QuizOutput]
	schema  *Schema
	cfg     ParserConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewParser picks the parser mode: StructuredParser when langchaingo can
// derive an output parser for domain.QuizOutput, ManualParser otherwise.
func NewParser(cfg ParserConfig, logger *zap.Logger, m *metrics.Metrics) (*Parser, error) {
	schema, err := NewSchema()
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.Nop()
	}

	p := &Parser{mode: ManualParser, schema: schema, cfg: cfg, logger: logger, metrics: m}

	defined, err := outputparser.NewDefined(domain.QuizOutput{})
	if err != nil {
		logger.Warn("Structured output parser unavailable, using manual parsing", zap.Error(err))
		return p, nil
	}
	p.mode = StructuredParser
	p.defined = defined
	return p, nil
}

// Mode reports the mode chosen at construction.
func (p *Parser) Mode() ParserMode {
	return p.mode
}

// FormatInstructions tells the model how to shape its answer.
func (p *Parser) FormatInstructions() string {
	if p.mode == StructuredParser {
		return p.defined.GetFormatInstructions()
	}
	return manualInstructions
}

// Parse turns a model response into a validated quiz. Strategies run in
// order: structured (StructuredParser mode only), direct JSON, brace
// extraction. Only the structured strategy may fail softly.
func (p *Parser) Parse(resp *domain.ModelResponse) (*domain.QuizOutput, error) {
	text := resp.Text()

	if p.mode == StructuredParser {
		quiz, err := p.parseStructured(text)
		if err == nil {
			p.metrics.ParseStrategies.WithLabelValues(strategyStructured, "ok").Inc()
			return quiz, nil
		}
		p.metrics.ParseStrategies.WithLabelValues(strategyStructured, "fallthrough").Inc()
		p.logger.Debug("Structured parse failed, falling back to manual parse", zap.Error(err))
	}

	payload, strategy, err := extractJSON(text)
	if err != nil {
		p.metrics.ParseStrategies.WithLabelValues(strategyBrace, "failed").Inc()
		return nil, domain.NewParseFailedError(err, text)
	}

	quiz, err := p.decode(payload)
	if err != nil {
		p.metrics.ParseStrategies.WithLabelValues(strategy, "failed").Inc()
		return nil, domain.NewParseFailedError(err, text)
	}
	p.metrics.ParseStrategies.WithLabelValues(strategy, "ok").Inc()
	return quiz, nil
}

func (p *Parser) parseStructured(text string) (*domain.QuizOutput, error) {
	trimmed := strings.TrimSpace(text)
	// Defined.Parse slices the text without a length check.
	if len(trimmed) < len(fenceOpen)+len(fenceClose) ||
		!strings.HasPrefix(trimmed, fenceOpen) || !strings.HasSuffix(trimmed, fenceClose) {
		return nil, errNotFenced
	}
	body := trimmed[len(fenceOpen) : len(trimmed)-len(fenceClose)]
	if err := p.schema.Validate([]byte(body)); err != nil {
		return nil, err
	}
	quiz, err := p.defined.Parse(trimmed)
	if err != nil {
		return nil, err
	}
	if err := p.checkQuiz(&quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// decode validates payload against the schema before unmarshalling it.
func (p *Parser) decode(payload []byte) (*domain.QuizOutput, error) {
	if err := p.schema.Validate(payload); err != nil {
		return nil, err
	}

	var quiz domain.QuizOutput
	if err := json.Unmarshal(payload, &quiz); err != nil {
		return nil, fmt.Errorf("decoding quiz payload: %w", err)
	}

	if err := p.checkQuiz(&quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (p *Parser) checkQuiz(quiz *domain.QuizOutput) error {
	if !p.cfg.StrictValidation {
		return nil
	}
	return checkStrict(quiz)
}

// extractJSON returns the whole trimmed text when it is valid JSON, else the
// span from the first '{' to the last '}'.
func extractJSON(text string) ([]byte, string, error) {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) {
		return []byte(trimmed), strategyDirect, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end <= start {
		return nil, strategyBrace, errors.New("no JSON object found in model output")
	}

	candidate := []byte(trimmed[start : end+1])
	if !json.Valid(candidate) {
		return nil, strategyBrace, errors.New("extracted text is not valid JSON")
	}
	return candidate, strategyBrace, nil
}

func checkStrict(quiz *domain.QuizOutput) error {
	if n := len(quiz.Questions); n < 5 || n > 10 {
		return fmt.Errorf("quiz has %d questions, expected 5 to 10", n)
	}
	for i, q := range quiz.Questions {
		found := false
		for _, opt := range q.Options {
			if opt == q.Answer {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("question %d: answer %q is not one of its options", i+1, q.Answer)
		}
	}
	return nil
}

var _ domain.ResponseParser = (*Parser)(nil)

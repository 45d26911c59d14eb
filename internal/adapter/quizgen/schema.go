package quizgen

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// quizSchema describes a QuizOutput document. Unknown fields are allowed.
const quizSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["article_title", "summary", "questions"],
  "properties": {
    "article_title": {"type": "string"},
    "summary": {"type": "string"},
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question", "options", "answer"],
        "properties": {
          "question": {"type": "string", "minLength": 1},
          "options": {"type": "array", "items": {"type": "string"}},
          "answer": {"type": "string"},
          "explanation": {"type": ["string", "null"]}
        }
      }
    },
    "key_entities": {"type": ["array", "null"], "items": {"type": "string"}},
    "related_topics": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

// Schema validates raw JSON payloads against the quiz document shape.
type Schema struct {
	schema *gojsonschema.Schema
}

// NewSchema compiles the quiz schema.
func NewSchema() (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(quizSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling quiz schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// Validate returns an error listing every violation in payload.
func (s *Schema) Validate(payload []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("validating quiz payload: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("quiz payload does not match schema: %s", strings.Join(msgs, "; "))
}

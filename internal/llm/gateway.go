// Package llm is the gateway to vision-capable language models. A request carries a filled
// prompt, an optional JSON Schema for the answer and optional inline image bytes; the answer is
// returned as a decoded JSON object.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	// ErrProviderUnavailable is returned when the requested provider is unknown or not configured.
	ErrProviderUnavailable = errors.New("llm provider unavailable")
	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Level is the reasoning effort requested from the model.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// thinkingBudget maps a level to a token budget; zero means the provider default.
func (l Level) thinkingBudget() int32 {
	switch l {
	case LevelLow:
		return 1024
	case LevelMedium:
		return 8192
	case LevelHigh:
		return 24576
	default:
		return 0
	}
}

// Request is a single structured-output call.
type Request struct {
	Prompt        string
	Schema        json.RawMessage // JSON Schema for the answer, optional
	Provider      string          // empty selects the client default
	Level         Level
	Image         []byte
	ImageMIMEType string
}

// Gateway answers prompts with structured JSON objects.
type Gateway interface {
	Ask(ctx context.Context, req Request) (map[string]any, error)
}

// SchemaError reports an answer that decoded fine but does not match the requested schema.
type SchemaError struct {
	Response map[string]any
	Err      error
}

func (e *SchemaError) Error() string {
	return "response does not match schema: " + e.Err.Error()
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Ask sends req to its provider and decodes the answer.
func (c *Client) Ask(ctx context.Context, req Request) (map[string]any, error) {
	name := req.Provider
	if name == "" {
		name = c.defaultProvider
	}
	p, ok := c.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, name)
	}

	var schema *compiledSchema
	if len(req.Schema) > 0 {
		var err error
		schema, err = compileSchema(req.Schema)
		if err != nil {
			return nil, err
		}
	}

	log.Debug().
		Str("provider", name).
		Str("level", string(req.Level)).
		Int("prompt_length", len(req.Prompt)).
		Int("image_bytes", len(req.Image)).
		Msg("Calling model")

	raw, err := p.generate(ctx, &req, schema.root())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	logModelResponse(name, raw)

	out, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	if schema != nil {
		if err := schema.validate(out); err != nil {
			return nil, &SchemaError{Response: out, Err: err}
		}
	}
	return out, nil
}

// decodeObject parses a JSON object, tolerating markdown code fences around it.
func decodeObject(raw string) (map[string]any, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyResponse
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("decode model response: not a JSON object")
	}
	return out, nil
}

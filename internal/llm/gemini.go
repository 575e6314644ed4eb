package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	unifiedgenai "google.golang.org/genai"
)

// geminiProvider uses the unified genai SDK; it is the only provider that honours Level.
type geminiProvider struct {
	client *unifiedgenai.Client
	model  string
}

func newGeminiProvider(ctx context.Context, opts Options) (*geminiProvider, error) {
	cfg := &unifiedgenai.ClientConfig{APIKey: opts.APIKey, Backend: unifiedgenai.BackendGeminiAPI}
	if opts.Endpoint != "" {
		cfg.HTTPOptions = unifiedgenai.HTTPOptions{BaseURL: opts.Endpoint}
	}
	client, err := unifiedgenai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &geminiProvider{client: client, model: opts.Model}, nil
}

func (p *geminiProvider) generate(ctx context.Context, req *Request, schema *schemaNode) (string, error) {
	parts := []*unifiedgenai.Part{unifiedgenai.NewPartFromText(req.Prompt)}
	if len(req.Image) > 0 {
		parts = append(parts, unifiedgenai.NewPartFromBytes(req.Image, req.ImageMIMEType))
	}
	contents := []*unifiedgenai.Content{{Role: "user", Parts: parts}}

	config := &unifiedgenai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if schema != nil {
		config.ResponseSchema = toUnifiedSchema(schema)
	}
	if budget := req.Level.thinkingBudget(); budget > 0 {
		config.ThinkingConfig = &unifiedgenai.ThinkingConfig{ThinkingBudget: &budget}
	}

	log.Debug().Str("model", p.model).Int32("thinking_budget", req.Level.thinkingBudget()).Msg("Calling unified genai GenerateContent")

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func toUnifiedSchema(n *schemaNode) *unifiedgenai.Schema {
	if n == nil {
		return nil
	}
	name, nullable := n.typeName()
	s := &unifiedgenai.Schema{
		Type:        unifiedType(name),
		Description: n.Description,
		Required:    n.Required,
		Enum:        n.Enum,
		Items:       toUnifiedSchema(n.Items),
	}
	if nullable {
		s.Nullable = &nullable
	}
	if len(n.Properties) > 0 {
		s.Properties = make(map[string]*unifiedgenai.Schema, len(n.Properties))
		for k, v := range n.Properties {
			s.Properties[k] = toUnifiedSchema(v)
		}
	}
	return s
}

func unifiedType(name string) unifiedgenai.Type {
	switch name {
	case "object":
		return unifiedgenai.TypeObject
	case "array":
		return unifiedgenai.TypeArray
	case "string":
		return unifiedgenai.TypeString
	case "integer":
		return unifiedgenai.TypeInteger
	case "number":
		return unifiedgenai.TypeNumber
	case "boolean":
		return unifiedgenai.TypeBoolean
	default:
		return unifiedgenai.TypeUnspecified
	}
}

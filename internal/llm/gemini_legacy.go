package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// legacyProvider uses github.com/google/generative-ai-go. It has no thinking controls, Level is ignored.
type legacyProvider struct {
	client *genai.Client
	model  string
}

func newLegacyProvider(ctx context.Context, opts Options) (*legacyProvider, error) {
	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, err
	}
	return &legacyProvider{client: client, model: opts.Model}, nil
}

func (p *legacyProvider) close() error {
	return p.client.Close()
}

func (p *legacyProvider) generate(ctx context.Context, req *Request, schema *schemaNode) (string, error) {
	model := p.client.GenerativeModel(p.model)
	model.ResponseMIMEType = "application/json"
	if schema != nil {
		model.ResponseSchema = toLegacySchema(schema)
	}

	parts := []genai.Part{genai.Text(req.Prompt)}
	if len(req.Image) > 0 {
		parts = append(parts, genai.Blob{MIMEType: req.ImageMIMEType, Data: req.Image})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini vision failed: %w", err)
	}

	var result strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				result.WriteString(string(text))
			}
		}
		break
	}
	if result.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return result.String(), nil
}

func toLegacySchema(n *schemaNode) *genai.Schema {
	if n == nil {
		return nil
	}
	name, nullable := n.typeName()
	s := &genai.Schema{
		Type:        legacyType(name),
		Description: n.Description,
		Nullable:    nullable,
		Required:    n.Required,
		Enum:        n.Enum,
		Items:       toLegacySchema(n.Items),
	}
	if len(n.Properties) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(n.Properties))
		for k, v := range n.Properties {
			s.Properties[k] = toLegacySchema(v)
		}
	}
	return s
}

func legacyType(name string) genai.Type {
	switch name {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}

package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// langchainProvider goes through langchaingo's googleai model. Schemas are enforced only by
// validation in Ask; the model is asked for JSON via the MIME type.
type langchainProvider struct {
	model llms.Model
}

func newLangchainProvider(ctx context.Context, opts Options) (*langchainProvider, error) {
	googleOpts := []googleai.Option{googleai.WithAPIKey(opts.APIKey), googleai.WithDefaultModel(opts.Model)}
	if opts.Endpoint != "" {
		if httpClient := httpClientForEndpoint(opts.Endpoint); httpClient != nil {
			googleOpts = append(googleOpts, googleai.WithHTTPClient(httpClient))
		}
	}
	model, err := googleai.New(ctx, googleOpts...)
	if err != nil {
		return nil, err
	}
	return &langchainProvider{model: model}, nil
}

func (p *langchainProvider) generate(ctx context.Context, req *Request, _ *schemaNode) (string, error) {
	parts := []llms.ContentPart{llms.TextPart(req.Prompt)}
	if len(req.Image) > 0 {
		parts = append(parts, llms.BinaryPart(req.ImageMIMEType, req.Image))
	}
	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	}

	resp, err := p.model.GenerateContent(ctx, messages, llms.WithResponseMIMEType("application/json"))
	if err != nil {
		return "", fmt.Errorf("langchain generate: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}

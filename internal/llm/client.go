package llm

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
)

// maxModelResponseLogBytes is the max length of a model response to log in full (to avoid huge logs).
const maxModelResponseLogBytes = 8192

// Provider names accepted in Request.Provider.
const (
	ProviderGemini       = "gemini"
	ProviderGeminiLegacy = "gemini-legacy"
	ProviderLangchain    = "langchain"
)

// provider produces the raw (JSON) text answer for a request.
type provider interface {
	generate(ctx context.Context, req *Request, schema *schemaNode) (string, error)
}

// Options configures NewClient.
type Options struct {
	APIKey          string
	Endpoint        string // optional Gemini API base URL
	Model           string
	DefaultProvider string
}

// Client is the Gateway backed by Gemini through three SDKs.
type Client struct {
	providers       map[string]provider
	defaultProvider string
	closers         []func() error
}

// NewClient creates a new LLM client. Providers that fail to initialize are logged and left out;
// requests naming them fail with ErrProviderUnavailable.
func NewClient(ctx context.Context, opts Options) *Client {
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.DefaultProvider == "" {
		opts.DefaultProvider = ProviderGemini
	}

	c := &Client{
		providers:       make(map[string]provider),
		defaultProvider: opts.DefaultProvider,
	}

	if opts.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set, image analysis is disabled")
		return c
	}

	if p, err := newGeminiProvider(ctx, opts); err != nil {
		log.Error().Err(err).Msg("Failed to initialize unified genai provider")
	} else {
		c.providers[ProviderGemini] = p
	}

	if p, err := newLegacyProvider(ctx, opts); err != nil {
		log.Error().Err(err).Msg("Failed to initialize generative-ai-go provider")
	} else {
		c.providers[ProviderGeminiLegacy] = p
		c.closers = append(c.closers, p.close)
	}

	if p, err := newLangchainProvider(ctx, opts); err != nil {
		log.Error().Err(err).Msg("Failed to initialize langchaingo provider")
	} else {
		c.providers[ProviderLangchain] = p
	}

	log.Info().
		Str("model", opts.Model).
		Str("api_endpoint", opts.Endpoint).
		Str("default_provider", opts.DefaultProvider).
		Int("providers", len(c.providers)).
		Msg("LLM client initialized")

	return c
}

// Close releases SDK clients that hold connections.
func (c *Client) Close() error {
	var firstErr error
	for _, fn := range c.closers {
		if err := fn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// httpClientForEndpoint returns an http.Client that rewrites request URLs to the given base endpoint.
func httpClientForEndpoint(baseEndpoint string) *http.Client {
	base, err := url.Parse(baseEndpoint)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", baseEndpoint).Msg("Invalid GEMINI_API_ENDPOINT, using default")
		return nil
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	return &http.Client{
		Transport: &endpointRoundTripper{base: base, next: http.DefaultTransport},
	}
}

// endpointRoundTripper rewrites request URLs to a custom base (scheme, host, path prefix).
type endpointRoundTripper struct {
	base *url.URL
	next http.RoundTripper
}

func (e *endpointRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.URL.Scheme = e.base.Scheme
	req2.URL.Host = e.base.Host
	req2.URL.Path = path.Join("/", e.base.Path, strings.TrimPrefix(req.URL.Path, "/"))
	if req.URL.RawQuery != "" {
		req2.URL.RawQuery = req.URL.RawQuery
	}
	return e.next.RoundTrip(req2)
}

// logModelResponse logs the raw response text, truncating if over maxModelResponseLogBytes.
func logModelResponse(provider, raw string) {
	if len(raw) <= maxModelResponseLogBytes {
		log.Info().Str("provider", provider).Str("model_response", raw).Msg("Model response")
		return
	}
	log.Info().
		Str("provider", provider).
		Str("model_response", raw[:maxModelResponseLogBytes]+"... [truncated]").
		Int("model_response_len", len(raw)).
		Msg("Model response")
}

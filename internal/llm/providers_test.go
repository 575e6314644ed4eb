package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testImage = []byte("\x89PNG\r\n\x1a\nimage-bytes")

// geminiStub answers generateContent with a fixed JSON candidate and records the last request.
type geminiStub struct {
	*httptest.Server

	mu   sync.Mutex
	path string
	body map[string]any
}

func newGeminiStub(t *testing.T, answer string) *geminiStub {
	t.Helper()
	stub := &geminiStub{}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var body map[string]any
		assert.NoError(t, json.Unmarshal(raw, &body), string(raw))

		stub.mu.Lock()
		stub.path = r.URL.Path
		stub.body = body
		stub.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": answer}},
				},
				"finishReason": "STOP",
			}},
		})
	}))
	t.Cleanup(stub.Close)
	return stub
}

func (s *geminiStub) last() (string, map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path, s.body
}

// findKey returns the first value stored under key anywhere in a decoded JSON document.
func findKey(v any, key string) (any, bool) {
	switch x := v.(type) {
	case map[string]any:
		if found, ok := x[key]; ok {
			return found, true
		}
		for _, child := range x {
			if found, ok := findKey(child, key); ok {
				return found, true
			}
		}
	case []any:
		for _, child := range x {
			if found, ok := findKey(child, key); ok {
				return found, true
			}
		}
	}
	return nil, false
}

func askThroughStub(t *testing.T, provider string) (map[string]any, string, map[string]any) {
	t.Helper()
	stub := newGeminiStub(t, `{"sound_description": "rain"}`)

	c := NewClient(context.Background(), Options{
		APIKey:          "test-key",
		Endpoint:        stub.URL,
		Model:           "gemini-test",
		DefaultProvider: provider,
	})
	t.Cleanup(func() { _ = c.Close() })

	out, err := c.Ask(context.Background(), Request{
		Prompt:        "What does this sound like?",
		Schema:        json.RawMessage(soundSchema),
		Level:         LevelHigh,
		Image:         testImage,
		ImageMIMEType: "image/png",
	})
	require.NoError(t, err)

	path, body := stub.last()
	require.NotNil(t, body)
	return out, path, body
}

func assertImageAndPrompt(t *testing.T, body map[string]any) {
	t.Helper()
	inline, ok := findKey(body, "inlineData")
	require.True(t, ok, "request has no inline image part")
	blob, ok := inline.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "image/png", blob["mimeType"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(testImage), blob["data"])

	text, ok := findKey(body, "text")
	require.True(t, ok)
	assert.Equal(t, "What does this sound like?", text)

	mime, ok := findKey(body, "responseMimeType")
	require.True(t, ok)
	assert.Equal(t, "application/json", mime)
}

func TestGeminiProvider_Wire(t *testing.T) {
	out, path, body := askThroughStub(t, ProviderGemini)

	assert.Equal(t, map[string]any{"sound_description": "rain"}, out)
	assert.True(t, strings.HasPrefix(path, "/"))
	assert.True(t, strings.HasSuffix(path, "models/gemini-test:generateContent"), path)
	assertImageAndPrompt(t, body)

	schema, ok := findKey(body, "responseSchema")
	require.True(t, ok)
	props, ok := findKey(schema, "properties")
	require.True(t, ok)
	assert.Contains(t, props, "sound_description")

	budget, ok := findKey(body, "thinkingBudget")
	require.True(t, ok)
	assert.EqualValues(t, 24576, budget)
}

func TestGeminiLegacyProvider_Wire(t *testing.T) {
	out, path, body := askThroughStub(t, ProviderGeminiLegacy)

	assert.Equal(t, map[string]any{"sound_description": "rain"}, out)
	assert.True(t, strings.HasSuffix(path, "models/gemini-test:generateContent"), path)
	assertImageAndPrompt(t, body)

	schema, ok := findKey(body, "responseSchema")
	require.True(t, ok)
	props, ok := findKey(schema, "properties")
	require.True(t, ok)
	assert.Contains(t, props, "sound_description")

	_, ok = findKey(body, "thinkingBudget")
	assert.False(t, ok)
}

func TestLangchainProvider_Wire(t *testing.T) {
	out, path, body := askThroughStub(t, ProviderLangchain)

	assert.Equal(t, map[string]any{"sound_description": "rain"}, out)
	assert.True(t, strings.HasPrefix(path, "/v1beta/"), path)
	assert.True(t, strings.HasSuffix(path, "models/gemini-test:generateContent"), path)
	assertImageAndPrompt(t, body)
}

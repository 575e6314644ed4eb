package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_SendsRequest(t *testing.T) {
	var gotBody map[string]any
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		gotKey = r.Header.Get("x-api-key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"filename": "f.wav", "seconds": 10}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Minute)
	meta, err := c.Generate(context.Background(), GenerateRequest{Prompt: "bark", Seconds: 10, Steps: 200, Guidance: 3.2})
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "bark", gotBody["prompt"])
	assert.Equal(t, float64(200), gotBody["steps"])
	assert.Equal(t, 3.2, gotBody["guidance"])
	seed, present := gotBody["seed"]
	assert.True(t, present, "seed is always sent")
	assert.Nil(t, seed)
	assert.Equal(t, "f.wav", meta["filename"])
}

func TestGenerate_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "wrong", time.Minute)
	_, err := c.Generate(context.Background(), GenerateRequest{Prompt: "bark"})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "bad key")
}

func TestGenerate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 50*time.Millisecond)
	_, err := c.Generate(context.Background(), GenerateRequest{Prompt: "bark"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerate_NoBaseURL(t *testing.T) {
	c := NewClient("", "k", time.Minute)
	_, err := c.Generate(context.Background(), GenerateRequest{Prompt: "bark"})
	assert.Error(t, err)
}

func TestDownloadURL(t *testing.T) {
	c := NewClient("https://synth.example.com", "k", time.Minute)

	u, err := c.DownloadURL(Metadata{"download_url": "https://cdn.example.com/x.wav", "filename": "ignored.wav"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/x.wav", u)

	u, err = c.DownloadURL(Metadata{"filename": "f.wav"})
	require.NoError(t, err)
	assert.Equal(t, "https://synth.example.com/download/f.wav", u)

	_, err = c.DownloadURL(Metadata{"status": "ok"})
	assert.ErrorIs(t, err, ErrMissingDownloadTarget)
}

func TestDownloadURL_IgnoresUnusableValues(t *testing.T) {
	c := NewClient("https://synth.example.com", "k", time.Minute)

	tests := []struct {
		name string
		meta Metadata
		want string
	}{
		{"null download_url falls back", Metadata{"download_url": nil, "filename": "f.wav"}, "https://synth.example.com/download/f.wav"},
		{"empty download_url falls back", Metadata{"download_url": "  ", "filename": "f.wav"}, "https://synth.example.com/download/f.wav"},
		{"numeric download_url falls back", Metadata{"download_url": 42.0, "filename": "f.wav"}, "https://synth.example.com/download/f.wav"},
		{"filename is escaped", Metadata{"filename": "a b.wav"}, "https://synth.example.com/download/a%20b.wav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := c.DownloadURL(tt.meta)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u)
		})
	}

	for _, meta := range []Metadata{
		{"download_url": nil},
		{"filename": nil},
		{"download_url": "", "filename": ""},
		{"filename": map[string]any{"name": "f.wav"}},
	} {
		_, err := c.DownloadURL(meta)
		assert.ErrorIs(t, err, ErrMissingDownloadTarget, "%v", meta)
	}
}

func TestFetch_StreamsWithAuthHeader(t *testing.T) {
	payload := bytes.Repeat([]byte("RIFF"), 5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	body, err := NewClient(srv.URL, "k", time.Minute).Fetch(context.Background(), srv.URL+"/download/f.wav")
	require.NoError(t, err)
	defer body.Close()

	var buf bytes.Buffer
	n, err := CopyChunks(&buf, body)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", time.Minute).Fetch(context.Background(), srv.URL+"/download/x.wav")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

// chunkRecorder records the size of every write it receives.
type chunkRecorder struct {
	sizes []int
}

func (c *chunkRecorder) Write(p []byte) (int, error) {
	c.sizes = append(c.sizes, len(p))
	return len(p), nil
}

func (c *chunkRecorder) ReadFrom(io.Reader) (int64, error) {
	panic("ReadFrom must not be used")
}

func TestCopyChunks_FixedSize(t *testing.T) {
	payload := bytes.Repeat([]byte{1}, 3*DownloadChunkSize+10)

	rec := &chunkRecorder{}
	n, err := CopyChunks(rec, bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, []int{DownloadChunkSize, DownloadChunkSize, DownloadChunkSize, 10}, rec.sizes)
}

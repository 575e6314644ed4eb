// Package synth is a client for the remote text-to-audio service:
// POST {base}/generate returns metadata naming the produced file, which is then fetched from
// the returned download_url or from {base}/download/{filename}. Both calls carry the x-api-key header.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DownloadChunkSize is the buffer size used when streaming a waveform to disk.
const DownloadChunkSize = 8192

const apiKeyHeader = "x-api-key"

// maxErrorBodyBytes bounds how much of a failed response body is kept in StatusError.
const maxErrorBodyBytes = 1024

// ErrMissingDownloadTarget is returned when generate metadata has neither download_url nor filename.
var ErrMissingDownloadTarget = errors.New("response missing 'download_url' or 'filename'")

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Prompt   string  `json:"prompt"`
	Seconds  float64 `json:"seconds"`
	Steps    int     `json:"steps"`
	Guidance float64 `json:"guidance"`
	Seed     *int64  `json:"seed"` // null lets the service choose
}

// Metadata is the decoded JSON returned by POST /generate.
type Metadata map[string]any

// StatusError wraps a non-2xx response from the synthesis service.
type StatusError struct {
	StatusCode int
	Op         string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Client talks to one synthesis service.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a synthesis client. timeout bounds the generate call only; downloads are
// bounded by the caller's context.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// Generate submits req and returns the service's metadata.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (Metadata, error) {
	if c.baseURL == "" {
		return nil, errors.New("synthesis service base URL not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "generate"); err != nil {
		return nil, err
	}

	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}
	if meta == nil {
		return nil, errors.New("decode generate response: not a JSON object")
	}
	return meta, nil
}

// DownloadURL resolves where the generated file can be fetched from.
// A download_url wins over filename; null, empty or non-string values count as absent.
func (c *Client) DownloadURL(meta Metadata) (string, error) {
	if v := meta.str("download_url"); v != "" {
		return v, nil
	}
	if v := meta.str("filename"); v != "" {
		return c.baseURL + "/download/" + url.PathEscape(v), nil
	}
	return "", ErrMissingDownloadTarget
}

func (m Metadata) str(key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// Fetch starts downloading downloadURL and returns the body once the status is known to be 2xx.
// The caller closes the body.
func (c *Client) Fetch(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	httpReq.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	if err := checkStatus(resp, "download"); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// CopyChunks streams src into dst in DownloadChunkSize chunks.
// Bytes already written stay written when the stream fails midway.
func CopyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, DownloadChunkSize)
	n, err := io.CopyBuffer(onlyWriter{dst}, onlyReader{src}, buf)
	if err != nil {
		return n, fmt.Errorf("download stream: %w", err)
	}
	log.Debug().Int64("bytes", n).Msg("Audio downloaded")
	return n, nil
}

func checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &StatusError{StatusCode: resp.StatusCode, Op: op, Body: string(bytes.TrimSpace(body))}
}

// onlyReader and onlyWriter hide WriterTo and ReaderFrom so io.CopyBuffer uses the fixed-size buffer.
type onlyReader struct {
	io.Reader
}

type onlyWriter struct {
	io.Writer
}

package models

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidImage is returned by DecodeImage for payloads that are not valid base64.
var ErrInvalidImage = errors.New("invalid base64 image data")

// ImageAnalysisRequest is the body of POST /api/image/analyze.
// Image is a pointer so a missing field can be told apart from an empty one.
type ImageAnalysisRequest struct {
	Image *string `json:"image"`
	Query string  `json:"query"`
}

// AudioGenerationRequest is the body of POST /api/audio/generate.
type AudioGenerationRequest struct {
	SoundDescription *string `json:"sound_description"`
}

// FailureKind classifies a logical failure for status mapping. It is never serialized.
type FailureKind string

const (
	FailureNone     FailureKind = ""
	FailureConfig   FailureKind = "config"   // missing prompt, provider or endpoint
	FailureUpstream FailureKind = "upstream" // remote service error or contract violation
	FailureTimeout  FailureKind = "timeout"  // remote service did not answer in time
	FailureStorage  FailureKind = "storage"  // local filesystem write failed
	FailureInternal FailureKind = "internal"
)

// ImageAnalysisResult is returned by the image analysis handler.
type ImageAnalysisResult struct {
	Success          bool           `json:"success"`
	SoundDescription string         `json:"sound_description,omitempty"`
	PromptUsed       string         `json:"prompt_used,omitempty"`
	Error            string         `json:"error,omitempty"`
	Response         map[string]any `json:"response,omitempty"`
	Kind             FailureKind    `json:"-"`
}

// AudioGenerationResult is returned by the audio generation handler.
type AudioGenerationResult struct {
	Success  bool        `json:"success"`
	AudioURL string      `json:"audio_url,omitempty"`
	Error    string      `json:"error,omitempty"`
	Kind     FailureKind `json:"-"`
}

// ErrorResponse is the body of every non-result error (validation, auth, panics).
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// DecodeImage decodes a base64 image payload. A data URL prefix
// ("data:image/png;base64,") and surrounding whitespace are accepted.
func DecodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ";base64,")
		if i < 0 {
			return nil, ErrInvalidImage
		}
		s = s[i+len(";base64,"):]
	}
	if s == "" {
		return nil, ErrInvalidImage
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidImage
	}
	return data, nil
}

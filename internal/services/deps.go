package services

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/snappy-loop/soundscape/internal/llm"
	"github.com/snappy-loop/soundscape/internal/models"
	"github.com/snappy-loop/soundscape/internal/prompts"
	"github.com/snappy-loop/soundscape/internal/synth"
)

// promptResolver is the subset of the prompt registry used by ImageService.
type promptResolver interface {
	Find(site, itemType, name string) (*prompts.Prompt, bool)
}

// synthesizer is the subset of the synthesis client used by AudioService.
type synthesizer interface {
	Generate(ctx context.Context, req synth.GenerateRequest) (synth.Metadata, error)
	DownloadURL(meta synth.Metadata) (string, error)
	Fetch(ctx context.Context, downloadURL string) (io.ReadCloser, error)
}

// classify maps an error from a remote call to a failure kind.
func classify(err error) models.FailureKind {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.FailureTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return models.FailureTimeout
	case errors.Is(err, llm.ErrProviderUnavailable), errors.Is(err, prompts.ErrPromptNotFound):
		return models.FailureConfig
	default:
		return models.FailureUpstream
	}
}

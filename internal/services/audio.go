package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/soundscape/internal/models"
	"github.com/snappy-loop/soundscape/internal/synth"
)

const (
	dirPermissions  = 0o755
	filePermissions = 0o644

	// audioTimestampFormat names files by second; two requests in the same second share a name.
	audioTimestampFormat = "20060102_150405"
)

// SynthesisParams are the fixed generation settings sent with every prompt.
type SynthesisParams struct {
	Seconds  float64
	Steps    int
	Guidance float64
	Seed     *int64
}

// DefaultSynthesisParams returns 10 seconds, 200 steps, guidance 3.2 and a service-chosen seed.
func DefaultSynthesisParams() SynthesisParams {
	return SynthesisParams{Seconds: 10, Steps: 200, Guidance: 3.2}
}

// AudioService generates audio for a sound description and stores it under outputDir.
// It holds no per-request state and is shared across requests.
type AudioService struct {
	synth     synthesizer
	outputDir string
	urlPrefix string
	params    SynthesisParams
	now       func() time.Time
}

// NewAudioService creates the output directory if needed and returns the service.
func NewAudioService(s synthesizer, outputDir, urlPrefix string, params SynthesisParams) (*AudioService, error) {
	if err := os.MkdirAll(outputDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create audio output directory: %w", err)
	}
	if abs, err := filepath.Abs(outputDir); err == nil {
		log.Info().Str("dir", abs).Msg("Audio output directory")
	}
	return &AudioService{
		synth:     s,
		outputDir: outputDir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
		params:    params,
		now:       time.Now,
	}, nil
}

// ProcessSoundDescription calls the synthesis service, downloads the waveform and returns its
// static URL. Failures are reported in the result, never returned.
func (s *AudioService) ProcessSoundDescription(ctx context.Context, description string) *models.AudioGenerationResult {
	log.Info().Str("description", truncate(description, 100)).Msg("Generating audio for description")

	meta, err := s.synth.Generate(ctx, synth.GenerateRequest{
		Prompt:   description,
		Seconds:  s.params.Seconds,
		Steps:    s.params.Steps,
		Guidance: s.params.Guidance,
		Seed:     s.params.Seed,
	})
	if err != nil {
		return s.fail(classify(err), err)
	}
	log.Info().Interface("meta", meta).Msg("Audio generation meta")

	downloadURL, err := s.synth.DownloadURL(meta)
	if err != nil {
		return s.fail(models.FailureUpstream, err)
	}

	filename := "audio_" + s.now().Format(audioTimestampFormat) + ".wav"
	wavPath := filepath.Join(s.outputDir, filename)

	log.Info().Str("url", downloadURL).Msg("Downloading audio")

	body, err := s.synth.Fetch(ctx, downloadURL)
	if err != nil {
		return s.fail(classify(err), err)
	}
	defer body.Close()

	f, err := os.OpenFile(wavPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
	if err != nil {
		return s.fail(models.FailureStorage, fmt.Errorf("failed to create audio file: %w", err))
	}
	n, copyErr := synth.CopyChunks(f, body)
	closeErr := f.Close()
	if copyErr != nil {
		kind := classify(copyErr)
		var pathErr *fs.PathError
		if errors.As(copyErr, &pathErr) {
			kind = models.FailureStorage
		}
		return s.fail(kind, copyErr)
	}
	if closeErr != nil {
		return s.fail(models.FailureStorage, fmt.Errorf("failed to write audio file: %w", closeErr))
	}

	log.Info().Str("path", wavPath).Int64("bytes", n).Msg("Audio saved")

	return &models.AudioGenerationResult{
		Success:  true,
		AudioURL: s.urlPrefix + "/" + filename,
	}
}

func (s *AudioService) fail(kind models.FailureKind, err error) *models.AudioGenerationResult {
	log.Error().Err(err).Str("kind", string(kind)).Msg("Error generating audio")
	return &models.AudioGenerationResult{Success: false, Error: err.Error(), Kind: kind}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

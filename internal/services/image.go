package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/soundscape/internal/llm"
	"github.com/snappy-loop/soundscape/internal/models"
	"github.com/snappy-loop/soundscape/internal/prompts"
)

const (
	imageSite             = "image_analysis"
	imageItemType         = "Image"
	soundDescriptionName  = "GetImageSoundDescription"
	soundDescriptionField = "sound_description"
)

// ImageService turns an image into a sound description through the LLM gateway.
type ImageService struct {
	prompts  promptResolver
	gateway  llm.Gateway
	provider string
	level    llm.Level
}

// NewImageService creates a new ImageService. Empty provider selects the gateway default.
func NewImageService(resolver promptResolver, gateway llm.Gateway, provider string, level llm.Level) *ImageService {
	return &ImageService{
		prompts:  resolver,
		gateway:  gateway,
		provider: provider,
		level:    level,
	}
}

// ProcessImage asks the model what the base64 image sounds like. Failures are reported in the
// result, never returned. query is exposed to the prompt template but unused by the default one.
func (s *ImageService) ProcessImage(ctx context.Context, imageData, query string) *models.ImageAnalysisResult {
	image, err := models.DecodeImage(imageData)
	if err != nil {
		return s.fail(models.FailureInternal, err)
	}
	return s.ProcessDecodedImage(ctx, imageData, image, query)
}

// ProcessDecodedImage is ProcessImage for callers that already decoded imageData into image.
func (s *ImageService) ProcessDecodedImage(ctx context.Context, imageData string, image []byte, query string) *models.ImageAnalysisResult {
	p, ok := s.prompts.Find(imageSite, imageItemType, soundDescriptionName)
	if !ok {
		return s.fail(models.FailureConfig, fmt.Errorf("%w: '%s'", prompts.ErrPromptNotFound, soundDescriptionName))
	}

	filled, err := prompts.Fill(p, prompts.PromptContext{
		ImageData: imageData,
		Site:      imageSite,
		ItemType:  imageItemType,
		Query:     query,
	})
	if err != nil {
		return s.fail(models.FailureConfig, err)
	}

	log.Info().
		Str("provider", s.provider).
		Str("level", string(s.level)).
		Int("image_bytes", len(image)).
		Msg("Processing image for sound description")

	response, err := s.gateway.Ask(ctx, llm.Request{
		Prompt:        filled,
		Schema:        p.SchemaJSON(),
		Provider:      s.provider,
		Level:         s.level,
		Image:         image,
		ImageMIMEType: imageMIMEType(image),
	})
	if err != nil {
		var schemaErr *llm.SchemaError
		if !errors.As(err, &schemaErr) {
			return s.fail(classify(err), err)
		}
		response = schemaErr.Response
	}

	desc, ok := soundDescription(response)
	if !ok {
		log.Warn().Interface("response", response).Msg("No sound description in model response")
		return &models.ImageAnalysisResult{
			Success:  false,
			Error:    "No sound description generated",
			Response: response,
			Kind:     models.FailureUpstream,
		}
	}

	return &models.ImageAnalysisResult{
		Success:          true,
		SoundDescription: desc,
		PromptUsed:       soundDescriptionName,
	}
}

// soundDescription reads the description field. Any non-null value counts; non-strings are
// rendered as JSON.
func soundDescription(response map[string]any) (string, bool) {
	v, ok := response[soundDescriptionField]
	if !ok || v == nil {
		return "", false
	}
	if s, isString := v.(string); isString {
		return s, true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v), true
	}
	return string(b), true
}

func (s *ImageService) fail(kind models.FailureKind, err error) *models.ImageAnalysisResult {
	log.Error().Err(err).Str("kind", string(kind)).Msg("Error processing image")
	return &models.ImageAnalysisResult{Success: false, Error: err.Error(), Kind: kind}
}

// imageMIMEType sniffs the image format; unknown data is sent as JPEG.
func imageMIMEType(data []byte) string {
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "image/jpeg"
	}
	return mimeType
}

package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/soundscape/internal/models"
)

// AnalyzeImage handles POST /api/image/analyze
func (h *Handler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var req models.ImageAnalysisRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Image == nil || *req.Image == "" {
		writeJSONError(w, http.StatusBadRequest, "No image data provided")
		return
	}
	image, err := models.DecodeImage(*req.Image)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid base64 image data")
		return
	}

	result := h.images.ProcessDecodedImage(r.Context(), *req.Image, image, req.Query)
	if !result.Success {
		log.Warn().Str("error", result.Error).Str("kind", string(result.Kind)).Msg("Image analysis failed")
	}
	writeJSON(w, statusFor(result.Kind), result)
}

// GenerateAudio handles POST /api/audio/generate
func (h *Handler) GenerateAudio(w http.ResponseWriter, r *http.Request) {
	var req models.AudioGenerationRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.SoundDescription == nil || *req.SoundDescription == "" {
		writeJSONError(w, http.StatusBadRequest, "No sound description provided")
		return
	}

	result := h.audio.ProcessSoundDescription(r.Context(), *req.SoundDescription)
	if !result.Success {
		log.Warn().Str("error", result.Error).Str("kind", string(result.Kind)).Msg("Audio generation failed")
	}
	writeJSON(w, statusFor(result.Kind), result)
}

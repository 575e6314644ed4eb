package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/soundscape/internal/models"
)

// imageAnalyzer is the subset of services.ImageService used by the handlers.
type imageAnalyzer interface {
	ProcessDecodedImage(ctx context.Context, imageData string, image []byte, query string) *models.ImageAnalysisResult
}

// audioGenerator is the subset of services.AudioService used by the handlers.
type audioGenerator interface {
	ProcessSoundDescription(ctx context.Context, description string) *models.AudioGenerationResult
}

// Handler contains all HTTP handlers
type Handler struct {
	images          imageAnalyzer
	audio           audioGenerator
	maxRequestBytes int64
}

// NewHandler creates a new handler. maxRequestBytes <= 0 disables the body limit.
func NewHandler(images imageAnalyzer, audio audioGenerator, maxRequestBytes int64) *Handler {
	return &Handler{
		images:          images,
		audio:           audio,
		maxRequestBytes: maxRequestBytes,
	}
}

// Register mounts the API routes on api and the health check on r.
func (h *Handler) Register(r, api *mux.Router) {
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	api.HandleFunc("/image/analyze", h.AnalyzeImage).Methods(http.MethodPost)
	api.HandleFunc("/audio/generate", h.GenerateAudio).Methods(http.MethodPost)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody decodes the JSON body into v, writing 413 or 400 on failure.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body := r.Body
	if h.maxRequestBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		log.Debug().Err(err).Msg("Invalid JSON request")
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON request")
		return false
	}
	return true
}

// statusFor maps a logical failure to the response status; the body is unchanged.
func statusFor(kind models.FailureKind) int {
	switch kind {
	case models.FailureNone:
		return http.StatusOK
	case models.FailureUpstream:
		return http.StatusBadGateway
	case models.FailureTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Success: false, Error: message})
}

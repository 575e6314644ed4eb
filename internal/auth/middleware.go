package auth

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader carries the shared secret.
const APIKeyHeader = "X-API-Key"

// Service checks the shared API key against a bcrypt hash.
type Service struct {
	keyHash []byte
}

// NewService creates a new auth service. An empty hash disables authentication.
func NewService(keyHash string) *Service {
	s := &Service{}
	if keyHash != "" {
		s.keyHash = []byte(keyHash)
	}
	return s
}

// Enabled reports whether requests must carry an API key.
func (s *Service) Enabled() bool {
	return len(s.keyHash) > 0
}

// Middleware creates an authentication middleware
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get(APIKeyHeader)
		if apiKey == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing api key")
			return
		}

		if err := s.ValidateAPIKey(apiKey); err != nil {
			log.Debug().Str("path", r.URL.Path).Msg("Invalid API key")
			writeJSONError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ValidateAPIKey compares apiKey with the configured hash in constant time.
func (s *Service) ValidateAPIKey(apiKey string) error {
	return bcrypt.CompareHashAndPassword(s.keyHash, []byte(apiKey))
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}

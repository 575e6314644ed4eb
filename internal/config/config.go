package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	// Server
	HTTPAddr         string
	LogLevel         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration // must outlive SynthTimeout, audio requests block on the remote service
	MaxRequestBytes  int64

	// Static files. Generated audio is written to StaticDir/audio and served under AudioURLPrefix.
	StaticDir      string
	AudioURLPrefix string

	// Inbound shared secret (bcrypt hash of the X-API-Key value). Empty disables the check.
	APIKeyHash string

	// Gemini API
	GeminiAPIKey      string
	GeminiAPIEndpoint string // if set, overrides default Gemini API base URL
	GeminiModelVision string

	// LLM gateway
	LLMProvider string // gemini, gemini-legacy, langchain
	LLMLevel    string // low, medium, high
	PromptsFile string // optional YAML file replacing the embedded prompts

	// Remote audio synthesis
	SynthBaseURL  string
	SynthAPIKey   string
	SynthTimeout  time.Duration
	SynthSeconds  float64
	SynthSteps    int
	SynthGuidance float64
	SynthSeed     *int64 // nil lets the remote service choose
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		HTTPReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 30*time.Second),
		HTTPWriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 11*time.Minute),
		MaxRequestBytes:  getEnvInt64("MAX_REQUEST_BYTES", 20*1024*1024), // 20MB

		StaticDir:      getEnv("STATIC_DIR", "static"),
		AudioURLPrefix: getEnv("AUDIO_URL_PREFIX", "/static/audio"),

		APIKeyHash: getEnv("API_KEY_HASH", ""),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiAPIEndpoint: getEnv("GEMINI_API_ENDPOINT", ""),
		GeminiModelVision: getEnv("GEMINI_MODEL_VISION", "gemini-2.5-flash"),

		LLMProvider: getEnv("LLM_PROVIDER", "gemini"),
		LLMLevel:    strings.ToLower(getEnv("LLM_LEVEL", "high")),
		PromptsFile: getEnv("PROMPTS_FILE", ""),

		SynthBaseURL:  strings.TrimSuffix(getEnv("SYNTH_BASE_URL", ""), "/"),
		SynthAPIKey:   getEnv("SYNTH_API_KEY", ""),
		SynthTimeout:  getEnvDuration("SYNTH_TIMEOUT", 600*time.Second),
		SynthSeconds:  getEnvFloat("SYNTH_SECONDS", 10.0),
		SynthSteps:    getEnvInt("SYNTH_STEPS", 200),
		SynthGuidance: getEnvFloat("SYNTH_GUIDANCE", 3.2),
		SynthSeed:     getEnvInt64Ptr("SYNTH_SEED"),
	}
}

// AudioDir is the directory generated waveform files are written to.
func (c *Config) AudioDir() string {
	return filepath.Join(c.StaticDir, "audio")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "gemini", "gemini-legacy", "langchain":
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.LLMLevel {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("invalid LLM_LEVEL %q", c.LLMLevel)
	}
	if c.MaxRequestBytes <= 0 {
		return fmt.Errorf("MAX_REQUEST_BYTES must be positive")
	}
	if c.SynthTimeout <= 0 {
		return fmt.Errorf("SYNTH_TIMEOUT must be positive")
	}
	if c.SynthSteps <= 0 {
		return fmt.Errorf("SYNTH_STEPS must be positive")
	}
	if c.SynthSeconds <= 0 {
		return fmt.Errorf("SYNTH_SECONDS must be positive")
	}
	if c.StaticDir == "" {
		return fmt.Errorf("STATIC_DIR must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64Ptr returns nil when the variable is unset or not an integer.
func getEnvInt64Ptr(key string) *int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return &intVal
		}
	}
	return nil
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/soundscape/internal/auth"
	"github.com/snappy-loop/soundscape/internal/config"
	"github.com/snappy-loop/soundscape/internal/handlers"
	"github.com/snappy-loop/soundscape/internal/llm"
	"github.com/snappy-loop/soundscape/internal/prompts"
	"github.com/snappy-loop/soundscape/internal/services"
	"github.com/snappy-loop/soundscape/internal/synth"
)

func main() {
	// .env is optional; real environment variables win.
	envErr := godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if envErr != nil && !os.IsNotExist(envErr) {
		log.Warn().Err(envErr).Msg("Failed to load .env")
	}

	log.Info().Msg("Starting Soundscape API")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	registry, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load prompts")
	}

	ctx := context.Background()
	llmClient := llm.NewClient(ctx, llm.Options{
		APIKey:          cfg.GeminiAPIKey,
		Endpoint:        cfg.GeminiAPIEndpoint,
		Model:           cfg.GeminiModelVision,
		DefaultProvider: cfg.LLMProvider,
	})
	defer llmClient.Close()

	if cfg.SynthBaseURL == "" {
		log.Warn().Msg("SYNTH_BASE_URL not set, audio generation will fail")
	}
	synthClient := synth.NewClient(cfg.SynthBaseURL, cfg.SynthAPIKey, cfg.SynthTimeout)

	imageService := services.NewImageService(registry, llmClient, cfg.LLMProvider, llm.Level(cfg.LLMLevel))
	audioService, err := services.NewAudioService(synthClient, cfg.AudioDir(), cfg.AudioURLPrefix, services.SynthesisParams{
		Seconds:  cfg.SynthSeconds,
		Steps:    cfg.SynthSteps,
		Guidance: cfg.SynthGuidance,
		Seed:     cfg.SynthSeed,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audio service")
	}

	h := handlers.NewHandler(imageService, audioService, cfg.MaxRequestBytes)
	authService := auth.NewService(cfg.APIKeyHash)
	if !authService.Enabled() {
		log.Warn().Msg("API_KEY_HASH not set, /api is unauthenticated")
	}

	r := mux.NewRouter()
	r.Use(handlers.RequestID, handlers.AccessLog, handlers.Recover)
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", handlers.StaticFiles(cfg.StaticDir)))

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.Middleware)
	h.Register(r, api)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down API...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("API exited")
}

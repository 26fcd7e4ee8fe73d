package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cpa-document-processor/internal/config"
	"cpa-document-processor/internal/embedding"
	"cpa-document-processor/internal/server"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	cfg, err := config.Load(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	// The model handle is built once here and shared by every request.
	embedder, err := embedding.New(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	log.Info().Str("model", embedder.Model()).Msg("Embedding model loaded")

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.NewRouter(embedder),
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Embedding service starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

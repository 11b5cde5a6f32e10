package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pennyrush/pennyrush/go/internal/auth"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	signer, err := auth.NewSigner(os.Getenv("JWT_SECRET"), 24*time.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("JWT_SECRET environment variable is required")
	}

	pool, err := setupDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to database")
	}
	defer pool.Close()

	natsURL := getEnv("NATS_URL", nats.DefaultURL)
	nc, err := nats.Connect(natsURL,
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		log.Fatal().Err(err).Str("url", natsURL).Msg("connecting to NATS")
	}
	defer nc.Close()

	clock := clockwork.NewRealClock()
	services := setupServices(pool, nc, cfg, clock)

	if err := services.Gateway.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("starting gateway service")
	}
	defer services.Gateway.Stop()

	go func() {
		if err := services.Scheduler.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("scheduler stopped")
		}
	}()

	server := setupServer(services, signer)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}

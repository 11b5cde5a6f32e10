package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pennyrush/pennyrush/go/internal/dbconfig"
	"github.com/pennyrush/pennyrush/go/internal/outbox"
	"github.com/rs/zerolog/log"
)

// Standalone outbox relay: LISTENs for committed auction events and
// publishes them to JetStream.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	dbCfg := dbconfig.NewConfigFromEnv()
	db, err := sql.Open("postgres", dbCfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pubCfg := outbox.DefaultNATSPublisherConfig()
	if url := os.Getenv("NATS_URL"); url != "" {
		pubCfg.URL = url
	}
	publisher, err := outbox.NewNATSPublisher(ctx, pubCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create NATS publisher")
	}
	defer publisher.Close()

	listenerCfg := outbox.DefaultListenerConfig()
	listenerCfg.DatabaseURL = dbCfg.DSN()

	listener, err := outbox.NewListener(db, publisher, listenerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox listener")
	}

	if err := listener.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("outbox relay exited")
	}
}

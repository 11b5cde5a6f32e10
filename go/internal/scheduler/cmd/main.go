package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/pennyrush/pennyrush/go/internal/auctions"
	"github.com/pennyrush/pennyrush/go/internal/bidding"
	"github.com/pennyrush/pennyrush/go/internal/dbconfig"
	"github.com/pennyrush/pennyrush/go/internal/outbox"
	"github.com/pennyrush/pennyrush/go/internal/scheduler"
)

// botConfig is the standalone scheduler's slice of the policy file.
type botConfig struct {
	Bots scheduler.RosterConfig `yaml:"bots"`
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := dbconfig.NewPool(ctx, dbconfig.NewConfigFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to database")
	}
	defer pool.Close()

	strat, err := loadStrategy(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("loading bot config")
	}

	clock := clockwork.NewRealClock()
	outboxRepo := outbox.NewRepository(pool)
	auctionsApp := auctions.NewApp(auctions.NewRepository(pool), clock, 24*time.Hour)
	biddingApp := bidding.NewApp(bidding.NewRepository(pool, outboxRepo), clock, bidding.DefaultPolicy())

	sched := scheduler.New(auctionsApp, biddingApp, outbox.NewApp(outboxRepo), strat, scheduler.DefaultConfig(), clock)

	log.Info().Msg("scheduler starting")
	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("scheduler stopped")
	}
}

func loadStrategy(path string) (scheduler.Strategy, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return scheduler.NopStrategy{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg botConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(cfg.Bots.Roster) == 0 {
		return scheduler.NopStrategy{}, nil
	}
	return scheduler.NewRosterStrategy(cfg.Bots), nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

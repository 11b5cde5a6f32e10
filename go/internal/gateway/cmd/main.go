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
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pennyrush/pennyrush/go/internal/auctions"
	"github.com/pennyrush/pennyrush/go/internal/dbconfig"
	"github.com/pennyrush/pennyrush/go/internal/gateway"
)

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

	natsURL := getEnv("NATS_URL", nats.DefaultURL)
	nc, err := nats.Connect(natsURL,
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		log.Fatal().Err(err).Str("url", natsURL).Msg("connecting to NATS")
	}
	defer nc.Close()

	store := auctions.NewRepository(pool)
	svc := gateway.NewService(nc, store, clockwork.NewRealClock())
	if err := svc.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("starting gateway service")
	}
	defer svc.Stop()

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{getEnv("CORS_ORIGIN", "*")},
		AllowedMethods:   []string{http.MethodGet},
		AllowCredentials: true,
	}).Handler(mux)

	addr := ":" + getEnv("GATEWAY_PORT", "8081")
	server := &http.Server{Addr: addr, Handler: handler}

	go func() {
		log.Info().Str("addr", addr).Msg("gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("gateway server error")
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

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

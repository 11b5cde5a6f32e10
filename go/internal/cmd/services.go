package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"

	"github.com/pennyrush/pennyrush/go/internal/auctions"
	"github.com/pennyrush/pennyrush/go/internal/bidding"
	"github.com/pennyrush/pennyrush/go/internal/gateway"
	"github.com/pennyrush/pennyrush/go/internal/outbox"
	"github.com/pennyrush/pennyrush/go/internal/scheduler"
	"github.com/pennyrush/pennyrush/go/internal/users"
)

type Services struct {
	Auctions  *auctions.App
	Users     *users.App
	Bidding   *bidding.App
	Scheduler *scheduler.Scheduler
	Gateway   *gateway.Service
}

// setupServices wires the dependency chain: pool -> repositories -> apps
// -> scheduler/gateway.
func setupServices(pool *pgxpool.Pool, nc *nats.Conn, cfg *Config, clock clockwork.Clock) *Services {
	outboxRepo := outbox.NewRepository(pool)
	outboxApp := outbox.NewApp(outboxRepo)

	auctionsRepo := auctions.NewRepository(pool)
	auctionsApp := auctions.NewApp(auctionsRepo, clock, cfg.finishedWindow())

	usersRepo := users.NewRepository(pool)
	usersApp := users.NewApp(usersRepo)

	biddingRepo := bidding.NewRepository(pool, outboxRepo)
	biddingApp := bidding.NewApp(biddingRepo, clock, cfg.biddingPolicy())

	sched := scheduler.New(auctionsApp, biddingApp, outboxApp, cfg.botStrategy(), cfg.schedulerConfig(), clock)

	gatewaySvc := gateway.NewService(nc, auctionsRepo, clock)

	return &Services{
		Auctions:  auctionsApp,
		Users:     usersApp,
		Bidding:   biddingApp,
		Scheduler: sched,
		Gateway:   gatewaySvc,
	}
}

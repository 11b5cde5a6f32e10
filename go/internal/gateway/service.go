package gateway

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Service composes the connection manager, the timer engine and the
// event consumer into one push gateway.
type Service struct {
	manager   *ConnectionManager
	timers    *TimerEngine
	consumer  *EventConsumer
	wsHandler *WebSocketHandler

	cancel context.CancelFunc
}

func NewService(nc *nats.Conn, store AuctionLister, clock clockwork.Clock) *Service {
	manager := NewConnectionManager()
	timers := NewTimerEngine(store, manager, clock)
	return &Service{
		manager:   manager,
		timers:    timers,
		consumer:  NewEventConsumer(nc, manager, timers),
		wsHandler: NewWebSocketHandler(manager),
	}
}

// Timers exposes the countdown snapshot source for the REST layer.
func (s *Service) Timers() *TimerEngine {
	return s.timers
}

// Start launches the fan-out loop, the timer ticker and the stream consumer.
func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.manager.Run(runCtx)
	go func() {
		if err := s.timers.Run(runCtx); err != nil && runCtx.Err() == nil {
			log.Error().Err(err).Msg("timer engine stopped")
		}
	}()

	if err := s.consumer.Start(runCtx); err != nil {
		cancel()
		return err
	}

	log.Info().Msg("gateway service started")
	return nil
}

// Stop shuts the consumer and every client connection down.
func (s *Service) Stop() {
	s.consumer.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	log.Info().Msg("gateway service stopped")
}

// RegisterRoutes mounts the websocket endpoint on a mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/ws", s.wsHandler)
}

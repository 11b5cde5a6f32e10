package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/pennyrush/pennyrush/go/internal/events"
	"github.com/pennyrush/pennyrush/go/internal/outbox"
)

const (
	streamName      = "AUCTION_EVENTS"
	subjectWildcard = "auction.events.>"
	consumerName    = "gateway-fanout"
)

// EventConsumer subscribes to the auction event stream and turns each
// published envelope into a websocket broadcast plus a timer adjustment.
type EventConsumer struct {
	nc      *nats.Conn
	manager *ConnectionManager
	timers  *TimerEngine

	consumeCtx jetstream.ConsumeContext
}

func NewEventConsumer(nc *nats.Conn, manager *ConnectionManager, timers *TimerEngine) *EventConsumer {
	return &EventConsumer{
		nc:      nc,
		manager: manager,
		timers:  timers,
	}
}

// Start attaches a durable consumer to the auction event stream.
func (c *EventConsumer) Start(ctx context.Context) error {
	js, err := jetstream.New(c.nc)
	if err != nil {
		return fmt.Errorf("creating jetstream context: %w", err)
	}

	stream, err := js.Stream(ctx, streamName)
	if err != nil {
		return fmt.Errorf("looking up stream %s: %w", streamName, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: subjectWildcard,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckWait:       30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("creating consumer %s: %w", consumerName, err)
	}

	c.consumeCtx, err = consumer.Consume(c.handleMessage)
	if err != nil {
		return fmt.Errorf("starting consume loop: %w", err)
	}

	log.Info().Str("stream", streamName).Str("consumer", consumerName).Msg("event consumer started")
	return nil
}

// Stop drains the consume loop.
func (c *EventConsumer) Stop() {
	if c.consumeCtx != nil {
		c.consumeCtx.Stop()
	}
}

func (c *EventConsumer) handleMessage(msg jetstream.Msg) {
	var env outbox.Envelope
	if err := json.Unmarshal(msg.Data(), &env); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("unparseable event envelope")
		_ = msg.Ack()
		return
	}

	auctionID, err := uuid.Parse(env.AuctionID)
	if err != nil {
		log.Error().Err(err).Str("event_id", env.EventID).Msg("envelope has invalid auction id")
		_ = msg.Ack()
		return
	}

	c.timers.Apply(env.EventType, auctionID, env.Payload)

	event := &AuctionEvent{
		Type:      EventType(env.EventType),
		AuctionID: &auctionID,
		Payload:   env.Payload,
		Timestamp: env.Timestamp,
	}

	switch env.EventType {
	case events.TypeAuctionStarted, events.TypeAuctionEnded:
		// lifecycle changes matter to everyone watching the board
		c.manager.BroadcastAll(event)
	default:
		c.manager.BroadcastToAuction(auctionID, event)
	}

	if err := msg.Ack(); err != nil {
		log.Warn().Err(err).Str("event_id", env.EventID).Msg("acking event message")
	}
}

package gateway

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newRegisteredConnection(m *ConnectionManager) *Connection {
	conn := newConnection(nil)
	m.register(conn)
	return conn
}

func drainOne(t *testing.T, conn *Connection) *AuctionEvent {
	t.Helper()
	select {
	case event := <-conn.send:
		return event
	default:
		t.Fatal("expected a queued event")
		return nil
	}
}

func TestDeliver_ScopedToAuctionSubscribers(t *testing.T) {
	m := NewConnectionManager()
	subscriber := newRegisteredConnection(m)
	bystander := newRegisteredConnection(m)

	auctionID := uuid.New()
	m.Join(subscriber, auctionID)

	event := &AuctionEvent{Type: EventTypeBidPlaced, AuctionID: &auctionID, Timestamp: time.Now()}
	m.deliver(broadcastMessage{auctionID: &auctionID, event: event})

	got := drainOne(t, subscriber)
	require.Equal(t, EventTypeBidPlaced, got.Type)
	require.Empty(t, bystander.send)
}

func TestDeliver_AllReachesEveryConnection(t *testing.T) {
	m := NewConnectionManager()
	first := newRegisteredConnection(m)
	second := newRegisteredConnection(m)

	event := &AuctionEvent{Type: EventTypeTimerUpdate, Timestamp: time.Now()}
	m.deliver(broadcastMessage{event: event})

	require.Equal(t, EventTypeTimerUpdate, drainOne(t, first).Type)
	require.Equal(t, EventTypeTimerUpdate, drainOne(t, second).Type)
}

func TestLeave_StopsDelivery(t *testing.T) {
	m := NewConnectionManager()
	conn := newRegisteredConnection(m)

	auctionID := uuid.New()
	m.Join(conn, auctionID)
	m.Leave(conn, auctionID)

	event := &AuctionEvent{Type: EventTypeBidPlaced, AuctionID: &auctionID, Timestamp: time.Now()}
	m.deliver(broadcastMessage{auctionID: &auctionID, event: event})

	require.Empty(t, conn.send)
}

func TestUnregister_RemovesSubscriptions(t *testing.T) {
	m := NewConnectionManager()
	conn := newRegisteredConnection(m)

	auctionID := uuid.New()
	m.Join(conn, auctionID)
	require.Equal(t, 1, m.ConnectionCount())

	m.unregister(conn)
	require.Equal(t, 0, m.ConnectionCount())

	m.mu.RLock()
	_, ok := m.auctionSubs[auctionID]
	m.mu.RUnlock()
	require.False(t, ok)
}

func TestDeliver_DropsSlowConnection(t *testing.T) {
	m := NewConnectionManager()
	conn := newRegisteredConnection(m)

	event := &AuctionEvent{Type: EventTypeTimerUpdate, Timestamp: time.Now()}
	for i := 0; i < sendBufferSize; i++ {
		require.True(t, conn.trySend(event))
	}

	m.deliver(broadcastMessage{event: event})
	require.Equal(t, 0, m.ConnectionCount())
}

func TestHandleClientMessage_JoinAndLeave(t *testing.T) {
	m := NewConnectionManager()
	conn := newRegisteredConnection(m)
	auctionID := uuid.New()

	m.handleClientMessage(conn, []byte(`{"action":"join","auctionId":"`+auctionID.String()+`"}`))
	require.Equal(t, EventTypeSubscribed, drainOne(t, conn).Type)

	m.mu.RLock()
	_, joined := m.auctionSubs[auctionID][conn]
	m.mu.RUnlock()
	require.True(t, joined)

	m.handleClientMessage(conn, []byte(`{"action":"leave","auctionId":"`+auctionID.String()+`"}`))
	require.Equal(t, EventTypeUnsubscribed, drainOne(t, conn).Type)
}

func TestHandleClientMessage_Invalid(t *testing.T) {
	m := NewConnectionManager()
	conn := newRegisteredConnection(m)

	m.handleClientMessage(conn, []byte(`not json`))
	require.Equal(t, EventTypeError, drainOne(t, conn).Type)

	m.handleClientMessage(conn, []byte(`{"action":"join","auctionId":"nope"}`))
	require.Equal(t, EventTypeError, drainOne(t, conn).Type)

	m.handleClientMessage(conn, []byte(`{"action":"shout"}`))
	require.Equal(t, EventTypeError, drainOne(t, conn).Type)
}

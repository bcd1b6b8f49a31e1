package source

import (
	"context"
	"testing"
	"time"

	"github.com/erilali/marketrelay/internal/bus"
	"github.com/erilali/marketrelay/internal/logger"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNATSRelayForwardsJSON(t *testing.T) {
	src := NewNATS(bus.Config{}, "market.>", logger.Nop())
	sink := &recordingSink{}

	ok := src.relay(&nats.Msg{Subject: "market.ETH-usd.trades", Data: []byte(`{"price":1800.5}`)}, sink)
	require.True(t, ok)

	events := sink.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "market.ETH-usd.trades", events[0].Subject)
	assert.JSONEq(t, `{"price":1800.5}`, string(events[0].Data))
	assert.NotZero(t, events[0].Timestamp)
}

func TestNATSRelayDropsInvalidPayload(t *testing.T) {
	src := NewNATS(bus.Config{}, "market.>", logger.Nop())
	sink := &recordingSink{}

	for _, payload := range []string{"", "not json", `{"price":`} {
		assert.False(t, src.relay(&nats.Msg{Subject: "s", Data: []byte(payload)}, sink), payload)
	}
	assert.Empty(t, sink.snapshot())
}

func TestNATSRunFailsWithoutServer(t *testing.T) {
	src := NewNATS(bus.Config{URL: "nats://127.0.0.1:1", MaxReconnects: 0}, "market.>", logger.Nop())
	assert.Equal(t, "disconnected", src.Status())

	err := src.Run(context.Background(), &recordingSink{})
	assert.Error(t, err)
	assert.Equal(t, "disconnected", src.Status())
}

func TestNATSConsumeStopsWhenConnectionCloses(t *testing.T) {
	src := NewNATS(bus.Config{}, "market.>", logger.Nop())
	sink := &recordingSink{}
	msgs := make(chan *nats.Msg, 1)
	closed := make(chan struct{})

	msgs <- &nats.Msg{Subject: "market.btc-usd.trades", Data: []byte(`{"price":1}`)}
	done := make(chan error, 1)
	go func() { done <- src.consume(context.Background(), msgs, closed, sink) }()

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	close(closed)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrConnectionClosed)
	case <-time.After(time.Second):
		t.Fatal("consume did not return after close")
	}
}

func TestNATSConsumeStopsOnCancel(t *testing.T) {
	src := NewNATS(bus.Config{}, "market.>", logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, src.consume(ctx, make(chan *nats.Msg), make(chan struct{}), &recordingSink{}))
}

package tape

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erilali/marketrelay/internal/logger"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	now := time.Unix(100, 0)

	msg, ok := ParseFrame([]byte(`{"type":"subscription_confirmed","subject":"s","time":"2024-01-01T00:00:00Z"}`), now)
	require.True(t, ok)
	assert.Equal(t, ConfirmedMsg{Subject: "s"}, msg)

	msg, ok = ParseFrame([]byte(`{"subject":"s","data":{"price":30000.5,"size":0.1,"side":"buy","exchange":"nex","pair":"BTC-USD"},"timestamp":1700000000000}`), now)
	require.True(t, ok)
	tm := msg.(TradeMsg)
	assert.Equal(t, "s", tm.Print.Subject)
	assert.Equal(t, 30000.5, tm.Print.Trade.Price)
	assert.Equal(t, int64(1700000000000), tm.Print.At.UnixMilli())

	msg, ok = ParseFrame([]byte(`{"subject":"s","data":{"price":1,"side":"sell"}}`), now)
	require.True(t, ok)
	assert.Equal(t, now, msg.(TradeMsg).Print.At)

	for _, frame := range []string{`nope`, `{"subject":"s"}`, `{"subject":"s","data":{"bid":1}}`, `{"subject":"s","data":[1,2]}`} {
		_, ok := ParseFrame([]byte(frame), now)
		assert.False(t, ok, frame)
	}
}

// relayStub confirms the first subscribe and then sends one trade.
func relayStub(t *testing.T, subscribed chan<- string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req map[string]string
		if json.Unmarshal(data, &req) == nil {
			subscribed <- req["subject"]
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscription_confirmed","subject":"`+req["subject"]+`","time":"x"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"subject":"market.btc-usd.trades","data":{"price":31000,"size":0.2,"side":"buy"},"timestamp":1}`))
		conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedSubscribesAndStreams(t *testing.T) {
	subscribed := make(chan string, 1)
	srv := relayStub(t, subscribed)

	cfg := DefaultFeedConfig()
	cfg.URL = "ws" + strings.TrimPrefix(srv.URL, "http")
	cfg.Subject = "market.btc-usd.trades"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan interface{}, 16)
	done := make(chan error, 1)
	go func() { done <- NewFeed(cfg, logger.Nop()).Run(ctx, out) }()

	assert.Equal(t, "market.btc-usd.trades", <-subscribed)

	var got []interface{}
	require.Eventually(t, func() bool {
		select {
		case msg := <-out:
			got = append(got, msg)
		default:
		}
		return len(got) >= 4
	}, 2*time.Second, time.Millisecond)

	assert.Equal(t, StatusMsg{State: StateConnecting}, got[0])
	assert.Equal(t, StatusMsg{State: StateConnected}, got[1])
	assert.Equal(t, ConfirmedMsg{Subject: "market.btc-usd.trades"}, got[2])
	assert.Equal(t, 31000.0, got[3].(TradeMsg).Print.Trade.Price)

	cancel()
	assert.NoError(t, <-done)
}

func TestFeedGivesUpAfterMaxAttempts(t *testing.T) {
	cfg := FeedConfig{URL: "ws://127.0.0.1:1/ws", Subject: "*", MaxAttempts: 2, BaseDelay: time.Millisecond}
	out := make(chan interface{}, 16)

	err := NewFeed(cfg, logger.Nop()).Run(context.Background(), out)
	assert.ErrorContains(t, err, "giving up after 2 attempts")

	var states []State
	for msg := range out {
		states = append(states, msg.(StatusMsg).State)
	}
	assert.Equal(t, []State{StateConnecting, StateReconnecting, StateReconnecting, StateFailed}, states)
}

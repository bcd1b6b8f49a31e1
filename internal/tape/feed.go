// Package tape is a terminal subscriber for the relay: it follows one
// subject and renders the incoming trades as a scrolling tape.
package tape

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erilali/marketrelay/internal/logger"
	"github.com/erilali/marketrelay/internal/message"
	"github.com/gorilla/websocket"
)

type State int

const (
	StateConnecting State = iota
	StateConnected
	StateSubscribed
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// StatusMsg reports a change in the feed connection.
type StatusMsg struct {
	State   State
	Attempt int
	Err     error
}

// ConfirmedMsg is sent when the relay acknowledges the subscription.
type ConfirmedMsg struct {
	Subject string
}

// TradeMsg carries one decoded trade event.
type TradeMsg struct {
	Print Print
}

type FeedConfig struct {
	URL         string
	Subject     string
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultFeedConfig follows every subject on a local relay.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		URL:         "ws://localhost:3030/ws",
		Subject:     message.Wildcard,
		MaxAttempts: 5,
		BaseDelay:   time.Second,
	}
}

// Feed keeps a subscription open against the relay and pushes updates onto
// a channel. After a drop it waits BaseDelay*attempt and retries, giving up
// after MaxAttempts consecutive failures.
type Feed struct {
	cfg    FeedConfig
	dialer *websocket.Dialer
	logger *logger.Logger
}

// NewFeed creates a feed; nothing is dialed until Run.
func NewFeed(cfg FeedConfig, log *logger.Logger) *Feed {
	return &Feed{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		logger: log,
	}
}

// Run streams updates into out until ctx is done or reconnects are
// exhausted. out is closed on return.
func (f *Feed) Run(ctx context.Context, out chan<- interface{}) error {
	defer close(out)

	attempts := 0
	for {
		if attempts == 0 {
			f.emit(ctx, out, StatusMsg{State: StateConnecting})
		}
		err := f.session(ctx, out, func() { attempts = 0 })
		if ctx.Err() != nil {
			return nil
		}

		if attempts >= f.cfg.MaxAttempts {
			f.logger.Errorf("Failed to reconnect after %d attempts", f.cfg.MaxAttempts)
			f.emit(ctx, out, StatusMsg{State: StateFailed, Attempt: attempts, Err: err})
			return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
		}
		attempts++
		delay := f.cfg.BaseDelay * time.Duration(attempts)
		f.logger.Warnf("Reconnecting (attempt %d/%d) in %s: %v", attempts, f.cfg.MaxAttempts, delay, err)
		f.emit(ctx, out, StatusMsg{State: StateReconnecting, Attempt: attempts, Err: err})

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// session runs one connection. connected is called once the subscribe
// frame has been written.
func (f *Feed) session(ctx context.Context, out chan<- interface{}, connected func()) error {
	conn, _, err := f.dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.cfg.URL, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sub, err := json.Marshal(map[string]string{"action": message.ActionSubscribe, "subject": f.cfg.Subject})
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}
	connected()
	f.logger.Infof("Connected to %s, subscribing to %s", f.cfg.URL, f.cfg.Subject)
	f.emit(ctx, out, StatusMsg{State: StateConnected})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		msg, ok := ParseFrame(data, time.Now())
		if !ok {
			f.logger.Debugf("Skipping frame: %s", data)
			continue
		}
		f.emit(ctx, out, msg)
	}
}

func (f *Feed) emit(ctx context.Context, out chan<- interface{}, msg interface{}) {
	select {
	case out <- msg:
	case <-ctx.Done():
	}
}

type inboundFrame struct {
	Type      string          `json:"type"`
	Subject   string          `json:"subject"`
	Data      json.RawMessage `json:"data"`
	Timestamp uint64          `json:"timestamp"`
}

// ParseFrame decodes a relay frame into a ConfirmedMsg or TradeMsg. Frames
// whose data is not a trade are skipped.
func ParseFrame(data []byte, now time.Time) (interface{}, bool) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, false
	}
	if frame.Type == message.TypeSubscriptionConfirm {
		return ConfirmedMsg{Subject: frame.Subject}, true
	}
	if len(frame.Data) == 0 {
		return nil, false
	}

	var trade message.Trade
	if err := json.Unmarshal(frame.Data, &trade); err != nil || trade.Price <= 0 {
		return nil, false
	}
	at := now
	if frame.Timestamp > 0 {
		at = time.UnixMilli(int64(frame.Timestamp))
	}
	return TradeMsg{Print: Print{Subject: frame.Subject, Trade: trade, At: at}}, true
}

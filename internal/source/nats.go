package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/erilali/marketrelay/internal/bus"
	"github.com/erilali/marketrelay/internal/logger"
	"github.com/erilali/marketrelay/internal/message"
	"github.com/nats-io/nats.go"
)

const natsBacklog = 1024

// ErrConnectionClosed is returned by NATS.Run when the connection is closed
// and will not reconnect.
var ErrConnectionClosed = errors.New("nats connection closed")

// NATS relays every message on a NATS subject pattern. The NATS subject of
// each message becomes the event subject unchanged.
type NATS struct {
	cfg     bus.Config
	subject string
	logger  *logger.Logger
	conn    atomic.Pointer[nats.Conn]
}

// NewNATS creates a source that subscribes to subject once Run connects.
func NewNATS(cfg bus.Config, subject string, log *logger.Logger) *NATS {
	return &NATS{cfg: cfg, subject: subject, logger: log}
}

func (n *NATS) Name() string { return "nats" }

func (n *NATS) Status() string {
	nc := n.conn.Load()
	if nc == nil {
		return "disconnected"
	}
	return nc.Status().String()
}

// Run connects, subscribes and relays until ctx is done or the connection
// closes for good.
func (n *NATS) Run(ctx context.Context, sink Sink) error {
	nc, err := bus.Connect(n.cfg, n.logger)
	if err != nil {
		return err
	}
	n.conn.Store(nc)
	defer func() {
		n.conn.Store(nil)
		nc.Close()
	}()

	// Closed fires once reconnects are exhausted.
	closed := make(chan struct{})
	var closeOnce sync.Once
	nc.SetClosedHandler(func(_ *nats.Conn) {
		n.logger.Info("NATS connection closed")
		closeOnce.Do(func() { close(closed) })
	})
	if nc.IsClosed() {
		closeOnce.Do(func() { close(closed) })
	}

	msgs := make(chan *nats.Msg, natsBacklog)
	sub, err := nc.ChanSubscribe(n.subject, msgs)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", n.subject, err)
	}
	defer sub.Unsubscribe()

	n.logger.LogEvent("info", "source_started", "", n.subject)
	defer n.logger.LogEvent("info", "source_stopped", "", n.subject)

	return n.consume(ctx, msgs, closed, sink)
}

// consume relays msgs until ctx is done or the connection is closed for good.
func (n *NATS) consume(ctx context.Context, msgs <-chan *nats.Msg, closed <-chan struct{}, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			return ErrConnectionClosed
		case msg := <-msgs:
			n.relay(msg, sink)
		}
	}
}

func (n *NATS) relay(msg *nats.Msg, sink Sink) bool {
	if !json.Valid(msg.Data) {
		n.logger.Warnf("Dropping non-JSON message on %s (%d bytes)", msg.Subject, len(msg.Data))
		return false
	}
	sink.Broadcast(message.NewEvent(msg.Subject, json.RawMessage(msg.Data)))
	return true
}

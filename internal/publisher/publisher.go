// Package publisher feeds synthetic trades into NATS for a relay to pick up.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erilali/marketrelay/internal/logger"
	"github.com/erilali/marketrelay/internal/source"
	"github.com/nats-io/nats.go"
)

// Target is where trades are published.
type Target interface {
	Publish(subject string, data []byte) error
}

type coreTarget struct{ nc *nats.Conn }

func (t coreTarget) Publish(subject string, data []byte) error {
	return t.nc.Publish(subject, data)
}

type streamTarget struct{ js nats.JetStreamContext }

func (t streamTarget) Publish(subject string, data []byte) error {
	_, err := t.js.Publish(subject, data)
	return err
}

// NewCoreTarget publishes fire-and-forget on a plain NATS connection.
func NewCoreTarget(nc *nats.Conn) Target { return coreTarget{nc: nc} }

// NewStreamTarget publishes through JetStream and waits for the ack.
func NewStreamTarget(js nats.JetStreamContext) Target { return streamTarget{js: js} }

type Publisher struct {
	target   Target
	subject  string
	interval time.Duration
	walk     *source.Walk
	logger   *logger.Logger
}

// New creates a publisher that sends one walk step to target per interval.
func New(target Target, subject string, interval time.Duration, walk *source.Walk, log *logger.Logger) *Publisher {
	return &Publisher{
		target:   target,
		subject:  subject,
		interval: interval,
		walk:     walk,
		logger:   log,
	}
}

// Run publishes one trade per interval until ctx is done. Failed publishes
// are logged and skipped.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Infof("Publishing trades to %s every %s", p.subject, p.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := p.PublishOnce(now); err != nil {
				p.logger.Errorf("%v", err)
			}
		}
	}
}

// PublishOnce publishes a single trade stamped with now.
func (p *Publisher) PublishOnce(now time.Time) error {
	trade := p.walk.Next()
	trade.Timestamp = uint64(now.UnixMilli())

	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("failed to marshal trade: %w", err)
	}
	if err := p.target.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.subject, err)
	}
	p.logger.Infof("Published: %s $%.2f | Size: %.4f | Side: %s", trade.Pair, trade.Price, trade.Size, trade.Side)
	return nil
}

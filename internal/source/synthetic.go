package source

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/erilali/marketrelay/internal/logger"
	"github.com/erilali/marketrelay/internal/message"
)

const (
	minTradeSize = 0.001
	maxTradeSize = 1.0
)

type WalkConfig struct {
	InitialPrice float64
	PriceJitter  float64
	Volatility   float64 // max percent move per step
	Exchange     string
	Pair         string
}

// Walk is a random-walk price generator. It is not safe for concurrent use.
type Walk struct {
	cfg   WalkConfig
	rng   *rand.Rand
	price float64
}

// NewWalk starts the walk at InitialPrice plus up to PriceJitter.
func NewWalk(cfg WalkConfig, rng *rand.Rand) *Walk {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Walk{
		cfg:   cfg,
		rng:   rng,
		price: cfg.InitialPrice + rng.Float64()*cfg.PriceJitter,
	}
}

func (w *Walk) Price() float64 { return w.price }

// Next moves the price by a uniform step in [-Volatility, +Volatility]
// percent and returns a trade at the new price.
func (w *Walk) Next() message.Trade {
	change := (w.rng.Float64()*2 - 1) * w.cfg.Volatility
	w.price *= 1 + change/100

	side := "sell"
	if w.rng.Float64() < 0.5 {
		side = "buy"
	}
	return message.Trade{
		Price:    w.price,
		Size:     minTradeSize + w.rng.Float64()*(maxTradeSize-minTradeSize),
		Side:     side,
		Exchange: w.cfg.Exchange,
		Pair:     w.cfg.Pair,
	}
}

// Simulator emits one synthetic trade per tick.
type Simulator struct {
	subject  string
	interval time.Duration
	walk     *Walk
	logger   *logger.Logger
	ticks    atomic.Uint64
}

// NewSimulator creates a source that emits one walk step per interval on subject.
func NewSimulator(subject string, interval time.Duration, walk *Walk, log *logger.Logger) *Simulator {
	return &Simulator{
		subject:  subject,
		interval: interval,
		walk:     walk,
		logger:   log,
	}
}

func (s *Simulator) Name() string { return "simulate" }

func (s *Simulator) Status() string {
	if s.ticks.Load() == 0 {
		return "starting"
	}
	return "ticking"
}

// Run ticks until ctx is done.
func (s *Simulator) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.LogEvent("info", "source_started", "", s.subject)
	defer s.logger.LogEvent("info", "source_stopped", "", s.subject)

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.Tick(now, sink)
		}
	}
}

// Tick generates one trade and hands it to sink.
func (s *Simulator) Tick(now time.Time, sink Sink) int {
	trade := s.walk.Next()
	data, err := json.Marshal(trade)
	if err != nil {
		s.logger.Errorf("Failed to marshal trade: %v", err)
		return 0
	}
	s.ticks.Add(1)
	delivered := sink.Broadcast(message.Event{
		Subject:   s.subject,
		Data:      data,
		Timestamp: uint64(now.UnixMilli()),
	})
	s.logger.Debugf("Trade %s $%.2f size %.4f -> %d clients", trade.Side, trade.Price, trade.Size, delivered)
	return delivered
}

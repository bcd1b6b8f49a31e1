// Package hub owns the connection registry: which subscribers are live, what
// each one is subscribed to, and the fan-out of events onto their queues.
package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/erilali/marketrelay/internal/logger"
	"github.com/erilali/marketrelay/internal/message"
	"github.com/google/uuid"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrSendBufferFull = errors.New("send buffer full")
	ErrClientClosed   = errors.New("client closed")
)

// Options tune the per-connection policy.
type Options struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration // must be less than PongWait
	MaxMessageSize int64
}

// DefaultOptions returns the per-connection policy used when none is configured.
func DefaultOptions() Options {
	return Options{
		SendBuffer:     256,
		WriteTimeout:   10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.SendBuffer <= 0 {
		o.SendBuffer = def.SendBuffer
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = def.WriteTimeout
	}
	if o.PongWait <= 0 {
		o.PongWait = def.PongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = def.MaxMessageSize
	}
	return o
}

// Hub is the connection registry. A single RWMutex guards the client map
// and every client's subscription list; frames are always enqueued outside
// the read lock, and only non-blocking sends happen under the write lock.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	opts      Options
	logger    *logger.Logger
	startTime time.Time
	newID     func() string
	now       func() time.Time
}

// NewHub creates an empty registry. Zero or negative option values fall back
// to DefaultOptions.
func NewHub(opts Options, logger *logger.Logger) *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		opts:      opts.withDefaults(),
		logger:    logger,
		startTime: time.Now(),
		newID:     func() string { return "client-" + uuid.NewString() },
		now:       time.Now,
	}
}

// Register stores the client under a freshly allocated identity and returns it.
func (h *Hub) Register(client *Client) string {
	h.mu.Lock()
	id := h.newID()
	for {
		if _, taken := h.clients[id]; !taken {
			break
		}
		id = h.newID()
	}
	client.ID = id
	h.clients[id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.WithField("clients", total).LogEvent("info", "client_connected", id, "")
	return id
}

// Unregister removes the client and closes it. Unknown ids are a no-op, so
// every exit path may call it.
func (h *Hub) Unregister(id string) bool {
	h.mu.Lock()
	client, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return false
	}
	client.Close()
	h.logger.WithField("clients", total).LogEvent("info", "client_disconnected", id, "")
	return true
}

// AddSubscription appends subject to the client's list. Duplicates are kept.
// Reports false when the client is already gone.
func (h *Hub) AddSubscription(id, subject string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[id]
	if !ok {
		return false
	}
	client.subscriptions = append(client.subscriptions, subject)
	return true
}

// Subscribe adds the subscription and queues the confirmation in one step, so
// the confirmation always precedes any data frame the new subscription
// admits.
func (h *Hub) Subscribe(id, subject string) error {
	frame, err := json.Marshal(message.NewConfirmation(subject, h.now()))
	if err != nil {
		return err
	}

	h.mu.Lock()
	client, ok := h.clients[id]
	if !ok {
		h.mu.Unlock()
		return ErrClientNotFound
	}
	client.subscriptions = append(client.subscriptions, subject)
	err = client.enqueue(frame)
	h.mu.Unlock()

	if err != nil {
		return err
	}
	h.logger.LogEvent("info", "subscribed", id, subject)
	return nil
}

// Broadcast delivers ev to every client whose subscriptions match at the
// moment of the scan, and returns how many queues accepted it. A client whose
// queue is full is closed; its reader then unregisters it.
func (h *Hub) Broadcast(ev message.Event) int {
	frame, err := json.Marshal(ev)
	if err != nil {
		h.logger.Errorf("Error marshaling event on %s: %v", ev.Subject, err)
		return 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		if Subscribed(client.subscriptions, ev.Subject) {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, client := range targets {
		if err := client.enqueue(frame); err != nil {
			if errors.Is(err, ErrSendBufferFull) {
				h.logger.LogEvent("warn", "send_failed", client.ID, err.Error())
				client.Close()
			}
			continue
		}
		delivered++
	}
	return delivered
}

// Subscriptions returns a copy of the client's subscription list.
func (h *Hub) Subscriptions(id string) ([]string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[id]
	if !ok {
		return nil, false
	}
	out := make([]string, len(client.subscriptions))
	copy(out, client.subscriptions)
	return out, true
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriptionCount tallies live subscriptions per subject.
func (h *Hub) SubscriptionCount() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	counts := make(map[string]int)
	for _, client := range h.clients {
		for _, s := range client.subscriptions {
			counts[s]++
		}
	}
	return counts
}

// Uptime returns how long the hub has been running.
func (h *Hub) Uptime() time.Duration {
	return time.Since(h.startTime)
}

// CloseAll closes every live client. Their readers unregister them.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.Close()
	}
}

// Package source produces market-data events for the relay to fan out.
package source

import (
	"context"

	"github.com/erilali/marketrelay/internal/message"
)

// Sink accepts events for delivery. *hub.Hub satisfies it.
type Sink interface {
	Broadcast(ev message.Event) int
}

// Source runs until ctx is cancelled or it fails. A returned error ends only
// the source, never the server.
type Source interface {
	Name() string
	Run(ctx context.Context, sink Sink) error
}

// Statuser is implemented by sources that can report their health.
type Statuser interface {
	Status() string
}

package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a connected subscriber.
//
// subscriptions is guarded by the owning Hub's mutex. send is never closed;
// done signals the writer to stop instead, so a late broadcast can never
// panic on a closed channel.
type Client struct {
	ID          string
	Conn        *websocket.Conn
	ConnectedAt time.Time

	send          chan []byte
	done          chan struct{}
	closeOnce     sync.Once
	subscriptions []string
}

// NewClient allocates a client with an outbound queue of bufferSize frames.
// conn may be nil for clients driven directly through the Hub API.
func NewClient(conn *websocket.Conn, bufferSize int) *Client {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Client{
		Conn:        conn,
		ConnectedAt: time.Now(),
		send:        make(chan []byte, bufferSize),
		done:        make(chan struct{}),
	}
}

// Send exposes the outbound queue to the writer.
func (c *Client) Send() <-chan []byte { return c.send }

// Done is closed once the client starts tearing down.
func (c *Client) Done() <-chan struct{} { return c.done }

// enqueue never blocks.
func (c *Client) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close moves the client into Closing. The socket is closed so a blocked
// reader wakes up and unregisters. Safe to call from any goroutine, any
// number of times.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

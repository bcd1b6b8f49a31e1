package hub

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Subscribers are unauthenticated browsers on any origin.
		return true
	},
}

// ServeWs upgrades the HTTP connection and starts the client's pumps.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	client := NewClient(conn, h.opts.SendBuffer)
	h.Register(client)
	go h.WritePump(client)
	go h.ReadPump(client)
}

// ReadPump reads frames until the socket fails, then unregisters the client.
func (h *Hub) ReadPump(client *Client) {
	defer h.Unregister(client.ID)

	if h.opts.MaxMessageSize > 0 {
		client.Conn.SetReadLimit(h.opts.MaxMessageSize)
	}
	client.Conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
		return nil
	})

	for {
		messageType, data, err := client.Conn.ReadMessage()
		if err != nil {
			if !client.Closed() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.LogEvent("error", "read_error", client.ID, err.Error())
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if err := h.HandleClientMessage(client, data); err != nil {
			h.logger.LogEvent("warn", "send_failed", client.ID, err.Error())
			return
		}
	}
}

// WritePump drains the client's queue onto the socket in order, one frame per
// message, and keeps the peer alive with pings.
func (h *Hub) WritePump(client *Client) {
	ticker := time.NewTicker(h.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case frame := <-client.Send():
			client.Conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := client.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logger.Debugf("Write to %s failed: %v", client.ID, err)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.Done():
			return
		}
	}
}

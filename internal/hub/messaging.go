package hub

import (
	"errors"

	"github.com/erilali/marketrelay/internal/message"
)

// HandleClientMessage dispatches one inbound text frame. Malformed or unknown
// frames are ignored. A non-nil error means the client's queue rejected the
// confirmation and the connection should close.
func (h *Hub) HandleClientMessage(client *Client, data []byte) error {
	ctrl := message.ParseControl(data)
	switch ctrl.Kind {
	case message.ControlSubscribe:
		err := h.Subscribe(client.ID, ctrl.Subject)
		if errors.Is(err, ErrClientNotFound) {
			return nil
		}
		return err
	default:
		h.logger.Debugf("Ignoring frame from %s (%d bytes)", client.ID, len(data))
		return nil
	}
}

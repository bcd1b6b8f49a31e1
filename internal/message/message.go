// Contains the frames exchanged between the relay and its subscribers.
package message

import (
	"encoding/json"
	"time"
)

// Wildcard is the subscription subject that matches every event.
const Wildcard = "*"

const (
	ActionSubscribe         = "subscribe"
	TypeSubscriptionConfirm = "subscription_confirmed"
)

// Event is one market-data event on its way to subscribers. It is also the
// outbound broadcast frame.
type Event struct {
	Subject   string          `json:"subject"`
	Data      json.RawMessage `json:"data"`
	Timestamp uint64          `json:"timestamp,omitempty"` // millis since epoch
}

// NewEvent stamps an event with the current time.
func NewEvent(subject string, data json.RawMessage) Event {
	return Event{
		Subject:   subject,
		Data:      data,
		Timestamp: uint64(time.Now().UnixMilli()),
	}
}

// Confirmation acknowledges a subscribe request.
type Confirmation struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Time    string `json:"time"`
}

// NewConfirmation acknowledges subject, stamped with now in UTC.
func NewConfirmation(subject string, now time.Time) Confirmation {
	return Confirmation{
		Type:    TypeSubscriptionConfirm,
		Subject: subject,
		Time:    now.UTC().Format(time.RFC3339Nano),
	}
}

// Trade is the payload of a synthetic trade event.
type Trade struct {
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	Side      string  `json:"side"`
	Exchange  string  `json:"exchange"`
	Pair      string  `json:"pair"`
	Timestamp uint64  `json:"timestamp,omitempty"`
}

type ControlKind int

const (
	ControlUnknown ControlKind = iota
	ControlSubscribe
)

// Control is an inbound client request.
type Control struct {
	Kind    ControlKind
	Subject string
}

type inboundFrame struct {
	Action  *string `json:"action"`
	Subject *string `json:"subject"`
}

// ParseControl never fails: anything that is not a well-formed subscribe
// request comes back as ControlUnknown.
func ParseControl(data []byte) Control {
	var in inboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		return Control{Kind: ControlUnknown}
	}
	if in.Action == nil || *in.Action != ActionSubscribe || in.Subject == nil {
		return Control{Kind: ControlUnknown}
	}
	return Control{Kind: ControlSubscribe, Subject: *in.Subject}
}

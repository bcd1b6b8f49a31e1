package message

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseControl(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Control
	}{
		{"subscribe", `{"action":"subscribe","subject":"market.btc-usd.trades"}`, Control{Kind: ControlSubscribe, Subject: "market.btc-usd.trades"}},
		{"wildcard", `{"action":"subscribe","subject":"*"}`, Control{Kind: ControlSubscribe, Subject: "*"}},
		{"extra fields", `{"action":"subscribe","subject":"a","id":7}`, Control{Kind: ControlSubscribe, Subject: "a"}},
		{"plain text", `hello`, Control{Kind: ControlUnknown}},
		{"unrelated object", `{"foo":1}`, Control{Kind: ControlUnknown}},
		{"other action", `{"action":"unsubscribe","subject":"a"}`, Control{Kind: ControlUnknown}},
		{"action case", `{"action":"Subscribe","subject":"a"}`, Control{Kind: ControlUnknown}},
		{"missing subject", `{"action":"subscribe"}`, Control{Kind: ControlUnknown}},
		{"numeric subject", `{"action":"subscribe","subject":42}`, Control{Kind: ControlUnknown}},
		{"array", `[1,2,3]`, Control{Kind: ControlUnknown}},
		{"null", `null`, Control{Kind: ControlUnknown}},
		{"empty", ``, Control{Kind: ControlUnknown}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseControl([]byte(tc.in)))
		})
	}
}

func TestEventFrameShape(t *testing.T) {
	ev := Event{Subject: "s", Data: json.RawMessage(`{"price":1.5}`)}
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"subject":"s","data":{"price":1.5}}`, string(b))

	ev.Timestamp = 1700000000000
	b, err = json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"subject":"s","data":{"price":1.5},"timestamp":1700000000000}`, string(b))
}

func TestConfirmationFrameShape(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b, err := json.Marshal(NewConfirmation("market.btc-usd.trades", now))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"subscription_confirmed","subject":"market.btc-usd.trades","time":"2024-05-01T12:00:00Z"}`, string(b))
}

func TestNewEventStampsTime(t *testing.T) {
	before := uint64(time.Now().UnixMilli())
	ev := NewEvent("s", json.RawMessage(`1`))
	assert.GreaterOrEqual(t, ev.Timestamp, before)
}

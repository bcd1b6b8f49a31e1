package tape

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/erilali/marketrelay/internal/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trade(price float64, side string) TradeMsg {
	return TradeMsg{Print: Print{
		Subject: "market.btc-usd.trades",
		Trade:   message.Trade{Price: price, Size: 0.5, Side: side, Exchange: "nex", Pair: "BTC-USD"},
		At:      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}}
}

func TestModelTracksTrades(t *testing.T) {
	m := NewModel(make(chan interface{}), "market.btc-usd.trades", 10)

	_, cmd := m.Update(trade(100, "buy"))
	assert.NotNil(t, cmd)
	m.Update(trade(110, "sell"))

	assert.Equal(t, 2, m.trades)
	assert.Equal(t, 2, m.tape.Len())
	assert.InDelta(t, 10.0, m.Change(), 1e-9)

	view := m.View()
	assert.Contains(t, view, "$110.00")
	assert.Contains(t, view, "+10.00%")
	assert.Contains(t, view, "BUY")
	assert.Contains(t, view, "SELL")
}

func TestModelStatusTransitions(t *testing.T) {
	m := NewModel(make(chan interface{}), "*", 10)
	assert.Contains(t, m.View(), "connecting")

	m.Update(StatusMsg{State: StateReconnecting, Attempt: 2, Err: errors.New("dial refused")})
	view := m.View()
	assert.Contains(t, view, "reconnecting (2)")
	assert.Contains(t, view, "dial refused")

	m.Update(ConfirmedMsg{Subject: "*"})
	assert.Equal(t, StateSubscribed, m.status.State)
	assert.Contains(t, m.View(), "subscribed")

	m.Update(feedClosedMsg{})
	assert.Contains(t, m.View(), "closed")
}

func TestModelKeys(t *testing.T) {
	m := NewModel(make(chan interface{}), "*", 10)
	m.Update(trade(100, "buy"))

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Equal(t, 0, m.tape.Len())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelListenEndsOnClosedFeed(t *testing.T) {
	updates := make(chan interface{}, 1)
	m := NewModel(updates, "*", 10)

	updates <- ConfirmedMsg{Subject: "*"}
	assert.Equal(t, ConfirmedMsg{Subject: "*"}, m.listen()())

	close(updates)
	assert.Equal(t, feedClosedMsg{}, m.listen()())
}

func TestModelWindowSize(t *testing.T) {
	m := NewModel(make(chan interface{}), "*", 100)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	assert.Equal(t, 21, m.rows)
}

package tape

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/erilali/marketrelay/internal/logger"
)

const defaultRows = 20

// feedClosedMsg is sent once the feed channel is drained.
type feedClosedMsg struct{}

// Model is the tape's bubbletea model.
type Model struct {
	updates <-chan interface{}
	subject string

	tape    *Tape
	rows    int
	first   float64
	last    float64
	trades  int
	status  StatusMsg
	feedEnd bool

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width  int
	height int
}

// NewModel renders updates from a Feed for subject.
func NewModel(updates <-chan interface{}, subject string, capacity int) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = warnStyle
	return &Model{
		updates: updates,
		subject: subject,
		tape:    NewTape(capacity),
		rows:    defaultRows,
		status:  StatusMsg{State: StateConnecting},
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: sp,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *Model) listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.updates
		if !ok {
			return feedClosedMsg{}
		}
		return msg
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			m.tape.Reset()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		// header, stats, table header, help and borders
		if rows := msg.Height - 9; rows > 0 {
			m.rows = rows
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StatusMsg:
		m.status = msg
		return m, m.listen()

	case ConfirmedMsg:
		m.status = StatusMsg{State: StateSubscribed}
		return m, m.listen()

	case TradeMsg:
		m.addTrade(msg.Print)
		return m, m.listen()

	case feedClosedMsg:
		m.feedEnd = true
		return m, nil
	}
	return m, nil
}

func (m *Model) addTrade(p Print) {
	if m.trades == 0 {
		m.first = p.Trade.Price
	}
	m.trades++
	m.last = p.Trade.Price
	m.tape.Append(p)
}

// Change is the percent move since the first trade seen.
func (m *Model) Change() float64 {
	if m.first == 0 {
		return 0
	}
	return (m.last - m.first) / m.first * 100
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Market Tape"))
	b.WriteString(mutedStyle.Render("  " + m.subject + "  "))
	b.WriteString(m.renderStatus())
	b.WriteString("\n")

	if m.trades > 0 {
		change := m.Change()
		b.WriteString(fmt.Sprintf("Last %s  Change %s  Trades %d\n",
			priceStyle.Render(fmt.Sprintf("$%.2f", m.last)),
			changeStyle(change).Render(fmt.Sprintf("%+.2f%%", change)),
			m.trades))
	} else {
		b.WriteString(mutedStyle.Render("Waiting for trades...") + "\n")
	}

	b.WriteString(panelStyle.Render(m.renderTable()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderStatus() string {
	label := m.status.State.String()
	if m.status.State == StateReconnecting {
		label = fmt.Sprintf("%s (%d)", label, m.status.Attempt)
	}
	if m.feedEnd && m.status.State != StateFailed {
		label = "closed"
	}
	out := statusStyle(m.status.State).Render(label)
	switch m.status.State {
	case StateConnecting, StateReconnecting:
		out = m.spinner.View() + " " + out
	}
	if m.status.Err != nil && m.status.State != StateSubscribed {
		out += mutedStyle.Render(" " + m.status.Err.Error())
	}
	return out
}

func (m *Model) renderTable() string {
	header := headerStyle.Render(fmt.Sprintf("%-12s %-24s %12s %10s %-5s", "TIME", "SUBJECT", "PRICE", "SIZE", "SIDE"))
	lines := []string{header}

	prints := m.tape.Last(m.rows)
	// newest on top
	for i := len(prints) - 1; i >= 0; i-- {
		p := prints[i]
		subject := p.Subject
		if len(subject) > 24 {
			subject = subject[:23] + "…"
		}
		row := fmt.Sprintf("%-12s %-24s %12.2f %10.4f ",
			p.At.Format("15:04:05.000"), subject, p.Trade.Price, p.Trade.Size)
		lines = append(lines, row+sideStyle(p.Trade.Side).Render(fmt.Sprintf("%-5s", strings.ToUpper(p.Trade.Side))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Run starts the feed and the terminal program and blocks until the user
// quits or ctx is done.
func Run(ctx context.Context, cfg FeedConfig, capacity int, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan interface{}, 64)
	feed := NewFeed(cfg, log)
	go func() {
		if err := feed.Run(ctx, updates); err != nil {
			log.Errorf("Feed stopped: %v", err)
		}
	}()

	program := tea.NewProgram(NewModel(updates, cfg.Subject, capacity), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

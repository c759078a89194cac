// Package watch is the live sync dashboard: a Bubble Tea view over the
// engine's status, refreshed every second, with keys to trigger syncs
// and probes by hand.
package watch

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/scribesync/scribe/internal/engine"
	"github.com/scribesync/scribe/internal/models"
)

// MinWidth is the minimum terminal width for proper display
const MinWidth = 40

// TickMsg triggers a status refresh
type TickMsg time.Time

// RefreshMsg carries a fresh status snapshot
type RefreshMsg struct {
	Status  engine.Status
	Pending []models.Operation
}

// SyncDoneMsg reports a manual sync attempt
type SyncDoneMsg struct {
	Started bool
	Err     error
}

// ProbeDoneMsg reports a manual probe
type ProbeDoneMsg struct {
	Reachable bool
}

// Model is the Bubble Tea model for the watch dashboard
type Model struct {
	Engine *engine.Engine

	Width  int
	Height int

	Status  engine.Status
	Pending []models.Operation

	Spinner  spinner.Model
	Online   bool // platform toggle, driven by the "o" key
	ShowHelp bool
	LastErr  error
	LastNote string

	RefreshInterval time.Duration
}

// NewModel creates a watch model around a running engine.
func NewModel(e *engine.Engine, interval time.Duration) Model {
	if interval <= 0 {
		interval = time.Second
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		Engine:          e,
		Spinner:         sp,
		Online:          true,
		RefreshInterval: interval,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.refresh(),
		m.scheduleTick(),
		m.Spinner.Tick,
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.refresh(), m.scheduleTick())

	case RefreshMsg:
		m.Status = msg.Status
		m.Pending = msg.Pending
		return m, nil

	case SyncDoneMsg:
		m.LastErr = msg.Err
		if msg.Err == nil && msg.Started {
			m.LastNote = "synced"
		} else if !msg.Started {
			m.LastNote = "sync skipped"
		}
		return m, m.refresh()

	case ProbeDoneMsg:
		if msg.Reachable {
			m.LastNote = "server reachable"
		} else {
			m.LastNote = "server unreachable"
		}
		return m, m.refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "s":
		m.LastNote = "syncing..."
		return m, m.syncNow()

	case "p":
		m.LastNote = "probing..."
		return m, m.probe()

	case "o":
		m.Online = !m.Online
		online := m.Online
		e := m.Engine
		return m, func() tea.Msg {
			e.SetOnline(context.Background(), online)
			return TickMsg(time.Now())
		}

	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// scheduleTick returns a command that sends a TickMsg after the refresh interval
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// refresh returns a command that reads a fresh status snapshot
func (m Model) refresh() tea.Cmd {
	e := m.Engine
	return func() tea.Msg {
		st := e.Status()
		pending, _ := e.PendingOperations()
		return RefreshMsg{Status: st, Pending: pending}
	}
}

// syncNow returns a command that runs a manual sync attempt
func (m Model) syncNow() tea.Cmd {
	e := m.Engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		started, err := e.SyncNow(ctx)
		return SyncDoneMsg{Started: started, Err: err}
	}
}

// probe returns a command that forces a reachability check
func (m Model) probe() tea.Cmd {
	e := m.Engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return ProbeDoneMsg{Reachable: e.Probe(ctx)}
	}
}

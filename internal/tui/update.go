package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/migrate-verify/internal/hashengine"
	"github.com/joe/migrate-verify/internal/tui/shared"
)

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.bridge.ListenCmd(), shared.TickCmd())
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		barWidth := min(max(msg.Width/2-12, 10), shared.MaxProgressBarWidth) //nolint:mnd // room for box chrome
		for _, l := range m.lanes {
			l.bar.Width = barWidth
		}

		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case shared.EngineEventMsg:
		m.handleEvent(msg.Event)
		return m, m.bridge.ListenCmd()

	case shared.SnapshotMsg:
		m.snapshot = msg.Snapshot
		return m, m.bridge.ListenCmd()

	case shared.AllDoneMsg:
		m.done = true
		m.err = msg.Err
		// Keep draining until the bridge closes so nothing blocks on send.
		return m, m.bridge.ListenCmd()

	case shared.BridgeClosedMsg:
		m.done = true
		return m, tea.Quit

	case shared.TickMsg:
		if m.done {
			return m, nil
		}

		return m, shared.TickCmd()
	}

	return m, nil
}

// handleKeyPress cancels the session; state already settled is kept.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case shared.KeyCtrlC, shared.KeyQuit:
		if m.done {
			return m, tea.Quit
		}

		if !m.stopping {
			m.stopping = true
			if m.cancel != nil {
				m.cancel()
			}
		}
	}

	return m, nil
}

func (m Model) handleEvent(event hashengine.Event) {
	switch ev := event.(type) {
	case hashengine.HashStarted:
		if l := m.lane(ev.Label); l != nil {
			l.workers = ev.Workers
			l.media = ev.Media
			l.offset = ev.Offset
			l.retries = ev.Retries
		}
	case hashengine.FileFailed:
		if l := m.lane(ev.Label); l != nil {
			l.failed++
		}
	case hashengine.ErrorOccurred:
		if l := m.lane(ev.Label); l != nil {
			l.err = ev.Err
		}
	case hashengine.PipelineComplete:
		if l := m.lane(ev.Label); l != nil {
			l.outcome = outcomeOf(ev.Err)
			if l.outcome == shared.StateError {
				l.err = ev.Err
			}
		}
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return shared.StateComplete
	case errors.Is(err, hashengine.ErrCancelled):
		return shared.StateCancelled
	case errors.Is(err, hashengine.ErrFilesSkipped):
		return shared.StateSkipped
	default:
		return shared.StateError
	}
}

package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case ConnectedMsg:
		return m.handleConnected(msg)
	case RunStartedMsg:
		return m.handleRunStarted(msg)
	case StatusUpdateMsg:
		return m.handleStatusUpdate(msg)
	case TickMsg:
		return m.handleTick()
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "s", "S":
		if m.Connected && !m.Started {
			m.Started = true
			return m, startRun(m.Client, m.Topic)
		}
	}
	return m, nil
}

func (m Model) handleConnected(msg ConnectedMsg) (tea.Model, tea.Cmd) {
	m.Connected = msg.Err == nil
	m.Err = msg.Err
	return m, nil
}

func (m Model) handleRunStarted(msg RunStartedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Started = false
		m.Err = msg.Err
		return m, nil
	}
	m.RunID = msg.RunID
	m.Err = nil
	return m, pollStatus(m.Client, m.RunID)
}

func (m Model) handleStatusUpdate(msg StatusUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Err = msg.Err
		return m, nil
	}
	m.Run = msg.Run
	m.Err = nil
	return m, nil
}

// handleTick re-polls while a run is active and keeps the ticker going.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd()}
	if !m.Connected {
		cmds = append(cmds, checkHealth(m.Client))
	} else if m.RunID != "" && (m.Run == nil || m.running()) {
		cmds = append(cmds, pollStatus(m.Client, m.RunID))
	}
	return m, tea.Batch(cmds...)
}

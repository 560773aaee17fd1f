package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// checkHealth creates a command for the initial connectivity probe.
func checkHealth(client *Client) tea.Cmd {
	return func() tea.Msg {
		return ConnectedMsg{Err: client.Health()}
	}
}

// startRun creates a command to submit the topic.
func startRun(client *Client, topic string) tea.Cmd {
	return func() tea.Msg {
		id, err := client.Generate(topic)
		return RunStartedMsg{RunID: id, Err: err}
	}
}

// pollStatus creates a command to fetch the run snapshot.
func pollStatus(client *Client, runID string) tea.Cmd {
	return func() tea.Msg {
		run, err := client.Status(runID)
		return StatusUpdateMsg{Run: run, Err: err}
	}
}

// tickCmd creates a command that ticks every 500ms for polling.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

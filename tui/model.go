package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"clipforge/types"
)

// Model is the TUI client state: a thin view over the server's run tracker.
type Model struct {
	Client *Client
	Topic  string

	// Synced from the server
	RunID string
	Run   *types.PipelineRun
	Err   error

	Connected bool
	Started   bool
}

// NewModel creates a TUI model pointed at the pipeline server.
func NewModel(serverURL, topic string) Model {
	return Model{
		Client: NewClient(serverURL),
		Topic:  topic,
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		checkHealth(m.Client),
		tickCmd(),
	)
}

func (m Model) running() bool {
	if !m.Started || m.Run == nil {
		return false
	}
	return m.Run.State != types.StateSucceeded && m.Run.State != types.StateFailed
}

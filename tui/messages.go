package tui

import (
	"time"

	"clipforge/types"
)

// Messages for the tea program (polling-based)

// RunStartedMsg is sent when the server accepts a generation request.
type RunStartedMsg struct {
	RunID string
	Err   error
}

// StatusUpdateMsg carries the latest run snapshot from the server.
type StatusUpdateMsg struct {
	Run *types.PipelineRun
	Err error
}

// ConnectedMsg reports the initial health check.
type ConnectedMsg struct {
	Err error
}

// TickMsg is sent periodically to trigger polling.
type TickMsg struct {
	Time time.Time
}

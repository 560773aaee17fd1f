package tui

import (
	"fmt"
	"strings"
	"time"

	"clipforge/types"
)

const logTail = 12

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🎬 ClipForge Pipeline"))
	b.WriteString("\n\n")

	b.WriteString(m.stateText())
	b.WriteString("\n\n")

	if m.Run != nil && len(m.Run.Stages) > 0 {
		b.WriteString(mutedStyle.Render("Stages:"))
		b.WriteString("\n")
		for i, s := range m.Run.Stages {
			line := fmt.Sprintf("   %d/%d %-10s %-10s %s", i+1, types.StageCount, s.Stage, s.Status, s.Duration.Round(time.Millisecond))
			switch s.Status {
			case types.StageFailed:
				b.WriteString(failedStyle.Render(line))
			case types.StageCacheHit:
				b.WriteString(cachedStyle.Render(line))
			case types.StageComputed:
				b.WriteString(doneStyle.Render(line))
			default:
				b.WriteString(mutedStyle.Render(line))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.Run != nil && len(m.Run.Log) > 0 {
		b.WriteString(mutedStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		logs := m.Run.Log
		if len(logs) > logTail {
			logs = logs[len(logs)-logTail:]
		}
		for _, line := range logs {
			style := mutedStyle
			if strings.Contains(line, "drift") {
				style = warnStyle
			}
			b.WriteString(style.Render("   " + line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.Run != nil && m.Run.State == types.StateSucceeded {
		b.WriteString(resultBoxStyle.Render(m.resultText()))
		b.WriteString("\n\n")
	}

	switch {
	case !m.Started:
		b.WriteString(mutedStyle.Render("Press 's' to start | Press 'q' or Ctrl+C to quit"))
	default:
		b.WriteString(mutedStyle.Render("Press 'q' or Ctrl+C to quit"))
	}

	return b.String()
}

// stateText returns the appropriate state message
func (m Model) stateText() string {
	if !m.Connected {
		msg := "❌ Not connected to pipeline server"
		if m.Err != nil {
			msg = fmt.Sprintf("❌ Not connected: %v", m.Err)
		}
		return failedStyle.Render(msg)
	}
	if !m.Started {
		return bannerStyle.Render("👋 Ready") + "\n\n" +
			mutedStyle.Render(fmt.Sprintf("Topic: %s", m.Topic))
	}
	if m.Run == nil {
		return doneStyle.Render("⏳ Submitting…")
	}

	switch m.Run.State {
	case types.StateSucceeded:
		return bannerStyle.Render("✅ COMPLETE")
	case types.StateFailed:
		return failedStyle.Render("❌ Run failed")
	default:
		return doneStyle.Render(fmt.Sprintf("⏳ %s", m.Run.State))
	}
}

// resultText summarizes a finished run for the result box.
func (m Model) resultText() string {
	var b strings.Builder
	b.WriteString(bannerStyle.Render("Run Result"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Run: %s\n", m.Run.ID))
	b.WriteString(fmt.Sprintf("Topic: %s\n", m.Run.Topic))
	b.WriteString(fmt.Sprintf("Stages: %d\n", len(m.Run.Stages)))
	b.WriteString(fmt.Sprintf("Elapsed: %s\n", m.Run.EndedAt.Sub(m.Run.StartedAt).Round(10*time.Millisecond)))
	return b.String()
}

package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"clipforge/tui"
)

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "ClipForge API server URL")
	topic := flag.String("topic", "", "Topic to generate a video for")
	flag.Parse()

	if *topic == "" {
		fmt.Fprintln(os.Stderr, "a topic is required (-topic)")
		os.Exit(2)
	}

	p := tea.NewProgram(tui.NewModel(*serverURL, *topic), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"verbatim/internal/app"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	cfg, err := app.LoadConfig(app.DefaultConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "verbatim: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(app.New(cfg), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "verbatim: %v\n", err)
		os.Exit(1)
	}
}

package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pdf-tools/backend/internal/catalog"
	"github.com/pdf-tools/backend/internal/flow"
)

// Run starts the TUI over ctrl and blocks until the user quits
func Run(ctrl *flow.Controller, cat *catalog.Catalog, opts ...tea.ProgramOption) error {
	m := NewModel(ctrl, cat)

	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	p := tea.NewProgram(m, opts...)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

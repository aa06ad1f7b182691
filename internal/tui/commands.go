package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pdf-tools/backend/internal/models"
)

// snapshotMsg carries a state change published by the controller
type snapshotMsg models.Snapshot

// closedMsg is sent when the controller's subscription ends
type closedMsg struct{}

// progressTickMsg refreshes the progress bar while processing
type progressTickMsg time.Time

// waitForSnapshot blocks until the controller publishes a change
func waitForSnapshot(ch <-chan models.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

// progressTickCmd polls elapsed processing time
func progressTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

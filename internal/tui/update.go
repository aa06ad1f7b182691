package tui

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pdf-tools/backend/internal/flow"
	"github.com/pdf-tools/backend/internal/models"
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMessage(msg)
	case snapshotMsg:
		m, cmd := m.applySnapshot(models.Snapshot(msg))
		return m, tea.Batch(cmd, waitForSnapshot(m.updates))
	case closedMsg:
		return m, tea.Quit
	case progressTickMsg:
		if m.snapshot.Processing {
			return m, progressTickCmd()
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKeyMessage dispatches keys by input mode
func (m Model) handleKeyMessage(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	switch m.state {
	case StateFileInput:
		return m.updateFileInput(msg)
	default:
		return m.updateGallery(msg)
	}
}

func (m Model) updateGallery(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m.quit()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.tools)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.tools) == 0 {
			return m, nil
		}
		snap, err := m.ctrl.SelectTool(m.tools[m.cursor].ID)
		return m.afterAction(snap, err)
	case "f":
		if m.snapshot.ToolID == "" {
			m.message = "Select a tool first"
			return m, nil
		}
		m.state = StateFileInput
		m.message = ""
		m.fileInput.SetValue("")
		cmd := m.fileInput.Focus()
		return m, cmd
	case "p":
		snap, err := m.ctrl.Process()
		return m.afterAction(snap, err)
	case "d":
		snap, err := m.ctrl.Download()
		m, cmd := m.afterAction(snap, err)
		if err == nil {
			m.message = "Download ready"
		}
		return m, cmd
	}

	return m, nil
}

func (m Model) updateFileInput(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = StateGallery
		m.fileInput.Blur()
		return m, nil
	case "enter":
		m.state = StateGallery
		m.fileInput.Blur()
		snap, err := m.ctrl.ChooseFiles(parseFileList(m.fileInput.Value()))
		return m.afterAction(snap, err)
	}

	var cmd tea.Cmd
	m.fileInput, cmd = m.fileInput.Update(msg)
	return m, cmd
}

// afterAction applies the controller's result or reports why it was refused
func (m Model) afterAction(snap models.Snapshot, err error) (Model, tea.Cmd) {
	if err != nil {
		m.message = describeError(err)
		return m, nil
	}
	m.message = ""
	return m.applySnapshot(snap)
}

// applySnapshot keeps the newest snapshot; the subscription may redeliver
// one already applied from a direct call.
func (m Model) applySnapshot(snap models.Snapshot) (Model, tea.Cmd) {
	if snap.Version <= m.snapshot.Version {
		return m, nil
	}

	wasProcessing := m.snapshot.Processing
	m.snapshot = snap
	if snap.Processing && !wasProcessing {
		m.startedAt = m.now()
		return m, progressTickCmd()
	}
	return m, nil
}

func (m Model) quit() (Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	return m, tea.Quit
}

// parseFileList turns comma-separated paths into file references.
// Only the base name is kept; the files are never opened.
func parseFileList(input string) []models.FileRef {
	refs := []models.FileRef{}
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		refs = append(refs, models.FileRef{Name: filepath.Base(p)})
	}
	return refs
}

func describeError(err error) string {
	switch {
	case errors.Is(err, flow.ErrNoToolSelected):
		return "Select a tool first"
	case errors.Is(err, flow.ErrNothingToProcess):
		return "Choose files to process"
	case errors.Is(err, flow.ErrAlreadyProcessing):
		return "Already processing"
	case errors.Is(err, flow.ErrNotCompleted):
		return "Nothing to download yet"
	default:
		return err.Error()
	}
}

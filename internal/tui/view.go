package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pdf-tools/backend/internal/models"
)

// View implements tea.Model
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PDF Tools") + "\n")
	s.WriteString(subtitleStyle.Render("Professional Document Management") + "\n")

	s.WriteString(m.viewGallery())

	if panel := m.snapshot.View.UploadPanel; panel != nil {
		s.WriteString(panelStyle.Render(m.viewUploadPanel(panel)) + "\n")
	}

	if m.message != "" {
		s.WriteString("\n" + warningStyle.Render(m.message) + "\n")
	}

	s.WriteString("\n" + helpStyle.Render(m.helpLine()))

	return m.render(s.String())
}

func (m Model) viewGallery() string {
	var s strings.Builder

	for i, tool := range m.tools {
		cursor := " "
		title := choiceStyle.Render(tool.Title)
		if m.cursor == i {
			cursor = ">"
			title = selectedStyle.Render(tool.Title)
		}

		marker := " "
		if tool.ID == m.snapshot.ToolID {
			marker = successStyle.Render(glyph(models.IconCheck))
		}

		s.WriteString(fmt.Sprintf("%s %s %s %s\n", cursor, marker, toolStyle(tool.Color).Render(glyph(tool.Icon)), title))
		if m.cursor == i {
			s.WriteString("     " + helpStyle.Render(tool.Description) + "\n")
			s.WriteString("     " + helpStyle.Render(strings.Join(tool.Features, " · ")) + "\n")
		}
	}

	return s.String()
}

func (m Model) viewUploadPanel(panel *models.UploadPanel) string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(panel.Title) + "\n")
	s.WriteString(helpStyle.Render(panel.Prompt) + "\n\n")

	if m.state == StateFileInput {
		s.WriteString("File paths (comma separated):\n")
		s.WriteString(m.fileInput.View() + "\n")
		return s.String()
	}

	view := m.snapshot.View
	if len(m.snapshot.Files) > 0 {
		s.WriteString(fmt.Sprintf("Uploaded Files (%d)\n", len(m.snapshot.Files)))
		for _, f := range m.snapshot.Files {
			line := "  " + glyph("file-text") + " " + f.Name
			if view.FileCheckmarks {
				line += " " + successStyle.Render(glyph(models.IconCheck))
			}
			s.WriteString(line + "\n")
		}
		s.WriteString("\n")
	}

	if view.Action != nil {
		s.WriteString(m.viewActions(view.Action, view.Download) + "\n")
		if view.Action.Spinning {
			s.WriteString(m.progressBar.ViewAs(m.progressPercent()) + "\n")
		}
	}

	return s.String()
}

func (m Model) viewActions(action, download *models.ActionView) string {
	icon := glyph(action.Icon)
	if action.Spinning {
		icon = m.spinner.View()
	}

	style := buttonStyle
	if action.Disabled {
		style = disabledButtonStyle
	}
	row := style.Render(icon + " " + action.Label)

	if download != nil {
		row = lipgloss.JoinHorizontal(lipgloss.Center, row, "  ",
			outlineButtonStyle.Render(glyph(download.Icon)+" "+download.Label))
	}
	return row
}

// progressPercent is the elapsed share of the processing delay
func (m Model) progressPercent() float64 {
	delay := m.ctrl.Delay()
	if delay <= 0 || m.startedAt.IsZero() {
		return 0
	}
	pct := float64(m.now().Sub(m.startedAt)) / float64(delay)
	if pct > 1 {
		return 1
	}
	return pct
}

func (m Model) helpLine() string {
	if m.state == StateFileInput {
		return "Enter to confirm, Esc to cancel"
	}

	parts := []string{"↑/↓ navigate", "enter select"}
	if m.snapshot.ToolID != "" {
		parts = append(parts, "f files")
	}
	if m.snapshot.View.Action != nil && !m.snapshot.View.Action.Disabled {
		parts = append(parts, "p process")
	}
	if m.snapshot.View.Download != nil {
		parts = append(parts, "d download")
	}
	parts = append(parts, "q quit")
	return strings.Join(parts, " · ")
}

func (m Model) render(content string) string {
	if m.width > 0 {
		return boxStyle.Width(m.width - 4).Render(content)
	}
	return boxStyle.Render(content)
}

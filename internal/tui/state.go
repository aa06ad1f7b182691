// Package tui is a terminal front end for a single PDF tools flow.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pdf-tools/backend/internal/catalog"
	"github.com/pdf-tools/backend/internal/flow"
	"github.com/pdf-tools/backend/internal/models"
)

// AppState is the input mode of the TUI
type AppState int

const (
	StateGallery AppState = iota
	StateFileInput
)

// Model is the bubbletea model wrapping one flow controller
type Model struct {
	state  AppState
	width  int
	height int

	ctrl     *flow.Controller
	tools    []models.Tool
	snapshot models.Snapshot
	updates  <-chan models.Snapshot
	cancel   func()

	// Processing progress, driven by elapsed time against the controller delay
	startedAt   time.Time
	now         func() time.Time
	progressBar progress.Model
	spinner     spinner.Model

	fileInput textinput.Model

	cursor  int
	message string
}

// NewModel creates a model over ctrl. A nil catalog uses the built-in one.
func NewModel(ctrl *flow.Controller, cat *catalog.Catalog) Model {
	if cat == nil {
		cat = catalog.Default()
	}

	updates, cancel := ctrl.Subscribe()

	input := textinput.New()
	input.Placeholder = "report.pdf, appendix.pdf"
	input.Prompt = "› "
	input.CharLimit = 4096
	input.Width = 60

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = selectedStyle

	return Model{
		state:       StateGallery,
		ctrl:        ctrl,
		tools:       cat.Tools(),
		snapshot:    ctrl.Snapshot(),
		updates:     updates,
		cancel:      cancel,
		now:         time.Now,
		progressBar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner:     spin,
		fileInput:   input,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.updates), m.spinner.Tick)
}

// Snapshot returns the last state the model rendered
func (m Model) Snapshot() models.Snapshot {
	return m.snapshot
}

package flow

import "github.com/pdf-tools/backend/internal/models"

// phaseOf derives the phase from the raw flags.
func phaseOf(toolID models.ToolID, files int, processing, completed bool) models.Phase {
	switch {
	case processing:
		return models.PhaseProcessing
	case completed:
		return models.PhaseCompleted
	case files > 0:
		return models.PhaseFilesStaged
	case toolID != "":
		return models.PhaseToolSelected
	default:
		return models.PhaseIdle
	}
}

// buildView derives what a front end renders. tool is nil when nothing is selected.
func buildView(tool *models.Tool, files int, processing, completed bool) models.View {
	var v models.View

	if tool != nil {
		v.UploadPanel = &models.UploadPanel{
			Title:  tool.Title,
			Prompt: models.UploadPrompt,
		}
	}

	if files == 0 {
		return v
	}

	switch {
	case processing:
		v.Action = &models.ActionView{
			Label:    models.LabelProcessing,
			Icon:     models.IconSpinner,
			Spinning: true,
			Disabled: true,
		}
	case completed:
		v.Action = &models.ActionView{Label: models.LabelCompleted, Icon: models.IconCheck}
	default:
		v.Action = &models.ActionView{Label: models.LabelProcess, Icon: models.IconZap}
	}

	if completed {
		v.Download = &models.ActionView{Label: models.LabelDownload, Icon: models.IconDownload}
		v.FileCheckmarks = true
	}

	return v
}

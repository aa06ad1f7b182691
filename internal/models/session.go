package models

import "time"

// Phase is the derived state of a flow.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseToolSelected Phase = "tool_selected"
	PhaseFilesStaged  Phase = "files_staged"
	PhaseProcessing   Phase = "processing"
	PhaseCompleted    Phase = "completed"
)

// Icon references used by the action controls.
const (
	IconZap      = "zap"
	IconSpinner  = "refresh-cw"
	IconCheck    = "check"
	IconDownload = "download"
)

// Button labels shown by the action controls.
const (
	LabelProcess    = "Process Files"
	LabelProcessing = "Processing..."
	LabelCompleted  = "Completed"
	LabelDownload   = "Download"
)

// UploadPrompt is shown under the upload panel title.
const UploadPrompt = "Upload your PDF files to get started"

// ActionView describes a button.
type ActionView struct {
	Label    string `json:"label" msgpack:"label"`
	Icon     string `json:"icon" msgpack:"icon"`
	Spinning bool   `json:"spinning,omitempty" msgpack:"spinning,omitempty"`
	Disabled bool   `json:"disabled,omitempty" msgpack:"disabled,omitempty"`
}

// UploadPanel is the upload card shown once a tool is selected.
type UploadPanel struct {
	Title  string `json:"title" msgpack:"title"`
	Prompt string `json:"prompt" msgpack:"prompt"`
}

// View is what a front end needs to render the current state.
type View struct {
	UploadPanel    *UploadPanel `json:"uploadPanel,omitempty" msgpack:"uploadPanel,omitempty"`
	Action         *ActionView  `json:"action,omitempty" msgpack:"action,omitempty"`
	Download       *ActionView  `json:"download,omitempty" msgpack:"download,omitempty"`
	FileCheckmarks bool         `json:"fileCheckmarks" msgpack:"fileCheckmarks"`
}

// Snapshot is an immutable copy of a flow's state.
type Snapshot struct {
	Version    uint64    `json:"version" msgpack:"version"`
	Phase      Phase     `json:"phase" msgpack:"phase"`
	ToolID     ToolID    `json:"toolId,omitempty" msgpack:"toolId,omitempty"`
	Files      []FileRef `json:"files" msgpack:"files"`
	Processing bool      `json:"processing" msgpack:"processing"`
	Completed  bool      `json:"completed" msgpack:"completed"`
	View       View      `json:"view" msgpack:"view"`
}

// SessionInfo is the summary returned when listing sessions.
type SessionInfo struct {
	ID           string    `json:"id"`
	Phase        Phase     `json:"phase"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`
}

// SessionResponse pairs a session ID with its current snapshot.
type SessionResponse struct {
	ID       string   `json:"id" msgpack:"id"`
	Snapshot Snapshot `json:"snapshot" msgpack:"snapshot"`
}

// Package models contains domain types for PDF Tools.
package models

// ToolID identifies one of the advertised PDF operations.
type ToolID string

const (
	ToolMerge    ToolID = "merge"
	ToolSplit    ToolID = "split"
	ToolCompress ToolID = "compress"
	ToolConvert  ToolID = "convert"
)

// KnownToolIDs lists every tool identifier in gallery order.
var KnownToolIDs = []ToolID{ToolMerge, ToolSplit, ToolCompress, ToolConvert}

// IsKnown reports whether id is part of the fixed tool set.
func (id ToolID) IsKnown() bool {
	for _, known := range KnownToolIDs {
		if id == known {
			return true
		}
	}
	return false
}

// Tool describes a tool card in the gallery.
type Tool struct {
	ID          ToolID   `json:"id" yaml:"id" msgpack:"id"`
	Title       string   `json:"title" yaml:"title" msgpack:"title"`
	Description string   `json:"description" yaml:"description" msgpack:"description"`
	Icon        string   `json:"icon" yaml:"icon" msgpack:"icon"`   // Icon reference, e.g. "file-text"
	Color       string   `json:"color" yaml:"color" msgpack:"color"` // Color token, e.g. "bg-primary"
	Features    []string `json:"features" yaml:"features" msgpack:"features"`
}

// Clone returns a deep copy of the tool.
func (t Tool) Clone() Tool {
	t.Features = append([]string(nil), t.Features...)
	return t
}

package models

// FileRef is a file handle supplied by the client's file picker.
// Only the metadata is kept; the content is never opened or stored.
type FileRef struct {
	Name        string `json:"name" msgpack:"name"`
	Size        int64  `json:"size,omitempty" msgpack:"size,omitempty"`
	ContentType string `json:"contentType,omitempty" msgpack:"contentType,omitempty"`
}

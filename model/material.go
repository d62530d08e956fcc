package model

import (
	"time"
)

// Material represents a reference document staged for generation context
type Material struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	Owner       string    `json:"owner"`
	ProjectID   string    `json:"project_id,omitempty"` // empty while staged globally
	ParseStatus string    `json:"parse_status"`         // pending, parsing, parsed, failed
	ParseError  string    `json:"parse_error,omitempty"`
	ObjectName  string    `json:"object_name,omitempty"`
	TaskID      string    `json:"task_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ParseStatus constants
const (
	ParsePending = "pending"
	ParseRunning = "parsing"
	ParseDone    = "parsed"
	ParseFailed  = "failed"
)

// Settled reports whether parsing has reached a terminal state
func (m *Material) Settled() bool {
	return m.ParseStatus == ParseDone || m.ParseStatus == ParseFailed
}

// CreationMode constants for project initialization
const (
	ModeIdea        = "idea"
	ModeOutline     = "outline"
	ModeDescription = "description"
)

// ValidMode reports whether mode is a known creation mode
func ValidMode(mode string) bool {
	return mode == ModeIdea || mode == ModeOutline || mode == ModeDescription
}

// UserTemplate is a style template previously uploaded by a user
type UserTemplate struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Owner      string    `json:"owner"`
	ObjectName string    `json:"object_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

package composer

import (
	"context"
	"io"

	"github.com/acse-yz219/bananslides/model"
)

// File is a raw file handed to the intake controller, before any record exists
type File struct {
	Name        string
	Size        int64
	ContentType string
	Data        io.Reader
}

// TriggerResult is the tagged outcome of a parse trigger call. A nil Updated
// means the backend acknowledged the trigger without returning a record, and
// the caller should assume parsing is now in flight.
type TriggerResult struct {
	Updated *model.Material
}

// UploadGateway transfers a single file to storage and returns the resulting
// material record. An empty projectID stages the material globally.
type UploadGateway interface {
	Upload(ctx context.Context, owner string, f File, projectID string) (*model.Material, error)
}

// ParseTrigger asks the backend to begin or continue parsing a material
type ParseTrigger interface {
	Trigger(ctx context.Context, materialID string) (*TriggerResult, error)
}

// Associator binds an uploaded material to a project
type Associator interface {
	Associate(ctx context.Context, materialID, projectID string) error
}

// ProjectCreator creates a project on the generation engine. The new project
// id is published through the ProjectPointer, not returned here.
type ProjectCreator interface {
	CreateProject(ctx context.Context, owner, mode, content string, template []byte) error
}

// TemplateFetcher materializes template bytes for a preset or user template id
type TemplateFetcher interface {
	Fetch(ctx context.Context, templateID string, userTemplates []model.UserTemplate) ([]byte, error)
}

// ProjectPointer is the per-user "current project" key-value slot
type ProjectPointer interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// Notifier is a fire-and-forget notification sink
type Notifier interface {
	Notify(n Notification)
}

// Notification severity levels
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityError   = "error"
)

type Notification struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// CurrentProjectKey returns the pointer key for a user's active project
func CurrentProjectKey(owner string) string {
	return "currentProjectId:" + owner
}

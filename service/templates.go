package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acse-yz219/bananslides/composer"
	"github.com/acse-yz219/bananslides/model"
)

// TemplateService resolves template ids to template bytes. Preset templates
// live under a shared object prefix; user templates are tracked per owner and
// fetched by their stored object name.
type TemplateService struct {
	storage      *MinioService
	presetPrefix string

	mu     sync.RWMutex
	byUser map[string][]model.UserTemplate
}

func NewTemplateService(storage *MinioService, presetPrefix string) *TemplateService {
	return &TemplateService{
		storage:      storage,
		presetPrefix: presetPrefix,
		byUser:       make(map[string][]model.UserTemplate),
	}
}

// Fetch materializes the bytes for a template id. A preset id maps to an
// object under the preset prefix; anything else must match one of the given
// user templates.
func (s *TemplateService) Fetch(ctx context.Context, templateID string, userTemplates []model.UserTemplate) ([]byte, error) {
	if composer.IsPresetTemplateID(templateID) {
		objectName := fmt.Sprintf("%s/%s.pptx", s.presetPrefix, templateID)
		data, err := s.storage.FetchObject(ctx, objectName)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch preset template %s: %w", templateID, err)
		}
		return data, nil
	}

	for _, t := range userTemplates {
		if t.ID == templateID {
			data, err := s.storage.FetchObject(ctx, t.ObjectName)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch template %s: %w", templateID, err)
			}
			return data, nil
		}
	}

	return nil, fmt.Errorf("template %s not found", templateID)
}

// SaveUserTemplate stores an uploaded template file and records it for the owner
func (s *TemplateService) SaveUserTemplate(ctx context.Context, owner, name string, data []byte) (*model.UserTemplate, error) {
	id := uuid.New().String()
	objectName := fmt.Sprintf("templates/%s/%s.pptx", owner, id)

	contentType := "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	if err := s.storage.UploadFile(ctx, objectName, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("failed to store template: %w", err)
	}

	tmpl := model.UserTemplate{
		ID:         id,
		Name:       name,
		Owner:      owner,
		ObjectName: objectName,
		CreatedAt:  time.Now(),
	}

	s.mu.Lock()
	s.byUser[owner] = append(s.byUser[owner], tmpl)
	s.mu.Unlock()

	return &tmpl, nil
}

// ListByOwner returns the owner's templates, oldest first
func (s *TemplateService) ListByOwner(owner string) []model.UserTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.UserTemplate, len(s.byUser[owner]))
	copy(out, s.byUser[owner])
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

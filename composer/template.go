package composer

import (
	"context"
	"sync"

	"github.com/acse-yz219/bananslides/model"
)

// IsPresetTemplateID reports whether id addresses a built-in preset template.
// Preset ids are short digit strings by issuing convention ("1", "2", ...);
// everything else is treated as a user-uploaded template id. If the issuer
// ever changes its id format this should become an explicit type tag carried
// alongside the id.
func IsPresetTemplateID(id string) bool {
	if len(id) == 0 || len(id) > 3 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// TemplateSelection holds the active style-template choice. Exactly one of
// {nothing, concrete payload, user template id, preset id} is active at a
// time; selecting one clears the others.
type TemplateSelection struct {
	mu          sync.Mutex
	payload     []byte
	payloadName string
	userID      string
	presetID    string
}

func NewTemplateSelection() *TemplateSelection {
	return &TemplateSelection{}
}

// SelectFile activates a concrete local template payload and clears both id
// slots
func (s *TemplateSelection) SelectFile(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payload = data
	s.payloadName = name
	s.userID = ""
	s.presetID = ""
}

// SelectID activates a template by identifier, classifying it as preset or
// user-owned, and clears the concrete payload and the other id slot
func (s *TemplateSelection) SelectID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if IsPresetTemplateID(id) {
		s.presetID = id
		s.userID = ""
	} else {
		s.userID = id
		s.presetID = ""
	}
	s.payload = nil
	s.payloadName = ""
}

// Clear resets the selection to nothing
func (s *TemplateSelection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payload = nil
	s.payloadName = ""
	s.userID = ""
	s.presetID = ""
}

// ActiveID returns the selected template id, if an id slot is active
func (s *TemplateSelection) ActiveID() (id string, preset bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.presetID != "" {
		return s.presetID, true, true
	}
	if s.userID != "" {
		return s.userID, false, true
	}
	return "", false, false
}

// HasPayload reports whether a concrete payload is held
func (s *TemplateSelection) HasPayload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payload != nil
}

// Resolve materializes the selection to bytes. A held payload is used
// directly; an id is fetched through the fetcher, once, only at this point.
// An empty selection resolves to nil bytes with no error.
func (s *TemplateSelection) Resolve(ctx context.Context, fetcher TemplateFetcher, userTemplates []model.UserTemplate) ([]byte, error) {
	s.mu.Lock()
	payload := s.payload
	id := s.userID
	if id == "" {
		id = s.presetID
	}
	s.mu.Unlock()

	if payload != nil {
		return payload, nil
	}
	if id == "" {
		return nil, nil
	}
	return fetcher.Fetch(ctx, id, userTemplates)
}

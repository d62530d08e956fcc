package composer

import (
	"sync"

	"github.com/acse-yz219/bananslides/model"
)

const maxFeedItems = 50

// Feed is a bounded in-memory notification sink drained by the UI
type Feed struct {
	mu    sync.Mutex
	items []Notification
}

func (f *Feed) Notify(n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append(f.items, n)
	if len(f.items) > maxFeedItems {
		f.items = f.items[len(f.items)-maxFeedItems:]
	}
}

// Drain returns and clears the pending notifications
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.items
	f.items = nil
	return out
}

// Session is one user's compose state: the staged materials, the template
// selection, the intake controller, and the notification feed
type Session struct {
	Owner    string
	Registry *Registry
	Template *TemplateSelection
	Intake   *Intake

	feed *Feed

	mu            sync.Mutex
	userTemplates []model.UserTemplate
}

// SetUserTemplates stores the user's known templates for lazy resolution at
// submit time
func (s *Session) SetUserTemplates(templates []model.UserTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userTemplates = templates
}

func (s *Session) UserTemplates() []model.UserTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.UserTemplate, len(s.userTemplates))
	copy(out, s.userTemplates)
	return out
}

func (s *Session) Notifier() Notifier {
	return s.feed
}

// Notifications drains the session's pending notifications
func (s *Session) Notifications() []Notification {
	return s.feed.Drain()
}

// SessionDeps are the collaborators every session's intake controller uses
type SessionDeps struct {
	Gateway           UploadGateway
	Trigger           ParseTrigger
	AllowedExtensions []string
}

// SessionManager hands out one compose session per user, created on demand.
// Sessions are not torn down on navigation; late parse or association
// responses land in whatever session still exists.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     SessionDeps
}

func NewSessionManager(deps SessionDeps) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		deps:     deps,
	}
}

// Get returns the user's session, creating it if needed
func (m *SessionManager) Get(owner string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[owner]; ok {
		return s
	}

	feed := &Feed{}
	registry := NewRegistry()
	s := &Session{
		Owner:    owner,
		Registry: registry,
		Template: NewTemplateSelection(),
		Intake:   NewIntake(m.deps.Gateway, m.deps.Trigger, registry, feed, m.deps.AllowedExtensions),
		feed:     feed,
	}
	m.sessions[owner] = s
	return s
}

// PushStatus feeds an out-of-band parse-status update into the owner's live
// registry. Last write wins; a session or record that no longer exists makes
// this a no-op.
func (m *SessionManager) PushStatus(rec model.Material) {
	m.mu.Lock()
	s := m.sessions[rec.Owner]
	m.mu.Unlock()

	if s != nil {
		s.Registry.Update(rec)
	}
}

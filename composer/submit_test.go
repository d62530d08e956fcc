package composer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/acse-yz219/bananslides/model"
)

type fakeCreator struct {
	mu      sync.Mutex
	calls   int
	lastReq struct {
		owner, mode, content string
		template             []byte
	}
	err     error
	pointer ProjectPointer
	project string
}

func (c *fakeCreator) CreateProject(_ context.Context, owner, mode, content string, template []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	c.lastReq.owner = owner
	c.lastReq.mode = mode
	c.lastReq.content = content
	c.lastReq.template = template
	if c.err != nil {
		return c.err
	}
	if c.pointer != nil && c.project != "" {
		c.pointer.Set(CurrentProjectKey(owner), c.project)
	}
	return nil
}

func (c *fakeCreator) createCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeAssociator struct {
	mu    sync.Mutex
	calls map[string]string // materialID -> projectID
	fail  map[string]bool
}

func (a *fakeAssociator) Associate(_ context.Context, materialID, projectID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.calls == nil {
		a.calls = make(map[string]string)
	}
	a.calls[materialID] = projectID
	if a.fail[materialID] {
		return &AssociationError{MaterialID: materialID, Err: errors.New("backend unavailable")}
	}
	return nil
}

func (a *fakeAssociator) associateCalls() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]string, len(a.calls))
	for k, v := range a.calls {
		out[k] = v
	}
	return out
}

type memPointer struct {
	mu     sync.Mutex
	values map[string]string
}

func (p *memPointer) Get(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	return v, ok
}

func (p *memPointer) Set(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.values == nil {
		p.values = make(map[string]string)
	}
	p.values[key] = value
}

func newTestSession(owner string) *Session {
	manager := NewSessionManager(SessionDeps{
		Gateway:           &fakeGateway{},
		Trigger:           &fakeTrigger{},
		AllowedExtensions: []string{"pdf"},
	})
	return manager.Get(owner)
}

func TestSubmitRejectsBlankContent(t *testing.T) {
	creator := &fakeCreator{}
	associator := &fakeAssociator{}
	fetcher := &countingFetcher{}
	orch := NewOrchestrator(creator, associator, fetcher, &memPointer{})
	sess := newTestSession("alice")

	for _, content := range []string{"", "   ", "\n\t "} {
		_, err := orch.Submit(context.Background(), sess, model.ModeIdea, content)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("Expected ValidationError for %q, got %v", content, err)
		}
	}

	// No network effect of any kind
	if creator.createCalls() != 0 || len(associator.associateCalls()) != 0 || fetcher.calls != 0 {
		t.Error("Expected no network calls for blank content")
	}
}

func TestSubmitRejectsUnsettledMaterials(t *testing.T) {
	creator := &fakeCreator{}
	orch := NewOrchestrator(creator, &fakeAssociator{}, &countingFetcher{}, &memPointer{})
	sess := newTestSession("alice")

	sess.Registry.Add(model.Material{ID: "a", ParseStatus: model.ParsePending})
	sess.Registry.Add(model.Material{ID: "b", ParseStatus: model.ParseRunning})
	sess.Registry.Add(model.Material{ID: "c", ParseStatus: model.ParseDone})

	_, err := orch.Submit(context.Background(), sess, model.ModeIdea, "AI history talk")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	// The message names the live count of still-parsing items
	if got := ve.Message; got == "" || got[0] != '2' {
		t.Errorf("Expected message to start with count 2, got %q", got)
	}
	if creator.createCalls() != 0 {
		t.Error("Expected no project creation while materials are unsettled")
	}
}

func TestSubmitIdeaWithoutMaterials(t *testing.T) {
	pointer := &memPointer{}
	creator := &fakeCreator{pointer: pointer, project: "proj-1"}
	associator := &fakeAssociator{}
	orch := NewOrchestrator(creator, associator, &countingFetcher{}, pointer)
	sess := newTestSession("alice")

	result, err := orch.Submit(context.Background(), sess, model.ModeIdea, "AI history talk")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if creator.createCalls() != 1 {
		t.Errorf("Expected exactly one create call, got %d", creator.createCalls())
	}
	if len(associator.associateCalls()) != 0 {
		t.Errorf("Expected zero associate calls, got %d", len(associator.associateCalls()))
	}
	if result.ProjectID != "proj-1" || result.Stage != StageOutline {
		t.Errorf("Expected proj-1 routed to outline, got %+v", result)
	}
}

func TestSubmitDescriptionWithPresetTemplate(t *testing.T) {
	pointer := &memPointer{}
	creator := &fakeCreator{pointer: pointer, project: "proj-2"}
	associator := &fakeAssociator{}
	fetcher := &countingFetcher{payload: []byte("preset-bytes")}
	orch := NewOrchestrator(creator, associator, fetcher, pointer)
	sess := newTestSession("alice")

	sess.Registry.Add(model.Material{ID: "m1", ParseStatus: model.ParseDone})
	sess.Registry.Add(model.Material{ID: "m2", ParseStatus: model.ParseDone})
	sess.Template.SelectID("7")

	result, err := orch.Submit(context.Background(), sess, model.ModeDescription, "page descriptions")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if fetcher.calls != 1 || fetcher.lastID != "7" {
		t.Errorf("Expected one template fetch with id 7, got %d calls with %s", fetcher.calls, fetcher.lastID)
	}
	if string(creator.lastReq.template) != "preset-bytes" {
		t.Error("Expected fetched template bytes passed to creation")
	}
	if creator.createCalls() != 1 {
		t.Errorf("Expected one create call, got %d", creator.createCalls())
	}

	calls := associator.associateCalls()
	if len(calls) != 2 {
		t.Fatalf("Expected two associate calls, got %d", len(calls))
	}
	for _, id := range []string{"m1", "m2"} {
		if calls[id] != "proj-2" {
			t.Errorf("Expected %s associated with proj-2, got %s", id, calls[id])
		}
	}

	if result.Stage != StageDetail {
		t.Errorf("Expected detail stage for description mode, got %s", result.Stage)
	}
}

func TestSubmitAssociationFailureIsNonFatal(t *testing.T) {
	pointer := &memPointer{}
	creator := &fakeCreator{pointer: pointer, project: "proj-3"}
	associator := &fakeAssociator{fail: map[string]bool{"m1": true}}
	orch := NewOrchestrator(creator, associator, &countingFetcher{}, pointer)
	sess := newTestSession("alice")

	sess.Registry.Add(model.Material{ID: "m1", ParseStatus: model.ParseDone})
	sess.Registry.Add(model.Material{ID: "m2", ParseStatus: model.ParseDone})

	result, err := orch.Submit(context.Background(), sess, model.ModeOutline, "outline text")
	if err != nil {
		t.Fatalf("Expected association failure to be non-fatal, got %v", err)
	}
	if result.ProjectID != "proj-3" || result.Stage != StageOutline {
		t.Errorf("Expected navigation to proceed, got %+v", result)
	}
	if len(associator.associateCalls()) != 2 {
		t.Errorf("Expected both associate attempts, got %d", len(associator.associateCalls()))
	}
}

func TestSubmitCreationFailureStopsBeforeAssociation(t *testing.T) {
	creator := &fakeCreator{err: &CreationError{Message: "quota exceeded"}}
	associator := &fakeAssociator{}
	orch := NewOrchestrator(creator, associator, &countingFetcher{}, &memPointer{})
	sess := newTestSession("alice")
	sess.Registry.Add(model.Material{ID: "m1", ParseStatus: model.ParseDone})

	_, err := orch.Submit(context.Background(), sess, model.ModeIdea, "AI history talk")
	var ce *CreationError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected CreationError, got %v", err)
	}
	if len(associator.associateCalls()) != 0 {
		t.Error("Expected no association attempts after creation failure")
	}
}

func TestSubmitMissingProjectPointerIsCreationFailure(t *testing.T) {
	// Creation succeeds but never publishes a project id
	creator := &fakeCreator{}
	associator := &fakeAssociator{}
	orch := NewOrchestrator(creator, associator, &countingFetcher{}, &memPointer{})
	sess := newTestSession("alice")
	sess.Registry.Add(model.Material{ID: "m1", ParseStatus: model.ParseDone})

	_, err := orch.Submit(context.Background(), sess, model.ModeIdea, "AI history talk")
	var ce *CreationError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected CreationError, got %v", err)
	}
	if len(associator.associateCalls()) != 0 {
		t.Error("Expected no association attempts without a project id")
	}
}

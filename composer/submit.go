package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/acse-yz219/bananslides/model"
)

// Stages the UI routes to after a successful submission
const (
	StageOutline = "outline"
	StageDetail  = "detail"
)

type SubmitResult struct {
	ProjectID string `json:"project_id"`
	Stage     string `json:"stage"`
}

// Orchestrator validates overall readiness, resolves the template, creates
// the project, and binds the staged materials to it
type Orchestrator struct {
	creator    ProjectCreator
	associator Associator
	fetcher    TemplateFetcher
	pointer    ProjectPointer
}

func NewOrchestrator(creator ProjectCreator, associator Associator, fetcher TemplateFetcher, pointer ProjectPointer) *Orchestrator {
	return &Orchestrator{
		creator:    creator,
		associator: associator,
		fetcher:    fetcher,
		pointer:    pointer,
	}
}

// Submit runs the submission pipeline for a session. Validation failures
// mutate nothing; creation failures stop before any association; per-record
// association failures are logged and do not block the result.
func (o *Orchestrator) Submit(ctx context.Context, sess *Session, mode, content string) (*SubmitResult, error) {
	notifier := sess.Notifier()

	if !model.ValidMode(mode) {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown creation mode: %s", mode)}
	}

	if strings.TrimSpace(content) == "" {
		err := &ValidationError{Message: "content is required"}
		notifier.Notify(Notification{Message: err.Message, Severity: SeverityError})
		return nil, err
	}

	if n := sess.Registry.UnsettledCount(); n > 0 {
		err := &ValidationError{
			Message: fmt.Sprintf("%d reference files are still parsing, wait for them to finish", n),
		}
		notifier.Notify(Notification{Message: err.Message, Severity: SeverityInfo})
		return nil, err
	}

	template, err := sess.Template.Resolve(ctx, o.fetcher, sess.UserTemplates())
	if err != nil {
		notifier.Notify(Notification{Message: "failed to load the selected template", Severity: SeverityError})
		return nil, fmt.Errorf("resolve template: %w", err)
	}

	if err := o.creator.CreateProject(ctx, sess.Owner, mode, content, template); err != nil {
		msg := "project creation failed"
		var ce *CreationError
		if errors.As(err, &ce) && ce.Message != "" {
			msg = "project creation failed: " + ce.Message
		}
		notifier.Notify(Notification{Message: msg, Severity: SeverityError})
		return nil, err
	}

	projectID, ok := o.pointer.Get(CurrentProjectKey(sess.Owner))
	if !ok || projectID == "" {
		err := &CreationError{Message: "project creation failed"}
		notifier.Notify(Notification{Message: err.Message, Severity: SeverityError})
		return nil, err
	}

	// Best effort: a material that fails to associate stays globally staged,
	// the project and navigation proceed regardless.
	records := sess.Registry.Records()
	var wg sync.WaitGroup
	for _, rec := range records {
		wg.Add(1)
		go func(rec model.Material) {
			defer wg.Done()
			if err := o.associator.Associate(ctx, rec.ID, projectID); err != nil {
				slog.Warn("failed to associate reference file",
					"material_id", rec.ID,
					"project_id", projectID,
					"error", err,
				)
			}
		}(rec)
	}
	wg.Wait()

	stage := StageOutline
	if mode == model.ModeDescription {
		stage = StageDetail
	}
	return &SubmitResult{ProjectID: projectID, Stage: stage}, nil
}

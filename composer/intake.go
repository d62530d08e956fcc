package composer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/acse-yz219/bananslides/model"
)

// Clipboard item kinds
const (
	ItemKindFile = "file"
	ItemKindText = "text"
)

// ClipboardItem is one entry of a paste event as reported by the UI
type ClipboardItem struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Paste dispositions tell the UI, per item, whether the default paste
// behavior should be suppressed
const (
	DispositionUploaded = "uploaded"
	DispositionDefault  = "default"
)

type PasteDisposition struct {
	Name   string `json:"name"`
	Action string `json:"action"`
}

type intakeState int

const (
	stateIdle intakeState = iota
	stateUploading
)

// Intake receives raw input events (paste, file picker, selection dialog) and
// drives them through the upload gateway and parse trigger, updating the
// registry. At most one upload is in flight at a time; attempts while busy
// are dropped, not queued.
type Intake struct {
	gateway  UploadGateway
	trigger  ParseTrigger
	registry *Registry
	notifier Notifier
	allowed  map[string]bool

	mu    sync.Mutex
	state intakeState
}

func NewIntake(gateway UploadGateway, trigger ParseTrigger, registry *Registry, notifier Notifier, allowedExtensions []string) *Intake {
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &Intake{
		gateway:  gateway,
		trigger:  trigger,
		registry: registry,
		notifier: notifier,
		allowed:  allowed,
	}
}

// begin is the single busy-drop branch of the single-flight guard
func (in *Intake) begin() bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.state == stateUploading {
		return false
	}
	in.state = stateUploading
	return true
}

func (in *Intake) end() {
	in.mu.Lock()
	in.state = stateIdle
	in.mu.Unlock()
}

// fileExt returns the lowercase extension of a filename without the dot
func fileExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// UploadFile runs the shared upload routine for one file: upload globally
// staged, append the record, and kick off parsing when the record comes back
// pending. Returns ErrUploadBusy when dropped by the single-flight guard.
func (in *Intake) UploadFile(ctx context.Context, owner string, f File) (*model.Material, error) {
	if !in.begin() {
		slog.Debug("upload already in flight, dropping", "filename", f.Name)
		return nil, ErrUploadBusy
	}
	defer in.end()

	if ext := fileExt(f.Name); ext == "ppt" || ext == "pptx" {
		in.notifier.Notify(Notification{
			Message:  "Tip: convert slide decks to PDF before uploading for better parsing",
			Severity: SeverityInfo,
		})
	}

	rec, err := in.gateway.Upload(ctx, owner, f, "")
	if err != nil {
		msg := "file upload failed"
		var ue *UploadError
		if errors.As(err, &ue) && ue.Message != "" {
			msg = "file upload failed: " + ue.Message
		}
		in.notifier.Notify(Notification{Message: msg, Severity: SeverityError})
		return nil, err
	}

	in.registry.Add(*rec)
	in.notifier.Notify(Notification{Message: "file uploaded", Severity: SeveritySuccess})

	if rec.ParseStatus == model.ParsePending {
		res, err := in.trigger.Trigger(ctx, rec.ID)
		switch {
		case err != nil:
			// The upload itself succeeded; a trigger failure must not undo
			// the success already reported.
			slog.Warn("failed to trigger parse", "material_id", rec.ID, "error", err)
		case res != nil && res.Updated != nil:
			in.registry.Update(*res.Updated)
		default:
			// Acknowledged without a body: assume parsing is in flight and
			// wait for an out-of-band status update.
			in.registry.SetParseStatus(rec.ID, model.ParseRunning)
		}
	}

	return rec, nil
}

// HandlePaste inspects clipboard items and routes allowed files to upload.
// Items left to the default paste behavior are reported as such; allowed
// files suppress the default even when the upload itself fails.
func (in *Intake) HandlePaste(ctx context.Context, owner string, items []ClipboardItem) []PasteDisposition {
	dispositions := make([]PasteDisposition, 0, len(items))

	for _, item := range items {
		if item.Kind != ItemKindFile {
			dispositions = append(dispositions, PasteDisposition{Name: item.Name, Action: DispositionDefault})
			continue
		}

		ext := fileExt(item.Name)
		if !in.allowed[ext] {
			in.notifier.Notify(Notification{
				Message:  fmt.Sprintf("unsupported file type: %s", ext),
				Severity: SeverityInfo,
			})
			dispositions = append(dispositions, PasteDisposition{Name: item.Name, Action: DispositionDefault})
			continue
		}

		f := File{
			Name:        item.Name,
			Size:        int64(len(item.Data)),
			ContentType: item.ContentType,
			Data:        bytes.NewReader(item.Data),
		}
		if _, err := in.UploadFile(ctx, owner, f); err != nil && !errors.Is(err, ErrUploadBusy) {
			slog.Warn("paste upload failed", "filename", item.Name, "error", err)
		}
		dispositions = append(dispositions, PasteDisposition{Name: item.Name, Action: DispositionUploaded})
	}

	return dispositions
}

// HandlePicker uploads picker-selected files strictly sequentially, in
// selection order, so registry order matches what the user picked
func (in *Intake) HandlePicker(ctx context.Context, owner string, files []File) []model.Material {
	var staged []model.Material
	for _, f := range files {
		rec, err := in.UploadFile(ctx, owner, f)
		if err != nil {
			continue
		}
		staged = append(staged, *rec)
	}
	return staged
}

// AddSelection merges a selection-dialog result into the registry and reports
// how many files were chosen
func (in *Intake) AddSelection(selected []model.Material) {
	in.registry.MergeSelection(selected)
	in.notifier.Notify(Notification{
		Message:  fmt.Sprintf("added %d reference files", len(selected)),
		Severity: SeveritySuccess,
	})
}

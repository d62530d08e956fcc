package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acse-yz219/bananslides/composer"
	"github.com/acse-yz219/bananslides/middleware"
	"github.com/acse-yz219/bananslides/model"
	"github.com/acse-yz219/bananslides/service"
)

// ComposeHandler exposes the compose-page surface: paste intake, the staged
// material list, template selection, notifications, and submission
type ComposeHandler struct {
	catalog      *service.MaterialCatalog
	templates    *service.TemplateService
	sessions     *composer.SessionManager
	orchestrator *composer.Orchestrator
}

func NewComposeHandler(templates *service.TemplateService, sessions *composer.SessionManager, orchestrator *composer.Orchestrator) *ComposeHandler {
	return &ComposeHandler{
		catalog:      service.GetMaterialCatalog(),
		templates:    templates,
		sessions:     sessions,
		orchestrator: orchestrator,
	}
}

type PasteRequest struct {
	Items []composer.ClipboardItem `json:"items" binding:"required"`
}

// Paste routes clipboard items through intake and reports, per item, whether
// the default paste behavior should be suppressed
func (h *ComposeHandler) Paste(c *gin.Context) {
	owner := middleware.GetUser(c)
	sess := h.sessions.Get(owner)

	var req PasteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	dispositions := sess.Intake.HandlePaste(c.Request.Context(), owner, req.Items)
	c.JSON(http.StatusOK, gin.H{"dispositions": dispositions})
}

// Staged returns the session's staged material list in display order
func (h *ComposeHandler) Staged(c *gin.Context) {
	sess := h.sessions.Get(middleware.GetUser(c))
	c.JSON(http.StatusOK, gin.H{"materials": sess.Registry.Records()})
}

// RemoveStaged removes one material from the staged list. The catalog record
// survives; only the staging is undone.
func (h *ComposeHandler) RemoveStaged(c *gin.Context) {
	sess := h.sessions.Get(middleware.GetUser(c))
	sess.Registry.Remove(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Material removed"})
}

type SelectionRequest struct {
	MaterialIDs []string `json:"material_ids" binding:"required"`
}

// AddSelection merges a selection-dialog result into the staged list
func (h *ComposeHandler) AddSelection(c *gin.Context) {
	owner := middleware.GetUser(c)
	sess := h.sessions.Get(owner)

	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	selected := make([]model.Material, 0, len(req.MaterialIDs))
	for _, id := range req.MaterialIDs {
		material := h.catalog.Get(id)
		if material == nil || material.Owner != owner {
			c.JSON(http.StatusNotFound, gin.H{"error": "Material not found: " + id})
			return
		}
		selected = append(selected, *material)
	}

	sess.Intake.AddSelection(selected)
	c.JSON(http.StatusOK, gin.H{"materials": sess.Registry.Records()})
}

type SelectTemplateRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
}

// SelectTemplate records a template id choice; the bytes are resolved lazily
// at submit time
func (h *ComposeHandler) SelectTemplate(c *gin.Context) {
	sess := h.sessions.Get(middleware.GetUser(c))

	var req SelectTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	sess.Template.SelectID(req.TemplateID)
	c.JSON(http.StatusOK, gin.H{
		"template_id": req.TemplateID,
		"preset":      composer.IsPresetTemplateID(req.TemplateID),
	})
}

// SelectTemplateFile stages an uploaded template file directly as the active
// selection, displacing any selected id
func (h *ComposeHandler) SelectTemplateFile(c *gin.Context) {
	sess := h.sessions.Get(middleware.GetUser(c))

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	sess.Template.SelectFile(header.Filename, data)
	c.JSON(http.StatusOK, gin.H{"filename": header.Filename})
}

// ClearTemplate resets the template selection to none
func (h *ComposeHandler) ClearTemplate(c *gin.Context) {
	sess := h.sessions.Get(middleware.GetUser(c))
	sess.Template.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "Template selection cleared"})
}

// ListTemplates returns the user's saved templates and refreshes the session's
// copy used for lazy resolution
func (h *ComposeHandler) ListTemplates(c *gin.Context) {
	owner := middleware.GetUser(c)
	sess := h.sessions.Get(owner)

	templates := h.templates.ListByOwner(owner)
	sess.SetUserTemplates(templates)

	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// SaveTemplate stores a new user template in the library
func (h *ComposeHandler) SaveTemplate(c *gin.Context) {
	owner := middleware.GetUser(c)
	sess := h.sessions.Get(owner)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = header.Filename
	}

	tmpl, err := h.templates.SaveUserTemplate(c.Request.Context(), owner, name, data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save template: " + err.Error()})
		return
	}

	sess.SetUserTemplates(h.templates.ListByOwner(owner))
	c.JSON(http.StatusOK, tmpl)
}

// Notifications drains and returns the session's pending notifications
func (h *ComposeHandler) Notifications(c *gin.Context) {
	sess := h.sessions.Get(middleware.GetUser(c))
	notifications := sess.Notifications()
	if notifications == nil {
		notifications = []composer.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

type SubmitRequest struct {
	Mode    string `json:"mode" binding:"required"`
	Content string `json:"content"`
}

// Submit runs the submission pipeline and returns the new project id and the
// stage the UI should route to
func (h *ComposeHandler) Submit(c *gin.Context) {
	owner := middleware.GetUser(c)
	sess := h.sessions.Get(owner)

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.orchestrator.Submit(c.Request.Context(), sess, req.Mode, req.Content)
	if err != nil {
		writeSubmitError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func writeSubmitError(c *gin.Context, err error) {
	var ve *composer.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
		return
	}

	var ce *composer.CreationError
	if errors.As(err, &ce) {
		c.JSON(http.StatusBadGateway, gin.H{"error": ce.Message})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "Submission failed: " + err.Error()})
}

package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acse-yz219/bananslides/composer"
	"github.com/acse-yz219/bananslides/middleware"
	"github.com/acse-yz219/bananslides/service"
)

// MaterialHandler exposes the reference-material endpoints: upload, listing,
// parse retry, association, and deletion
type MaterialHandler struct {
	catalog  *service.MaterialCatalog
	storage  *service.MinioService
	docparse *service.DocparseService
	sessions *composer.SessionManager
}

func NewMaterialHandler(storage *service.MinioService, docparse *service.DocparseService, sessions *composer.SessionManager) *MaterialHandler {
	return &MaterialHandler{
		catalog:  service.GetMaterialCatalog(),
		storage:  storage,
		docparse: docparse,
		sessions: sessions,
	}
}

// Upload handles a single reference file upload from the compose page
func (h *MaterialHandler) Upload(c *gin.Context) {
	owner := middleware.GetUser(c)
	sess := h.sessions.Get(owner)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	f := composer.File{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Data:        file,
	}

	rec, err := sess.Intake.UploadFile(c.Request.Context(), owner, f)
	if err != nil {
		writeUploadError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// UploadBatch handles a file-picker selection: multiple files uploaded
// strictly in selection order
func (h *MaterialHandler) UploadBatch(c *gin.Context) {
	owner := middleware.GetUser(c)
	sess := h.sessions.Get(owner)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	files := make([]composer.File, 0, len(headers))
	opened := make([]io.Closer, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file: " + header.Filename})
			return
		}
		opened = append(opened, file)
		files = append(files, composer.File{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
			Data:        file,
		})
	}

	staged := sess.Intake.HandlePicker(c.Request.Context(), owner, files)
	c.JSON(http.StatusOK, gin.H{"materials": staged})
}

// List returns all of the user's materials from the catalog, oldest first
func (h *MaterialHandler) List(c *gin.Context) {
	owner := middleware.GetUser(c)
	materials := h.catalog.GetByOwner(owner)
	c.JSON(http.StatusOK, gin.H{"materials": materials})
}

// Parse re-triggers parsing for a material
func (h *MaterialHandler) Parse(c *gin.Context) {
	owner := middleware.GetUser(c)
	id := c.Param("id")

	material := h.catalog.Get(id)
	if material == nil || material.Owner != owner {
		c.JSON(http.StatusNotFound, gin.H{"error": "Material not found"})
		return
	}

	res, err := h.docparse.Trigger(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to trigger parse: " + err.Error()})
		return
	}

	if res.Updated != nil {
		h.sessions.PushStatus(*res.Updated)
		c.JSON(http.StatusOK, res.Updated)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Parse accepted"})
}

type AssociateRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
}

// Associate binds a material to a project
func (h *MaterialHandler) Associate(c *gin.Context) {
	owner := middleware.GetUser(c)
	id := c.Param("id")

	var req AssociateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	material := h.catalog.Get(id)
	if material == nil || material.Owner != owner {
		c.JSON(http.StatusNotFound, gin.H{"error": "Material not found"})
		return
	}

	if !h.catalog.Associate(id, req.ProjectID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Material not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Material associated"})
}

// Delete removes a material from the catalog and its object from storage
func (h *MaterialHandler) Delete(c *gin.Context) {
	owner := middleware.GetUser(c)
	id := c.Param("id")

	material := h.catalog.Get(id)
	if material == nil || material.Owner != owner {
		c.JSON(http.StatusNotFound, gin.H{"error": "Material not found"})
		return
	}

	if material.ObjectName != "" {
		if err := h.storage.DeleteFile(c.Request.Context(), material.ObjectName); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete file: " + err.Error()})
			return
		}
	}

	h.catalog.Delete(id)
	h.sessions.Get(owner).Registry.Remove(id)

	c.JSON(http.StatusOK, gin.H{"message": "Material deleted"})
}

func writeUploadError(c *gin.Context, err error) {
	if errors.Is(err, composer.ErrUploadBusy) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "An upload is already in progress"})
		return
	}

	var ue *composer.UploadError
	if errors.As(err, &ue) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ue.Message})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
}

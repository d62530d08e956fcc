package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acse-yz219/bananslides/composer"
	"github.com/acse-yz219/bananslides/config"
	"github.com/acse-yz219/bananslides/model"
	"github.com/acse-yz219/bananslides/service"
)

// CallbackHandler receives out-of-band parse results from the document-parse
// service and fans them into the catalog and any live compose session
type CallbackHandler struct {
	config   *config.DocparseConfig
	docparse *service.DocparseService
	catalog  *service.MaterialCatalog
	sessions *composer.SessionManager
}

func NewCallbackHandler(cfg *config.DocparseConfig, docparse *service.DocparseService, sessions *composer.SessionManager) *CallbackHandler {
	return &CallbackHandler{
		config:   cfg,
		docparse: docparse,
		catalog:  service.GetMaterialCatalog(),
		sessions: sessions,
	}
}

type CallbackRequest struct {
	UID      string `json:"uid"`
	Checksum string `json:"checksum"`
	Content  string `json:"content"`
}

type CallbackContent struct {
	TaskID   string `json:"task_id"`
	DataID   string `json:"data_id"`
	State    string `json:"state"` // done, failed
	ErrorMsg string `json:"err_msg"`
}

// HandleCallback receives a parse-status callback
func (h *CallbackHandler) HandleCallback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if h.config.Seed != "" && !h.docparse.VerifyCallback(req.Checksum, req.Content, req.UID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid checksum"})
		return
	}

	var content CallbackContent
	if err := json.Unmarshal([]byte(req.Content), &content); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content format"})
		return
	}

	// DataID carries our material id
	material := h.catalog.Get(content.DataID)
	if material == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Material not found"})
		return
	}

	switch content.State {
	case "done":
		h.catalog.UpdateParseStatus(material.ID, model.ParseDone, "")
	case "failed":
		h.catalog.UpdateParseStatus(material.ID, model.ParseFailed, content.ErrorMsg)
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
		return
	}

	if updated := h.catalog.Get(material.ID); updated != nil {
		h.sessions.PushStatus(*updated)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
}

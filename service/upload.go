package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/acse-yz219/bananslides/composer"
	"github.com/acse-yz219/bananslides/model"
	"github.com/google/uuid"
)

// Uploader implements the upload gateway: it stores the raw file in MINIO and
// registers a pending material record in the catalog
type Uploader struct {
	storage *MinioService
	catalog *MaterialCatalog
	allowed map[string]bool
}

func NewUploader(storage *MinioService, catalog *MaterialCatalog, allowedExtensions []string) *Uploader {
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &Uploader{
		storage: storage,
		catalog: catalog,
		allowed: allowed,
	}
}

// Upload transfers one file to storage and returns the new material record.
// An empty projectID stages the material globally.
func (u *Uploader) Upload(ctx context.Context, owner string, f composer.File, projectID string) (*model.Material, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
	if !u.allowed[ext] {
		return nil, &composer.UploadError{Message: fmt.Sprintf("unsupported file type: %s", ext)}
	}

	id := uuid.New().String()
	objectName := fmt.Sprintf("%s/%s.%s", owner, id, ext)

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := u.storage.UploadFile(ctx, objectName, f.Data, f.Size, contentType); err != nil {
		slog.Error("failed to store uploaded file", "filename", f.Name, "object", objectName, "error", err)
		return nil, &composer.UploadError{Message: "failed to store file"}
	}

	material := &model.Material{
		ID:          id,
		Filename:    f.Name,
		Size:        f.Size,
		ContentType: contentType,
		Owner:       owner,
		ProjectID:   projectID,
		ParseStatus: model.ParsePending,
		ObjectName:  objectName,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	u.catalog.Save(material)

	copied := *material
	return &copied, nil
}

// CatalogAssociator binds materials to projects in the catalog
type CatalogAssociator struct {
	catalog *MaterialCatalog
}

func NewCatalogAssociator(catalog *MaterialCatalog) *CatalogAssociator {
	return &CatalogAssociator{catalog: catalog}
}

func (a *CatalogAssociator) Associate(_ context.Context, materialID, projectID string) error {
	if !a.catalog.Associate(materialID, projectID) {
		return &composer.AssociationError{MaterialID: materialID, Err: errors.New("material not found")}
	}
	return nil
}

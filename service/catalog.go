package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/acse-yz219/bananslides/config"
	"github.com/acse-yz219/bananslides/model"
)

// MaterialCatalog is the in-memory catalog of all uploaded materials.
// In production, this should be replaced with a database.
type MaterialCatalog struct {
	materials    map[string]*model.Material
	mu           sync.RWMutex
	maxMaterials int // Maximum materials to keep, 0 = unlimited
}

var (
	globalCatalog *MaterialCatalog
	catalogOnce   sync.Once
)

// InitMaterialCatalog initializes the global material catalog with configuration
func InitMaterialCatalog(cfg *config.StoreConfig) {
	catalogOnce.Do(func() {
		maxMaterials := cfg.MaxMaterials
		if maxMaterials < 0 {
			maxMaterials = 0
		}
		globalCatalog = &MaterialCatalog{
			materials:    make(map[string]*model.Material),
			maxMaterials: maxMaterials,
		}
		slog.Info("material catalog initialized", "max_materials", maxMaterials)
	})
}

// GetMaterialCatalog returns the global material catalog
func GetMaterialCatalog() *MaterialCatalog {
	if globalCatalog == nil {
		// Fallback initialization with default settings
		globalCatalog = &MaterialCatalog{
			materials:    make(map[string]*model.Material),
			maxMaterials: 1000,
		}
	}
	return globalCatalog
}

func (s *MaterialCatalog) Save(material *model.Material) {
	s.mu.Lock()
	defer s.mu.Unlock()

	material.UpdatedAt = time.Now()
	s.materials[material.ID] = material

	// Cleanup if exceeds max
	s.cleanupIfNeeded()
}

// Get returns a copy of the material with the given id, or nil
func (s *MaterialCatalog) Get(id string) *model.Material {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.materials[id]
	if !ok {
		return nil
	}
	copied := *m
	return &copied
}

// GetByOwner returns copies of the owner's materials, oldest first
func (s *MaterialCatalog) GetByOwner(owner string) []*model.Material {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Material
	for _, m := range s.materials {
		if m.Owner == owner {
			copied := *m
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *MaterialCatalog) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.materials, id)
}

// UpdateParseStatus updates the parse status and error of a material
func (s *MaterialCatalog) UpdateParseStatus(id, status, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.materials[id]; ok {
		m.ParseStatus = status
		m.ParseError = errMsg
		m.UpdatedAt = time.Now()
	}
}

// SetTaskID records the parse task id handed out by the docparse service
func (s *MaterialCatalog) SetTaskID(id, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.materials[id]; ok {
		m.TaskID = taskID
		m.UpdatedAt = time.Now()
	}
}

// Associate binds a material to a project
func (s *MaterialCatalog) Associate(id, projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.materials[id]; ok {
		m.ProjectID = projectID
		m.UpdatedAt = time.Now()
		return true
	}
	return false
}

// cleanupIfNeeded removes oldest materials if the catalog exceeds maxMaterials
// Must be called with lock held
func (s *MaterialCatalog) cleanupIfNeeded() {
	if s.maxMaterials <= 0 {
		return // Unlimited
	}

	if len(s.materials) <= s.maxMaterials {
		return
	}

	// Sort materials by creation time
	materials := make([]*model.Material, 0, len(s.materials))
	for _, m := range s.materials {
		materials = append(materials, m)
	}
	sort.Slice(materials, func(i, j int) bool {
		return materials[i].CreatedAt.Before(materials[j].CreatedAt)
	})

	// Remove oldest materials
	removeCount := len(materials) - s.maxMaterials
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old material",
			"material_id", materials[i].ID,
			"created_at", materials[i].CreatedAt,
		)
		delete(s.materials, materials[i].ID)
	}
}

// Count returns the number of materials in the catalog
func (s *MaterialCatalog) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.materials)
}

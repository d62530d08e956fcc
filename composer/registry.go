package composer

import (
	"sync"

	"github.com/acse-yz219/bananslides/model"
)

// Registry is the ordered list of materials staged for the pending request.
// Ids are unique; order is insertion order and is user-visible. All mutation
// goes through these methods; callers never hold live references into it.
type Registry struct {
	mu      sync.Mutex
	records []model.Material
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a record, or replaces the existing entry with the same id
// (treated as a status refresh)
func (r *Registry) Add(rec model.Material) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.records {
		if r.records[i].ID == rec.ID {
			r.records[i] = rec
			return
		}
	}
	r.records = append(r.records, rec)
}

// Update replaces the record with the same id. Missing ids are ignored so
// status pushes may race with removal; last write wins.
func (r *Registry) Update(rec model.Material) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.records {
		if r.records[i].ID == rec.ID {
			r.records[i] = rec
			return
		}
	}
}

// SetParseStatus patches only the parse status of the record with the given
// id; no-op when absent
func (r *Registry) SetParseStatus(id, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.records {
		if r.records[i].ID == id {
			r.records[i].ParseStatus = status
			return
		}
	}
}

// Remove detaches the staging reference. The uploaded object itself is not
// touched.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.records {
		if r.records[i].ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return
		}
	}
}

// MergeSelection folds a picker-dialog result into the registry: records whose
// id already exists replace the staged entry in place (picking up any status
// change the selector observed), new ids are appended after all existing ones.
// Order of unreplaced entries is preserved.
func (r *Registry) MergeSelection(incoming []model.Material) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := make(map[string]int, len(r.records))
	for i := range r.records {
		index[r.records[i].ID] = i
	}

	for _, rec := range incoming {
		if i, ok := index[rec.ID]; ok {
			r.records[i] = rec
			continue
		}
		r.records = append(r.records, rec)
		index[rec.ID] = len(r.records) - 1
	}
}

// HasUnsettled reports whether any staged material is still pending or parsing
func (r *Registry) HasUnsettled() bool {
	return r.UnsettledCount() > 0
}

// UnsettledCount returns the number of staged materials not yet settled
func (r *Registry) UnsettledCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for i := range r.records {
		if !r.records[i].Settled() {
			count++
		}
	}
	return count
}

// Records returns a snapshot of the staged materials in insertion order
func (r *Registry) Records() []model.Material {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Material, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of staged materials
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

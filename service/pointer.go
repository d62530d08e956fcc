package service

import "sync"

// ProjectPointerStore is an in-memory key-value slot for per-user current
// project ids.
type ProjectPointerStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewProjectPointerStore() *ProjectPointerStore {
	return &ProjectPointerStore{
		values: make(map[string]string),
	}
}

func (p *ProjectPointerStore) Get(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

func (p *ProjectPointerStore) Set(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
}

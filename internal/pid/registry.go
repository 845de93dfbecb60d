package pid

import "sync"

// Registry is the set of identifiers already issued by one generator.
// It only grows; discard the Registry to start over.
type Registry struct {
	mu     sync.Mutex
	issued map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{issued: make(map[string]struct{})}
}

// Insert adds pid if it is not present and reports whether it was added.
// The check and the insert happen under one lock.
func (r *Registry) Insert(pid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.issued[pid]; ok {
		return false
	}
	r.issued[pid] = struct{}{}
	return true
}

// Contains reports whether pid has been issued.
func (r *Registry) Contains(pid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.issued[pid]
	return ok
}

// Len returns the number of issued identifiers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.issued)
}

// Package locks is the per-container lock registry named in spec.md §4.L4:
// a concurrent map from container id to a shared mutex handle, acquired
// around every lifecycle mutation so operations on the same container
// serialize while operations on different containers never contend.
// Grounded on the teacher's ContainerMutex (pkg/commands/docker.go), which
// protects the same kind of shared container slice but with one mutex for
// every container; this registry generalizes that to one mutex per
// container, the shape spec.md requires.
package locks

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is an append-only map keyed by container id. Per spec.md §9,
// freeing entries on container-delete is optional — leakage is bounded by
// the process-lifetime container count — so Get never removes anything.
type Registry struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{locks: map[uuid.UUID]*sync.Mutex{}}
}

// Get is insert-or-return: it returns the mutex for id, creating one the
// first time id is seen.
func (r *Registry) Get(id uuid.UUID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[id]
	if !ok {
		m = &sync.Mutex{}
		r.locks[id] = m
	}
	return m
}

// WithLock acquires the container's mutex, runs fn, and releases it on
// return — even if fn panics. Lock acquisition never times out, per
// spec.md §4.L4; the caller is responsible for its own timeout.
func (r *Registry) WithLock(id uuid.UUID, fn func() error) error {
	m := r.Get(id)
	m.Lock()
	defer m.Unlock()
	return fn()
}

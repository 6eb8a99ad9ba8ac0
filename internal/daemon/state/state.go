// Package state persists the agent's view of managed containers to disk,
// grounded on the teacher's DockerCommand.Containers in-memory slice
// (pkg/commands/docker.go) but adapted to add the on-disk round trip spec.md
// §4.L8 calls daemon-state.json: the full array is rewritten on every
// mutation and reloaded into an in-memory map on startup.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Allocation is the agent-side view of a bound (ip, port) pair, mirroring
// ContainerAllocation from the control-plane data model (spec.md §3) minus
// the fields only the control plane needs.
type Allocation struct {
	IP           string `json:"ip"`
	Port         int    `json:"port"`
	InternalPort int    `json:"internalPort"`
	Protocol     string `json:"protocol"`
	IsPrimary    bool   `json:"isPrimary"`
}

// PortMapping is the legacy port-overlay named in spec.md §3.
type PortMapping struct {
	HostPort      int    `json:"hostPort"`
	ContainerPort int    `json:"containerPort"`
	Protocol      string `json:"protocol"`
}

// Resources holds the resource-limit fields from the Container entity.
type Resources struct {
	MemoryMiB int     `json:"memoryMiB"`
	CPU       float64 `json:"cpu"`
	DiskMiB   int     `json:"diskMiB"`
	SwapMiB   int     `json:"swapMiB"`
	IOWeight  int     `json:"ioWeight"`
}

// Status is the lifecycle status of a managed container.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusUnknown Status = "unknown"
)

// Container is a managed container record, the agent's half of spec.md §3's
// Container entity (the control-plane owns the other half: owner, daemon
// relationship, billing-relevant fields).
type Container struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Image         string        `json:"image"`
	StartupScript string        `json:"startupScript,omitempty"`
	StopCommand   string        `json:"stopCommand"`
	Status        Status        `json:"status"`
	Resources     Resources     `json:"resources"`
	Allocations   []Allocation  `json:"allocations"`
	Ports         []PortMapping `json:"ports"`
	Env           map[string]string `json:"env,omitempty"`
}

// Store is the in-memory map of managed containers, backed by an on-disk
// JSON file rewritten on every mutation (spec.md §4.L8 "State persistence").
type Store struct {
	mu   sync.RWMutex
	path string
	data map[uuid.UUID]*Container
}

// New constructs a Store rooted at path, loading it if present. A missing
// file is not an error — it yields an empty map, per spec.md §4.L8.
func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[uuid.UUID]*Container{}}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var list []*Container
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range list {
		s.data[c.ID] = c
	}
	return nil
}

// save rewrites the whole file atomically: write to a temp file in the same
// directory, then rename over the target, so a crash mid-write never leaves
// a truncated state file behind.
func (s *Store) save() error {
	s.mu.RLock()
	list := make([]*Container, 0, len(s.data))
	for _, c := range s.data {
		list = append(list, c)
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".daemon-state-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}

// Put inserts or replaces a container record and persists the store.
func (s *Store) Put(c *Container) error {
	s.mu.Lock()
	s.data[c.ID] = c
	s.mu.Unlock()
	return s.save()
}

// Get returns the managed record for id, if any.
func (s *Store) Get(id uuid.UUID) (*Container, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.data[id]
	return c, ok
}

// Delete removes a managed record and persists the store.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	delete(s.data, id)
	s.mu.Unlock()
	return s.save()
}

// List returns every managed container, order unspecified.
func (s *Store) List() []*Container {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*Container, 0, len(s.data))
	for _, c := range s.data {
		list = append(list, c)
	}
	return list
}

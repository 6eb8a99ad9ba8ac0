package service

import (
	"github.com/google/uuid"

	"github.com/raptor-panel/raptor/internal/panel/model"
	"github.com/raptor-panel/raptor/pkg/idgen"
)

// CreateDaemonAllocation records a new bookable (IP, port) pair on a
// daemon (spec.md §3 Allocation).
func (s *Service) CreateDaemonAllocation(daemonID uuid.UUID, ip string, port int, protocol string) (*model.Allocation, error) {
	if protocol == "" {
		protocol = "tcp"
	}
	a := &model.Allocation{ID: idgen.New(), DaemonID: daemonID, IP: ip, Port: port, Protocol: protocol}
	if err := s.Store.CreateAllocation(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListDaemonAllocations(daemonID uuid.UUID) ([]model.Allocation, error) {
	return s.Store.ListAllocations(daemonID)
}

// AssignContainerAllocation implements spec.md §4.C2 "Assign / add /
// remove allocation": the allocation must belong to the same daemon as the
// container; uniqueness and primary bookkeeping are enforced atomically in
// the store layer.
func (s *Service) AssignContainerAllocation(containerID, allocationID uuid.UUID, primary bool) (*model.ContainerAllocation, error) {
	c, err := s.Store.GetContainer(containerID)
	if err != nil {
		return nil, err
	}
	alloc, err := s.lookupAllocation(allocationID, c.DaemonID)
	if err != nil {
		return nil, err
	}
	return s.Store.AssignAllocation(containerID, allocationID, alloc.IP, alloc.Port, alloc.Port, alloc.Protocol, primary)
}

// RemoveContainerAllocation implements the primary-promotion invariant
// from spec.md §3/§8 invariant 1.
func (s *Service) RemoveContainerAllocation(containerID, containerAllocationID uuid.UUID) error {
	return s.Store.RemoveAllocation(containerID, containerAllocationID)
}


package store

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/model"
	"github.com/raptor-panel/raptor/pkg/idgen"
)

func (s *Store) ListAllocations(daemonID uuid.UUID) ([]model.Allocation, error) {
	var allocs []model.Allocation
	if err := s.DB.Where("daemon_id = ?", daemonID).Find(&allocs).Error; err != nil {
		return nil, apierror.Database("list allocations", err)
	}
	return allocs, nil
}

func (s *Store) CreateAllocation(a *model.Allocation) error {
	if err := s.DB.Create(a).Error; err != nil {
		return apierror.Database("create allocation", err)
	}
	return nil
}

func (s *Store) ListContainerAllocations(containerID uuid.UUID) ([]model.ContainerAllocation, error) {
	var rows []model.ContainerAllocation
	if err := s.DB.Where("container_id = ?", containerID).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, apierror.Database("list container allocations", err)
	}
	return rows, nil
}

// AssignAllocation implements spec.md §3/§5's exclusivity and primary
// invariants (§8 invariants 1-2) in one transaction. The transaction runs at
// the database's default isolation and takes no row lock: the exclusivity
// pre-check gives a friendly apierror.BadRequest in the common case, and the
// unique index on ContainerAllocation.AllocationID rejects a concurrent
// second assign of the same allocation.
func (s *Store) AssignAllocation(containerID, allocationID uuid.UUID, ip string, port, internalPort int, protocol string, primary bool) (*model.ContainerAllocation, error) {
	var created *model.ContainerAllocation
	err := s.DB.Transaction(func(tx *txDB) error {
		var existing model.ContainerAllocation
		err := tx.Where("allocation_id = ?", allocationID).First(&existing).Error
		if err == nil {
			return apierror.BadRequest("Allocation is already in use")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if primary {
			if err := tx.Model(&model.ContainerAllocation{}).
				Where("container_id = ? AND is_primary = true", containerID).
				Update("is_primary", false).Error; err != nil {
				return err
			}
		} else {
			var count int64
			if err := tx.Model(&model.ContainerAllocation{}).Where("container_id = ?", containerID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				primary = true
			}
		}

		row := model.ContainerAllocation{
			ID:           idgen.New(),
			ContainerID:  containerID,
			AllocationID: &allocationID,
			IP:           ip,
			Port:         port,
			InternalPort: internalPort,
			Protocol:     protocol,
			IsPrimary:    primary,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		created = &row
		return nil
	})
	if err != nil {
		if ae, ok := apierror.As(err); ok {
			return nil, ae
		}
		return nil, apierror.Database("assign allocation", err)
	}
	return created, nil
}

// RemoveAllocation deletes a container-allocation row and, if it was
// primary, promotes the oldest remaining row in the same transaction
// (spec.md §3 "after deletion of the primary, the oldest remaining is
// promoted").
func (s *Store) RemoveAllocation(containerID, containerAllocationID uuid.UUID) error {
	return s.DB.Transaction(func(tx *txDB) error {
		var row model.ContainerAllocation
		if err := tx.First(&row, "id = ? AND container_id = ?", containerAllocationID, containerID).Error; err != nil {
			return translateNotFound(err, "container allocation")
		}
		if err := tx.Delete(&row).Error; err != nil {
			return err
		}
		if !row.IsPrimary {
			return nil
		}
		var next model.ContainerAllocation
		err := tx.Where("container_id = ?", containerID).Order("created_at asc").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&next).Update("is_primary", true).Error
	})
}

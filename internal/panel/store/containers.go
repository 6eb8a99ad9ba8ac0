package store

import (
	"github.com/google/uuid"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/model"
)

func (s *Store) GetContainer(id uuid.UUID) (*model.Container, error) {
	var c model.Container
	if err := s.DB.First(&c, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err, "container")
	}
	return &c, nil
}

func (s *Store) ListContainersForOwner(ownerID uuid.UUID) ([]model.Container, error) {
	var containers []model.Container
	if err := s.DB.Where("owner_user_id = ?", ownerID).Find(&containers).Error; err != nil {
		return nil, apierror.Database("list containers", err)
	}
	return containers, nil
}

func (s *Store) ListAllContainers() ([]model.Container, error) {
	var containers []model.Container
	if err := s.DB.Find(&containers).Error; err != nil {
		return nil, apierror.Database("list containers", err)
	}
	return containers, nil
}

func (s *Store) CreateContainer(c *model.Container) error {
	if err := s.DB.Create(c).Error; err != nil {
		return apierror.Database("create container", err)
	}
	return nil
}

func (s *Store) UpdateContainer(c *model.Container) error {
	if err := s.DB.Save(c).Error; err != nil {
		return apierror.Database("update container", err)
	}
	return nil
}

func (s *Store) UpdateContainerStatus(id uuid.UUID, status model.ContainerStatus) error {
	if err := s.DB.Model(&model.Container{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return apierror.Database("update container status", err)
	}
	return nil
}

// DeleteContainer cascades to its allocations, ports, and shared-access
// grants, per spec.md §3's ownership tree.
func (s *Store) DeleteContainer(id uuid.UUID) error {
	return s.DB.Transaction(func(tx *txDB) error {
		if err := tx.Delete(&model.ContainerAllocation{}, "container_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.PortMapping{}, "container_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.ContainerUser{}, "container_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Container{}, "id = ?", id).Error
	})
}

func (s *Store) AddContainerUser(cu *model.ContainerUser) error {
	if err := s.DB.Create(cu).Error; err != nil {
		return apierror.Database("add container user", err)
	}
	return nil
}

func (s *Store) RemoveContainerUser(containerID, userID uuid.UUID) error {
	if err := s.DB.Delete(&model.ContainerUser{}, "container_id = ? AND user_id = ?", containerID, userID).Error; err != nil {
		return apierror.Database("remove container user", err)
	}
	return nil
}

func (s *Store) ListContainerPorts(containerID uuid.UUID) ([]model.PortMapping, error) {
	var ports []model.PortMapping
	if err := s.DB.Where("container_id = ?", containerID).Find(&ports).Error; err != nil {
		return nil, apierror.Database("list container ports", err)
	}
	return ports, nil
}

func (s *Store) CreatePortMapping(p *model.PortMapping) error {
	if err := s.DB.Create(p).Error; err != nil {
		return apierror.Database("create port mapping", err)
	}
	return nil
}

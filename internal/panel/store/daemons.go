package store

import (
	"github.com/google/uuid"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/model"
)

func (s *Store) GetDaemon(id uuid.UUID) (*model.Daemon, error) {
	var d model.Daemon
	if err := s.DB.First(&d, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err, "daemon")
	}
	return &d, nil
}

func (s *Store) ListDaemons() ([]model.Daemon, error) {
	var daemons []model.Daemon
	if err := s.DB.Find(&daemons).Error; err != nil {
		return nil, apierror.Database("list daemons", err)
	}
	return daemons, nil
}

func (s *Store) CreateDaemon(d *model.Daemon) error {
	if err := s.DB.Create(d).Error; err != nil {
		return apierror.Database("create daemon", err)
	}
	return nil
}

func (s *Store) UpdateDaemon(d *model.Daemon) error {
	if err := s.DB.Save(d).Error; err != nil {
		return apierror.Database("update daemon", err)
	}
	return nil
}

// DeleteDaemon cascades to its allocations, ip-pools, and containers, per
// spec.md §3's ownership tree ("daemons→{allocations, ip-pools,
// containers}").
func (s *Store) DeleteDaemon(id uuid.UUID) error {
	return s.DB.Transaction(func(tx *txDB) error {
		if err := tx.Delete(&model.Allocation{}, "daemon_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.IpPool{}, "daemon_id = ?", id).Error; err != nil {
			return err
		}
		var containerIDs []uuid.UUID
		if err := tx.Model(&model.Container{}).Where("daemon_id = ?", id).Pluck("id", &containerIDs).Error; err != nil {
			return err
		}
		if len(containerIDs) > 0 {
			if err := tx.Delete(&model.ContainerAllocation{}, "container_id IN ?", containerIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&model.PortMapping{}, "container_id IN ?", containerIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&model.ContainerUser{}, "container_id IN ?", containerIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&model.Container{}, "daemon_id = ?", id).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Daemon{}, "id = ?", id).Error
	})
}

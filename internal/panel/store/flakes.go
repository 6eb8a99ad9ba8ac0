package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/model"
)

func (s *Store) GetFlake(id uuid.UUID) (*model.Flake, error) {
	var f model.Flake
	if err := s.DB.Preload("Variables").First(&f, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err, "flake")
	}
	return &f, nil
}

func (s *Store) ListFlakes() ([]model.Flake, error) {
	var flakes []model.Flake
	if err := s.DB.Preload("Variables").Find(&flakes).Error; err != nil {
		return nil, apierror.Database("list flakes", err)
	}
	return flakes, nil
}

func (s *Store) DeleteFlake(id uuid.UUID) error {
	return s.DB.Transaction(func(tx *txDB) error {
		if err := tx.Delete(&model.FlakeVariable{}, "flake_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Flake{}, "id = ?", id).Error
	})
}

// ImportFlake implements spec.md §3 "Import is idempotent on slug (suffix
// _N)" and §5's transactional guarantee ("slug resolution + flake row
// insert + variables insert is a transaction"): it resolves a free slug by
// appending _2, _3, ... if the requested slug is taken, then inserts the
// flake and its variables atomically.
func (s *Store) ImportFlake(f *model.Flake) error {
	return s.DB.Transaction(func(tx *txDB) error {
		baseSlug := f.Slug
		suffix := 1
		for {
			var existing model.Flake
			err := tx.Where("slug = ?", f.Slug).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			if err != nil {
				return err
			}
			suffix++
			f.Slug = fmt.Sprintf("%s_%d", baseSlug, suffix)
		}
		if err := tx.Omit("Variables").Create(f).Error; err != nil {
			return err
		}
		for i := range f.Variables {
			f.Variables[i].FlakeID = f.ID
			if err := tx.Create(&f.Variables[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

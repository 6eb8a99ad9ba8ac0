package store

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/model"
)

func (s *Store) GetUserByID(id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := s.DB.Preload("Role.Permissions").First(&u, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err, "user")
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(username string) (*model.User, error) {
	var u model.User
	if err := s.DB.Preload("Role.Permissions").First(&u, "username = ?", username).Error; err != nil {
		return nil, translateNotFound(err, "user")
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(email string) (*model.User, error) {
	var u model.User
	if err := s.DB.First(&u, "email = ?", email).Error; err != nil {
		return nil, translateNotFound(err, "user")
	}
	return &u, nil
}

func (s *Store) ListUsers() ([]model.User, error) {
	var users []model.User
	if err := s.DB.Preload("Role").Find(&users).Error; err != nil {
		return nil, apierror.Database("list users", err)
	}
	return users, nil
}

func (s *Store) CreateUser(u *model.User) error {
	if err := s.DB.Create(u).Error; err != nil {
		return apierror.Database("create user", err)
	}
	return nil
}

func (s *Store) UpdateUser(u *model.User) error {
	if err := s.DB.Save(u).Error; err != nil {
		return apierror.Database("update user", err)
	}
	return nil
}

func (s *Store) DeleteUser(id uuid.UUID) error {
	if err := s.DB.Delete(&model.User{}, "id = ?", id).Error; err != nil {
		return apierror.Database("delete user", err)
	}
	return nil
}

// UserPermissionNames returns the names granted directly to a user (not via
// role), used to compute the effective set (spec.md §8 invariant 8).
func (s *Store) UserPermissionNames(userID uuid.UUID) ([]string, error) {
	var names []string
	err := s.DB.Model(&model.Permission{}).
		Joins("JOIN user_permissions up ON up.permission_id = permissions.id").
		Where("up.user_id = ?", userID).
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, apierror.Database("load user permissions", err)
	}
	return names, nil
}

func translateNotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound(what + " not found")
	}
	return apierror.Database("query "+what, err)
}

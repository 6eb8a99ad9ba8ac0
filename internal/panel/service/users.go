package service

import (
	"github.com/google/uuid"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/auth"
	"github.com/raptor-panel/raptor/internal/panel/model"
	"github.com/raptor-panel/raptor/pkg/idgen"
)

func (s *Service) ListUsers() ([]model.User, error) { return s.Store.ListUsers() }

func (s *Service) GetUser(id uuid.UUID) (*model.User, error) { return s.Store.GetUserByID(id) }

// CreateUser is the admin-initiated path (as opposed to self-registration,
// which goes through Service.Register).
func (s *Service) CreateUser(username, email, password string, roleID *uuid.UUID) (*model.User, error) {
	hash, err := auth.HashPassword(password, s.BcryptCost)
	if err != nil {
		return nil, apierror.Internal("hash password", err)
	}
	var emailPtr *string
	if email != "" {
		emailPtr = &email
	}
	u := &model.User{ID: idgen.New(), Username: username, Email: emailPtr, PasswordHash: hash, RoleID: roleID}
	if err := s.Store.CreateUser(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) UpdateUser(u *model.User) error { return s.Store.UpdateUser(u) }

func (s *Service) DeleteUser(id uuid.UUID) error { return s.Store.DeleteUser(id) }

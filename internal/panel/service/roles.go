package service

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/model"
	"github.com/raptor-panel/raptor/internal/panel/rbac"
	"github.com/raptor-panel/raptor/pkg/idgen"
)

func (s *Service) ListRoles() ([]model.Role, error) {
	var roles []model.Role
	if err := s.Store.DB.Preload("Permissions").Find(&roles).Error; err != nil {
		return nil, apierror.Database("list roles", err)
	}
	return roles, nil
}

func (s *Service) CreateRole(name string, permissionNames []string) (*model.Role, error) {
	var perms []model.Permission
	if err := s.Store.DB.Where("name IN ?", permissionNames).Find(&perms).Error; err != nil {
		return nil, apierror.Database("load permissions", err)
	}
	role := model.Role{ID: idgen.New(), Name: name, Permissions: perms}
	if err := s.Store.DB.Create(&role).Error; err != nil {
		return nil, apierror.Database("create role", err)
	}
	return &role, nil
}

// DeleteRole refuses to delete the three built-ins, per spec.md §3 "Three
// built-in roles with fixed IDs ... may not be deleted".
func (s *Service) DeleteRole(id uuid.UUID) error {
	if id == rbac.AdminRoleID || id == rbac.ManagerRoleID || id == rbac.UserRoleID {
		return apierror.BadRequest("built-in roles cannot be deleted")
	}
	if err := s.Store.DB.Select("Permissions").Delete(&model.Role{ID: id}).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apierror.NotFound("role not found")
		}
		return apierror.Database("delete role", err)
	}
	return nil
}

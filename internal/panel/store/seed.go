package store

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/raptor-panel/raptor/internal/panel/model"
	"github.com/raptor-panel/raptor/internal/panel/rbac"
	"github.com/raptor-panel/raptor/pkg/idgen"
)

// SeedRBAC upserts the closed permission enum and the three built-in roles
// with their default grants (spec.md §6), idempotently so it is safe to run
// on every startup.
func (s *Store) SeedRBAC() error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		permByName := make(map[string]model.Permission, len(rbac.Permissions))
		for _, name := range rbac.Permissions {
			p := model.Permission{ID: idgen.New(), Name: name}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).Create(&p).Error; err != nil {
				return err
			}
			var existing model.Permission
			if err := tx.Where("name = ?", name).First(&existing).Error; err != nil {
				return err
			}
			permByName[name] = existing
		}

		for roleName, roleID := range map[string]string{
			rbac.RoleAdmin:   rbac.AdminRoleID.String(),
			rbac.RoleManager: rbac.ManagerRoleID.String(),
			rbac.RoleUser:    rbac.UserRoleID.String(),
		} {
			id, err := idgen.Parse(roleID)
			if err != nil {
				return err
			}
			role := model.Role{ID: id, Name: roleName}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(&role).Error; err != nil {
				return err
			}

			var perms []model.Permission
			for _, name := range rbac.RoleDefaults[roleName] {
				perms = append(perms, permByName[name])
			}
			if err := tx.Model(&role).Association("Permissions").Replace(perms); err != nil {
				return err
			}
		}

		return nil
	})
}

// SeedAdmin creates the bootstrap administrator account from
// ADMIN_{USERNAME,EMAIL,PASSWORD} if no user with that username exists yet.
func (s *Store) SeedAdmin(username, email, password string, bcryptCost int) error {
	if username == "" || password == "" {
		return nil
	}
	var count int64
	if err := s.DB.Model(&model.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}
	var emailPtr *string
	if email != "" {
		emailPtr = &email
	}
	user := model.User{
		ID:           idgen.New(),
		Username:     username,
		Email:        emailPtr,
		PasswordHash: string(hash),
		RoleID:       &rbac.AdminRoleID,
	}
	return s.DB.Create(&user).Error
}

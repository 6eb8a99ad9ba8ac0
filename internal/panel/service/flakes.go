package service

import (
	"github.com/google/uuid"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/model"
	"github.com/raptor-panel/raptor/pkg/idgen"
)

func (s *Service) ListFlakes() ([]model.Flake, error) { return s.Store.ListFlakes() }

func (s *Service) GetFlake(id uuid.UUID) (*model.Flake, error) { return s.Store.GetFlake(id) }

func (s *Service) DeleteFlake(id uuid.UUID) error { return s.Store.DeleteFlake(id) }

type FlakeVariableInput struct {
	Name         string
	Description  string
	EnvVariable  string
	DefaultValue string
	Rules        string
	UserViewable bool
	UserEditable bool
	SortOrder    int
}

// ImportFlake implements spec.md §3 "Import is idempotent on slug (suffix
// _N)": the service assigns fresh IDs, then delegates slug resolution and
// the transactional insert to the store layer.
func (s *Service) ImportFlake(name, slug, author, description, dockerImage, startupCommand, configFiles, startupDetection, installScript string, vars []FlakeVariableInput) (*model.Flake, error) {
	f := &model.Flake{
		ID:             idgen.New(),
		Name:           name,
		Slug:           slug,
		DockerImage:    dockerImage,
		StartupCommand: startupCommand,
		ConfigFiles:    configFiles,
	}
	if author != "" {
		f.Author = &author
	}
	if description != "" {
		f.Description = &description
	}
	if startupDetection != "" {
		f.StartupDetection = &startupDetection
	}
	if installScript != "" {
		f.InstallScript = &installScript
	}
	for _, v := range vars {
		fv := model.FlakeVariable{
			ID: idgen.New(), Name: v.Name, EnvVariable: v.EnvVariable, Rules: v.Rules,
			UserViewable: v.UserViewable, UserEditable: v.UserEditable, SortOrder: v.SortOrder,
		}
		if v.Description != "" {
			fv.Description = &v.Description
		}
		if v.DefaultValue != "" {
			fv.DefaultValue = &v.DefaultValue
		}
		f.Variables = append(f.Variables, fv)
	}
	if err := s.Store.ImportFlake(f); err != nil {
		return nil, err
	}
	return f, nil
}

// ShareContainer grants another user access to a container the caller owns
// (spec.md §3 ContainerUser; owner never appears in this table).
func (s *Service) ShareContainer(containerID, userID uuid.UUID, permissionLevel string) error {
	c, err := s.Store.GetContainer(containerID)
	if err != nil {
		return err
	}
	if c.OwnerUserID == userID {
		return apierror.BadRequest("owner already has full access")
	}
	return s.Store.AddContainerUser(&model.ContainerUser{
		ContainerID: containerID, UserID: userID, PermissionLevel: permissionLevel,
	})
}

func (s *Service) UnshareContainer(containerID, userID uuid.UUID) error {
	return s.Store.RemoveContainerUser(containerID, userID)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raptor-panel/raptor/internal/panel/service"
)

func (s *Server) handleListFlakes(c *gin.Context) {
	flakes, err := s.Service.ListFlakes()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flakes)
}

func (s *Server) handleGetFlake(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	flake, err := s.Service.GetFlake(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flake)
}

func (s *Server) handleDeleteFlake(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := s.Service.DeleteFlake(id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type importFlakeVariableRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	EnvVariable  string `json:"envVariable" binding:"required"`
	DefaultValue string `json:"defaultValue"`
	Rules        string `json:"rules"`
	UserViewable bool   `json:"userViewable"`
	UserEditable bool   `json:"userEditable"`
	SortOrder    int    `json:"sortOrder"`
}

type importFlakeRequest struct {
	Name             string                       `json:"name" binding:"required"`
	Slug             string                       `json:"slug" binding:"required"`
	Author           string                       `json:"author"`
	Description      string                       `json:"description"`
	DockerImage      string                       `json:"dockerImage" binding:"required"`
	StartupCommand   string                       `json:"startupCommand" binding:"required"`
	ConfigFiles      string                       `json:"configFiles"`
	StartupDetection string                       `json:"startupDetection"`
	InstallScript    string                       `json:"installScript"`
	Variables        []importFlakeVariableRequest `json:"variables"`
}

func (s *Server) handleImportFlake(c *gin.Context) {
	var req importFlakeRequest
	if !bindJSON(c, &req) {
		return
	}
	vars := make([]service.FlakeVariableInput, 0, len(req.Variables))
	for _, v := range req.Variables {
		vars = append(vars, service.FlakeVariableInput{
			Name: v.Name, Description: v.Description, EnvVariable: v.EnvVariable,
			DefaultValue: v.DefaultValue, Rules: v.Rules,
			UserViewable: v.UserViewable, UserEditable: v.UserEditable, SortOrder: v.SortOrder,
		})
	}
	flake, err := s.Service.ImportFlake(req.Name, req.Slug, req.Author, req.Description, req.DockerImage,
		req.StartupCommand, req.ConfigFiles, req.StartupDetection, req.InstallScript, vars)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, flake)
}

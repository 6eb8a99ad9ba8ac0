package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListRoles(c *gin.Context) {
	roles, err := s.Service.ListRoles()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

type createRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Permissions []string `json:"permissions"`
}

func (s *Server) handleCreateRole(c *gin.Context) {
	var req createRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := s.Service.CreateRole(req.Name, req.Permissions)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, role)
}

func (s *Server) handleDeleteRole(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := s.Service.DeleteRole(id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.Service.ListUsers()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) handleGetUser(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	user, err := s.Service.GetUser(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type createUserRequest struct {
	Username string     `json:"username" binding:"required"`
	Email    string     `json:"email"`
	Password string     `json:"password" binding:"required"`
	RoleID   *uuid.UUID `json:"roleId"`
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.Service.CreateUser(req.Username, req.Email, req.Password, req.RoleID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type updateUserRequest struct {
	Email  *string    `json:"email"`
	RoleID *uuid.UUID `json:"roleId"`
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.Service.GetUser(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if req.Email != nil {
		user.Email = req.Email
	}
	if req.RoleID != nil {
		user.RoleID = req.RoleID
	}
	if err := s.Service.UpdateUser(user); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := s.Service.DeleteUser(id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

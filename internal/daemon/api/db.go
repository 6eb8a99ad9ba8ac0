package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raptor-panel/raptor/internal/daemon/dbprovisioner"
)

type ensureDatabaseServerRequest struct {
	Type         dbprovisioner.EngineType `json:"type" binding:"required"`
	RootPassword string                   `json:"rootPassword" binding:"required"`
}

// handleEnsureDatabaseServer implements spec.md §4.L8 "Database
// operations: create-server ... acquires the singleton server lock and
// calls into the provisioner".
func (s *Server) handleEnsureDatabaseServer(c *gin.Context) {
	var req ensureDatabaseServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	server, err := s.Provisioner.EnsureRunning(c.Request.Context(), req.Type, req.RootPassword)
	if err != nil {
		writeError(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, server)
}

func (s *Server) handleListDatabaseServers(c *gin.Context) {
	c.JSON(http.StatusOK, s.Provisioner.Servers())
}

type userDBRequest struct {
	ServerType dbprovisioner.EngineType `json:"type" binding:"required"`
	DBName     string                   `json:"dbName" binding:"required"`
	DBUser     string                   `json:"dbUser" binding:"required"`
	DBPassword string                   `json:"dbPassword"`
}

func (s *Server) lookupDatabaseServer(c *gin.Context, t dbprovisioner.EngineType) (*dbprovisioner.Server, bool) {
	for _, server := range s.Provisioner.Servers() {
		if server.Type == t {
			return server, true
		}
	}
	writeError(c, http.StatusNotFound, "database server not provisioned")
	return nil, false
}

// handleCreateUserDB implements spec.md §4.L5 "Per-user DB creation".
func (s *Server) handleCreateUserDB(c *gin.Context) {
	var req userDBRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	server, ok := s.lookupDatabaseServer(c, req.ServerType)
	if !ok {
		return
	}
	err := s.Provisioner.CreateUserDB(c.Request.Context(), server, dbprovisioner.UserDB{
		ServerName: server.Name,
		Type:       server.Type,
		DBName:     req.DBName,
		DBUser:     req.DBUser,
		DBPassword: req.DBPassword,
	})
	if err != nil {
		writeError(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleDeleteUserDB implements spec.md §4.L5 "Delete ... best-effort
// teardown", so it always reports success once dispatched.
func (s *Server) handleDeleteUserDB(c *gin.Context) {
	var req userDBRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	server, ok := s.lookupDatabaseServer(c, req.ServerType)
	if !ok {
		return
	}
	s.Provisioner.DeleteUserDB(c.Request.Context(), server, dbprovisioner.UserDB{
		ServerName: server.Name,
		Type:       server.Type,
		DBName:     req.DBName,
		DBUser:     req.DBUser,
	})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type resetUserDBPasswordRequest struct {
	ServerType  dbprovisioner.EngineType `json:"type" binding:"required"`
	DBName      string                   `json:"dbName" binding:"required"`
	DBUser      string                   `json:"dbUser" binding:"required"`
	NewPassword string                   `json:"newPassword" binding:"required"`
}

func (s *Server) handleResetUserDBPassword(c *gin.Context) {
	var req resetUserDBPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	server, ok := s.lookupDatabaseServer(c, req.ServerType)
	if !ok {
		return
	}
	err := s.Provisioner.ResetPassword(c.Request.Context(), server, dbprovisioner.UserDB{
		ServerName: server.Name,
		Type:       server.Type,
		DBName:     req.DBName,
		DBUser:     req.DBUser,
	}, req.NewPassword)
	if err != nil {
		writeError(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

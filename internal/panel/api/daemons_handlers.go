package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListDaemons(c *gin.Context) {
	daemons, err := s.Service.ListDaemons()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, daemons)
}

func (s *Server) handleGetDaemon(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	daemon, err := s.Service.GetDaemon(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, daemon)
}

type createDaemonRequest struct {
	Name     string  `json:"name" binding:"required"`
	Host     string  `json:"host" binding:"required"`
	Port     int     `json:"port" binding:"required"`
	APIKey   string  `json:"apiKey" binding:"required"`
	Location *string `json:"location"`
	Secure   bool    `json:"secure"`
}

func (s *Server) handleCreateDaemon(c *gin.Context) {
	var req createDaemonRequest
	if !bindJSON(c, &req) {
		return
	}
	daemon, err := s.Service.CreateDaemon(req.Name, req.Host, req.Port, req.APIKey, req.Location, req.Secure)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, daemon)
}

type updateDaemonRequest struct {
	Name     *string `json:"name"`
	Host     *string `json:"host"`
	Port     *int    `json:"port"`
	APIKey   *string `json:"apiKey"`
	Location *string `json:"location"`
	Secure   *bool   `json:"secure"`
}

func (s *Server) handleUpdateDaemon(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	daemon, err := s.Service.GetDaemon(id)
	if err != nil {
		writeError(c, err)
		return
	}
	var req updateDaemonRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Name != nil {
		daemon.Name = *req.Name
	}
	if req.Host != nil {
		daemon.Host = *req.Host
	}
	if req.Port != nil {
		daemon.Port = *req.Port
	}
	if req.APIKey != nil {
		daemon.APIKey = *req.APIKey
	}
	if req.Location != nil {
		daemon.Location = req.Location
	}
	if req.Secure != nil {
		daemon.Secure = *req.Secure
	}
	if err := s.Service.UpdateDaemon(daemon); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, daemon)
}

func (s *Server) handleDeleteDaemon(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := s.Service.DeleteDaemon(id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleDaemonHealth probes the agent on demand; health is never
// persisted, per spec.md §3.
func (s *Server) handleDaemonHealth(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	daemon, err := s.Service.GetDaemon(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.Service.HealthCheck(c.Request.Context(), daemon); err != nil {
		c.JSON(http.StatusOK, gin.H{"healthy": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"healthy": true})
}

func (s *Server) handleListAllocations(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	allocs, err := s.Service.ListDaemonAllocations(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, allocs)
}

type createAllocationRequest struct {
	IP       string `json:"ip" binding:"required"`
	Port     int    `json:"port" binding:"required"`
	Protocol string `json:"protocol"`
}

func (s *Server) handleCreateAllocation(c *gin.Context) {
	daemonID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req createAllocationRequest
	if !bindJSON(c, &req) {
		return
	}
	alloc, err := s.Service.CreateDaemonAllocation(daemonID, req.IP, req.Port, req.Protocol)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alloc)
}

func (s *Server) handleListDatabaseServers(c *gin.Context) {
	servers, err := s.Service.ListDatabaseServers()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, servers)
}

type ensureDatabaseServerRequest struct {
	DaemonID     string `json:"daemonId" binding:"required"`
	Type         string `json:"type" binding:"required"`
	RootPassword string `json:"rootPassword" binding:"required"`
}

func (s *Server) handleEnsureDatabaseServer(c *gin.Context) {
	var req ensureDatabaseServerRequest
	if !bindJSON(c, &req) {
		return
	}
	daemonID, ok := parseUUIDField(c, req.DaemonID)
	if !ok {
		return
	}
	server, err := s.Service.EnsureDatabaseServer(c.Request.Context(), daemonID, daemonEngineType(req.Type), req.RootPassword)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, server)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/panel/model"
	"github.com/raptor-panel/raptor/internal/panel/rbac"
	"github.com/raptor-panel/raptor/internal/panel/service"
)

// handleListContainers returns every container when the caller holds
// containers.view_all, and otherwise only the containers the caller owns.
// Containers shared with the caller through ContainerUser are not listed.
func (s *Server) handleListContainers(c *gin.Context) {
	claims := currentClaims(c)
	if claims == nil {
		writeError(c, apierror.Unauthorized("not authenticated"))
		return
	}
	perms := effectivePermissions(claims)
	if rbac.HasAny(perms, "containers.view_all") {
		containers, err := s.Service.Store.ListAllContainers()
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, containers)
		return
	}
	userID, err := currentUserID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	containers, err := s.Service.Store.ListContainersForOwner(userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, containers)
}

func (s *Server) handleGetContainer(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	container, err := s.Service.Store.GetContainer(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, container)
}

type allocationRefRequest struct {
	AllocationID uuid.UUID `json:"allocationId" binding:"required"`
	Primary      bool      `json:"primary"`
}

type createContainerRequest struct {
	DaemonID      uuid.UUID              `json:"daemonId" binding:"required"`
	DisplayName   string                 `json:"displayName" binding:"required"`
	Image         string                 `json:"image" binding:"required"`
	StartupScript string                 `json:"startupScript"`
	StopCommand   string                 `json:"stopCommand"`
	InstallScript string                 `json:"installScript"`
	MemoryMiB     int                    `json:"memoryMiB" binding:"required"`
	CPULimit      float64                `json:"cpuLimit"`
	DiskMiB       int                    `json:"diskMiB"`
	SwapMiB       int                    `json:"swapMiB"`
	IOWeight      int                    `json:"ioWeight"`
	Allocations   []allocationRefRequest `json:"allocations"`
	Env           map[string]string      `json:"env"`
	OwnerUserID   *uuid.UUID             `json:"ownerUserId"`
}

func (s *Server) handleCreateContainer(c *gin.Context) {
	var req createContainerRequest
	if !bindJSON(c, &req) {
		return
	}
	ownerID, err := currentUserID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	// Managers/admins may create containers on another user's behalf.
	if req.OwnerUserID != nil {
		claims := currentClaims(c)
		if rbac.HasAny(effectivePermissions(claims), "containers.manage") {
			ownerID = *req.OwnerUserID
		}
	}

	refs := make([]service.AllocationRef, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		refs = append(refs, service.AllocationRef{AllocationID: a.AllocationID, Primary: a.Primary})
	}

	container, err := s.Service.CreateContainer(c.Request.Context(), service.CreateContainerInput{
		DaemonID:      req.DaemonID,
		OwnerUserID:   ownerID,
		DisplayName:   req.DisplayName,
		Image:         req.Image,
		StartupScript: req.StartupScript,
		StopCommand:   req.StopCommand,
		InstallScript: req.InstallScript,
		Resources: model.Container{
			MemoryLimitMiB: req.MemoryMiB,
			CPULimit:       req.CPULimit,
			DiskLimitMiB:   req.DiskMiB,
			SwapLimitMiB:   req.SwapMiB,
			IOWeight:       req.IOWeight,
		},
		Allocations: refs,
		Env:         req.Env,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, container)
}

func (s *Server) handleDeleteContainer(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := s.Service.DeleteContainer(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStartContainer(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := s.Service.StartContainer(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "running"})
}

func (s *Server) handleStopContainer(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	method, err := s.Service.StopContainer(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped", "method": method})
}

func (s *Server) handleRestartContainer(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := s.Service.RestartContainer(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "running"})
}

func (s *Server) handleKillContainer(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := s.Service.KillContainer(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

type updateResourcesRequest struct {
	MemoryMiB int     `json:"memoryMiB" binding:"required"`
	CPULimit  float64 `json:"cpuLimit"`
	DiskMiB   int     `json:"diskMiB"`
	SwapMiB   int     `json:"swapMiB"`
	IOWeight  int     `json:"ioWeight"`
}

func (s *Server) handleUpdateResources(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req updateResourcesRequest
	if !bindJSON(c, &req) {
		return
	}
	container, err := s.Service.UpdateContainerResources(c.Request.Context(), id, req.MemoryMiB, req.DiskMiB, req.SwapMiB, req.IOWeight, req.CPULimit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, container)
}

type assignAllocationRequest struct {
	AllocationID uuid.UUID `json:"allocationId" binding:"required"`
	Primary      bool      `json:"primary"`
}

func (s *Server) handleAssignContainerAllocation(c *gin.Context) {
	containerID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req assignAllocationRequest
	if !bindJSON(c, &req) {
		return
	}
	ca, err := s.Service.AssignContainerAllocation(containerID, req.AllocationID, req.Primary)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ca)
}

func (s *Server) handleRemoveContainerAllocation(c *gin.Context) {
	containerID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	allocationID, ok := parseUUIDParam(c, "allocationId")
	if !ok {
		return
	}
	if err := s.Service.RemoveContainerAllocation(containerID, allocationID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type shareContainerRequest struct {
	UserID          uuid.UUID `json:"userId" binding:"required"`
	PermissionLevel string    `json:"permissionLevel"`
}

func (s *Server) handleShareContainer(c *gin.Context) {
	containerID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req shareContainerRequest
	if !bindJSON(c, &req) {
		return
	}
	level := req.PermissionLevel
	if level == "" {
		level = "read_only"
	}
	if err := s.Service.ShareContainer(containerID, req.UserID, level); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) handleUnshareContainer(c *gin.Context) {
	containerID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := parseUUIDParam(c, "userId")
	if !ok {
		return
	}
	if err := s.Service.UnshareContainer(containerID, userID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/raptor-panel/raptor/internal/daemon/engine"
	"github.com/raptor-panel/raptor/internal/daemon/state"
	"github.com/raptor-panel/raptor/pkg/idgen"
)

// createContainerRequest is the POST /containers body from spec.md §4.L8
// "Container create".
type createContainerRequest struct {
	Name          string              `json:"name" binding:"required"`
	Image         string              `json:"image" binding:"required"`
	StartupScript string              `json:"startupScript"`
	StopCommand   string              `json:"stopCommand"`
	InstallScript string              `json:"installScript"`
	Allocations   []state.Allocation  `json:"allocations"`
	Ports         []state.PortMapping `json:"ports"`
	Resources     state.Resources     `json:"resources"`
	Env           map[string]string   `json:"env"`
}

type updateContainerRequest struct {
	Resources   *state.Resources    `json:"resources"`
	Allocations *[]state.Allocation `json:"allocations"`
	Ports       *[]state.PortMapping `json:"ports"`
}

func (s *Server) parseContainerID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid container id")
		return uuid.UUID{}, false
	}
	return id, true
}

func allocationPortBindings(allocs []state.Allocation, ports []state.PortMapping) engine.PortBindings {
	bindings := engine.PortBindings{}
	for _, a := range allocs {
		key := portProtoKey(a.InternalPort, a.Protocol)
		bindings[key] = append(bindings[key], engine.HostBinding{HostIP: a.IP, HostPort: strconv.Itoa(a.Port)})
	}
	for _, p := range ports {
		key := portProtoKey(p.ContainerPort, p.Protocol)
		bindings[key] = append(bindings[key], engine.HostBinding{HostPort: strconv.Itoa(p.HostPort)})
	}
	return bindings
}

func portProtoKey(port int, protocol string) string {
	if protocol == "" {
		protocol = "tcp"
	}
	return strconv.Itoa(port) + "/" + protocol
}

// handleCreateContainer implements spec.md §4.L8 "Container create":
// acquire the per-container lock, pull the image, optionally run the
// install script (logged, non-fatal on failure), create the managed
// container, persist both the in-memory record and the on-disk state.
func (s *Server) handleCreateContainer(c *gin.Context) {
	var req createContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	id, err := uuid.Parse(req.Name)
	if err != nil {
		writeError(c, http.StatusBadRequest, "name must be a UUID")
		return
	}

	ctx := c.Request.Context()
	var created *state.Container

	lockErr := s.Locks.WithLock(id, func() error {
		engineName := idgen.EngineName(id)

		volumePath, machineIDPath, err := engine.EnsureVolume(s.FTPBasePath, engineName)
		if err != nil {
			return err
		}

		if err := s.Engine.PullImage(ctx, req.Image); err != nil {
			s.Log.WithError(err).Warn("pull image failed, continuing with local image if present")
		}

		if req.InstallScript != "" {
			installCtx, cancel := context.WithTimeout(ctx, 6*time.Minute)
			defer cancel()
			if _, installErr := s.Engine.RunInstallScript(installCtx, engine.InstallSpec{
				Name:          engineName + "-install",
				Image:         req.Image,
				VolumePath:    volumePath,
				InstallScript: req.InstallScript,
				Env:           req.Env,
			}, nil); installErr != nil {
				s.Log.WithError(installErr).Warn("install script failed, continuing with container creation")
			}
		}

		spec := engine.CreateSpec{
			Name:          engineName,
			Image:         req.Image,
			StartupScript: req.StartupScript,
			Binds:         engine.VolumeBinds(volumePath, machineIDPath),
			Ports:         allocationPortBindings(req.Allocations, req.Ports),
			MemoryMiB:     int64(req.Resources.MemoryMiB),
			CPU:           req.Resources.CPU,
			SwapMiB:       int64(req.Resources.SwapMiB),
			IOWeight:      uint16(req.Resources.IOWeight),
			RestartPolicy: "unless-stopped",
			Env:           req.Env,
		}

		if _, err := s.Engine.Create(ctx, spec); err != nil {
			return err
		}

		created = &state.Container{
			ID:            id,
			Name:          engineName,
			Image:         req.Image,
			StartupScript: req.StartupScript,
			StopCommand:   req.StopCommand,
			Status:        state.StatusStopped,
			Resources:     req.Resources,
			Allocations:   req.Allocations,
			Ports:         req.Ports,
			Env:           req.Env,
		}
		return s.State.Put(created)
	})

	if lockErr != nil {
		writeEngineError(c, lockErr)
		return
	}

	c.JSON(http.StatusOK, created)
}

func (s *Server) handleListContainers(c *gin.Context) {
	containers, err := s.Engine.List(c.Request.Context())
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, containers)
}

func (s *Server) handleInspectContainer(c *gin.Context) {
	id, ok := s.parseContainerID(c, "id")
	if !ok {
		return
	}
	record, found := s.State.Get(id)
	if !found {
		writeError(c, http.StatusNotFound, "container not found")
		return
	}
	info, err := s.Engine.Inspect(c.Request.Context(), idgen.EngineName(id))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record, "engine": info})
}

// handleUpdateContainer implements spec.md §4.L8 "Update": engine update
// applied first, state file second.
func (s *Server) handleUpdateContainer(c *gin.Context) {
	id, ok := s.parseContainerID(c, "id")
	if !ok {
		return
	}
	var req updateContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	var updated *state.Container
	err := s.Locks.WithLock(id, func() error {
		record, found := s.State.Get(id)
		if !found {
			return errNotFound
		}

		if req.Resources != nil {
			if err := s.Engine.UpdateResources(c.Request.Context(), idgen.EngineName(id),
				int64(req.Resources.MemoryMiB), req.Resources.CPU, int64(req.Resources.SwapMiB), uint16(req.Resources.IOWeight)); err != nil {
				return err
			}
			record.Resources = *req.Resources
		}
		if req.Allocations != nil {
			record.Allocations = *req.Allocations
		}
		if req.Ports != nil {
			record.Ports = *req.Ports
		}

		updated = record
		return s.State.Put(record)
	})

	if err == errNotFound {
		writeError(c, http.StatusNotFound, "container not found")
		return
	}
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// handleDeleteContainer implements spec.md §4.L8 "Delete": acquires lock,
// kills+removes via engine, removes the managed record.
func (s *Server) handleDeleteContainer(c *gin.Context) {
	id, ok := s.parseContainerID(c, "id")
	if !ok {
		return
	}
	err := s.Locks.WithLock(id, func() error {
		engineName := idgen.EngineName(id)
		_ = s.Engine.Kill(c.Request.Context(), engineName)
		if err := s.Engine.Remove(c.Request.Context(), engineName, true); err != nil && !engine.IsNotFound(err) {
			return err
		}
		return s.State.Delete(id)
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleStartContainer re-applies the recorded resource limits via an
// engine update, calls engine start, and updates status. Allocations and
// port mappings are not re-synced to the engine before start; the port
// bindings set at create (or recreate) time stay in effect.
func (s *Server) handleStartContainer(c *gin.Context) {
	id, ok := s.parseContainerID(c, "id")
	if !ok {
		return
	}
	err := s.Locks.WithLock(id, func() error {
		record, found := s.State.Get(id)
		if !found {
			return errNotFound
		}
		engineName := idgen.EngineName(id)
		// Port bindings are fixed at create time; only resource limits
		// can be resynced here before start.
		if err := s.Engine.UpdateResources(c.Request.Context(), engineName,
			int64(record.Resources.MemoryMiB), record.Resources.CPU, int64(record.Resources.SwapMiB), uint16(record.Resources.IOWeight)); err != nil {
			return err
		}
		if err := s.Engine.Start(c.Request.Context(), engineName); err != nil {
			return err
		}
		record.Status = state.StatusRunning
		return s.State.Put(record)
	})
	respondLifecycle(c, err)
}

// handleStopContainer implements spec.md §4.L8 "Stop (non-graceful)".
func (s *Server) handleStopContainer(c *gin.Context) {
	id, ok := s.parseContainerID(c, "id")
	if !ok {
		return
	}
	err := s.Locks.WithLock(id, func() error {
		return s.stopEngine(c.Request.Context(), id, 10)
	})
	respondLifecycle(c, err, "force")
}

type gracefulStopRequest struct {
	StopCommand string `json:"stopCommand"`
	TimeoutSecs int    `json:"timeoutSecs"`
}

// handleGracefulStopContainer implements spec.md §4.L8 "Stop (graceful)".
func (s *Server) handleGracefulStopContainer(c *gin.Context) {
	id, ok := s.parseContainerID(c, "id")
	if !ok {
		return
	}
	var req gracefulStopRequest
	_ = c.ShouldBindJSON(&req)
	if req.TimeoutSecs <= 0 {
		req.TimeoutSecs = 10
	}

	var method string
	err := s.Locks.WithLock(id, func() error {
		m, err := s.gracefulStopLocked(c.Request.Context(), id, req.StopCommand, req.TimeoutSecs)
		method = m
		return err
	})
	respondLifecycle(c, err, method)
}

// gracefulStopLocked must be called with the container's lock held. It
// reports which path was taken — "graceful" when the stop command (or
// having nothing to send) left the engine already stopped within the
// timeout, "force" when engine.Stop had to be invoked — so callers can
// surface it, per spec.md §8's graceful-stop scenario.
func (s *Server) gracefulStopLocked(ctx context.Context, id uuid.UUID, stopCommand string, timeoutSecs int) (string, error) {
	engineName := idgen.EngineName(id)

	if stopCommand != "" {
		if err := s.Engine.SendCommand(ctx, engineName, stopCommand); err != nil {
			s.Log.WithError(err).Warn("send stop command failed, falling back to engine stop")
		} else {
			deadline := time.Now().Add(time.Duration(timeoutSecs) * time.Second)
			for time.Now().Before(deadline) {
				running, err := s.Engine.IsRunning(ctx, engineName)
				if err != nil || !running {
					break
				}
				time.Sleep(250 * time.Millisecond)
			}
		}
	}

	running, err := s.Engine.IsRunning(ctx, engineName)
	if err == nil && !running {
		if err := s.markStopped(id); err != nil {
			return "", err
		}
		return "graceful", nil
	}

	if err := s.Engine.Stop(ctx, engineName, timeoutSecs); err != nil {
		return "", err
	}
	if err := s.markStopped(id); err != nil {
		return "", err
	}
	return "force", nil
}

func (s *Server) stopEngine(ctx context.Context, id uuid.UUID, timeoutSecs int) error {
	if err := s.Engine.Stop(ctx, idgen.EngineName(id), timeoutSecs); err != nil {
		return err
	}
	return s.markStopped(id)
}

func (s *Server) markStopped(id uuid.UUID) error {
	record, found := s.State.Get(id)
	if !found {
		return nil
	}
	record.Status = state.StatusStopped
	return s.State.Put(record)
}

// handleRestartContainer implements spec.md §4.L8 "Restart": graceful-stop
// (timeout 15) → 500ms sleep → start.
func (s *Server) handleRestartContainer(c *gin.Context) {
	id, ok := s.parseContainerID(c, "id")
	if !ok {
		return
	}
	err := s.Locks.WithLock(id, func() error {
		record, found := s.State.Get(id)
		if !found {
			return errNotFound
		}
		if _, err := s.gracefulStopLocked(c.Request.Context(), id, record.StopCommand, 15); err != nil {
			return err
		}
		time.Sleep(500 * time.Millisecond)
		engineName := idgen.EngineName(id)
		if err := s.Engine.Start(c.Request.Context(), engineName); err != nil {
			return err
		}
		record.Status = state.StatusRunning
		return s.State.Put(record)
	})
	respondLifecycle(c, err)
}

func (s *Server) handleKillContainer(c *gin.Context) {
	id, ok := s.parseContainerID(c, "id")
	if !ok {
		return
	}
	err := s.Locks.WithLock(id, func() error {
		if err := s.Engine.Kill(c.Request.Context(), idgen.EngineName(id)); err != nil {
			return err
		}
		return s.markStopped(id)
	})
	respondLifecycle(c, err, "force")
}

// handleRecreateContainer tears the engine container down and rebuilds it
// from the persisted record, keeping the same id, volume, and credentials.
func (s *Server) handleRecreateContainer(c *gin.Context) {
	id, ok := s.parseContainerID(c, "id")
	if !ok {
		return
	}
	err := s.Locks.WithLock(id, func() error {
		record, found := s.State.Get(id)
		if !found {
			return errNotFound
		}
		engineName := idgen.EngineName(id)
		_ = s.Engine.Kill(c.Request.Context(), engineName)
		if err := s.Engine.Remove(c.Request.Context(), engineName, true); err != nil && !engine.IsNotFound(err) {
			return err
		}

		volumePath, machineIDPath, err := engine.EnsureVolume(s.FTPBasePath, engineName)
		if err != nil {
			return err
		}

		spec := engine.CreateSpec{
			Name:          engineName,
			Image:         record.Image,
			StartupScript: record.StartupScript,
			Binds:         engine.VolumeBinds(volumePath, machineIDPath),
			Ports:         allocationPortBindings(record.Allocations, record.Ports),
			MemoryMiB:     int64(record.Resources.MemoryMiB),
			CPU:           record.Resources.CPU,
			SwapMiB:       int64(record.Resources.SwapMiB),
			IOWeight:      uint16(record.Resources.IOWeight),
			RestartPolicy: "unless-stopped",
			Env:           record.Env,
		}
		if _, err := s.Engine.Create(c.Request.Context(), spec); err != nil {
			return err
		}
		record.Status = state.StatusStopped
		return s.State.Put(record)
	})
	respondLifecycle(c, err)
}

type sendCommandRequest struct {
	Command string `json:"command" binding:"required"`
}

// handleSendCommand implements spec.md §4.L8 "Send command".
func (s *Server) handleSendCommand(c *gin.Context) {
	id, ok := s.parseContainerID(c, "id")
	if !ok {
		return
	}
	var req sendCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	err := s.Engine.SendCommand(c.Request.Context(), idgen.EngineName(id), req.Command)
	respondLifecycle(c, err)
}

func (s *Server) handleStatsOnce(c *gin.Context) {
	id, ok := s.parseContainerID(c, "id")
	if !ok {
		return
	}
	stats, err := s.Engine.StatsOnce(c.Request.Context(), idgen.EngineName(id))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleStatus(c *gin.Context) {
	id, ok := s.parseContainerID(c, "id")
	if !ok {
		return
	}
	running, err := s.Engine.IsRunning(c.Request.Context(), idgen.EngineName(id))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	status := state.StatusStopped
	if running {
		status = state.StatusRunning
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

var errNotFound = errors.New("container not found")

func writeEngineError(c *gin.Context, err error) {
	if err == errNotFound {
		writeError(c, http.StatusNotFound, err.Error())
		return
	}
	if engine.IsNotFound(err) {
		writeError(c, http.StatusNotFound, err.Error())
		return
	}
	writeError(c, http.StatusBadGateway, err.Error())
}

// respondLifecycle writes the standard lifecycle-operation response. An
// optional method ("graceful"/"force") is included when the caller knows
// which stop path was actually taken, per spec.md §8's graceful-stop
// scenario expecting the method to be observable in the response.
func respondLifecycle(c *gin.Context, err error, method ...string) {
	if err != nil {
		writeEngineError(c, err)
		return
	}
	body := gin.H{"status": "ok"}
	if len(method) > 0 && method[0] != "" {
		body["method"] = method[0]
	}
	c.JSON(http.StatusOK, body)
}

package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/daemon/state"
	"github.com/raptor-panel/raptor/internal/panel/agentclient"
	"github.com/raptor-panel/raptor/internal/panel/model"
	"github.com/raptor-panel/raptor/pkg/idgen"
)

// AllocationRef is one of the (allocation-id, primary) pairs a create
// request references, per spec.md §4.C2 "Create container".
type AllocationRef struct {
	AllocationID uuid.UUID
	Primary      bool
}

type CreateContainerInput struct {
	DaemonID      uuid.UUID
	OwnerUserID   uuid.UUID
	DisplayName   string
	Image         string
	StartupScript string
	StopCommand   string
	InstallScript string
	Resources     model.Container
	Allocations   []AllocationRef
	Env           map[string]string
}

// CreateContainer implements spec.md §4.C2 "Create container": validate
// allocations belong to the daemon, POST to the agent, then on success
// insert the Container row and one ContainerAllocation per referenced
// allocation. Per spec.md §9 open question 1, a DB failure after the agent
// POST is not rolled back on the agent side — see DESIGN.md for the
// recorded decision.
func (s *Service) CreateContainer(ctx context.Context, in CreateContainerInput) (*model.Container, error) {
	d, err := s.Store.GetDaemon(in.DaemonID)
	if err != nil {
		return nil, err
	}

	var agentAllocs []state.Allocation
	for _, ref := range in.Allocations {
		alloc, err := s.lookupAllocation(ref.AllocationID, in.DaemonID)
		if err != nil {
			return nil, err
		}
		agentAllocs = append(agentAllocs, state.Allocation{
			IP: alloc.IP, Port: alloc.Port, InternalPort: alloc.Port,
			Protocol: alloc.Protocol, IsPrimary: ref.Primary,
		})
	}

	id := idgen.New()
	agent := s.AgentFor(d)
	_, err = agent.CreateContainer(ctx, agentclient.CreateContainerRequest{
		Name:          id.String(),
		Image:         in.Image,
		StartupScript: in.StartupScript,
		StopCommand:   in.StopCommand,
		InstallScript: in.InstallScript,
		Allocations:   agentAllocs,
		Resources: state.Resources{
			MemoryMiB: in.Resources.MemoryLimitMiB,
			CPU:       in.Resources.CPULimit,
			DiskMiB:   in.Resources.DiskLimitMiB,
			SwapMiB:   in.Resources.SwapLimitMiB,
			IOWeight:  in.Resources.IOWeight,
		},
		Env: in.Env,
	})
	if err != nil {
		return nil, err
	}

	container := &model.Container{
		ID:             id,
		OwnerUserID:    in.OwnerUserID,
		DaemonID:       in.DaemonID,
		DisplayName:    in.DisplayName,
		Image:          in.Image,
		StopCommand:    firstNonEmpty(in.StopCommand, "stop"),
		Status:         model.ContainerStatusStopped,
		MemoryLimitMiB: in.Resources.MemoryLimitMiB,
		CPULimit:       in.Resources.CPULimit,
		DiskLimitMiB:   in.Resources.DiskLimitMiB,
		SwapLimitMiB:   in.Resources.SwapLimitMiB,
		IOWeight:       in.Resources.IOWeight,
		FtpUsername:    idgen.FTPUsername(id),
	}
	if in.StartupScript != "" {
		container.StartupScript = &in.StartupScript
	}
	if err := s.Store.CreateContainer(container); err != nil {
		s.Log.WithError(err).WithField("container_id", id).Error("container created on agent but DB insert failed")
		return nil, err
	}

	for _, ref := range in.Allocations {
		alloc, err := s.lookupAllocation(ref.AllocationID, in.DaemonID)
		if err != nil {
			continue
		}
		if _, err := s.Store.AssignAllocation(id, ref.AllocationID, alloc.IP, alloc.Port, alloc.Port, alloc.Protocol, ref.Primary); err != nil {
			s.Log.WithError(err).Warn("failed to persist container allocation after agent create")
		}
	}

	return container, nil
}

func (s *Service) lookupAllocation(allocationID, daemonID uuid.UUID) (*model.Allocation, error) {
	allocs, err := s.Store.ListAllocations(daemonID)
	if err != nil {
		return nil, err
	}
	for _, a := range allocs {
		if a.ID == allocationID {
			return &a, nil
		}
	}
	return nil, apierror.BadRequest("allocation does not belong to this daemon")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// StartContainer implements spec.md §4.C2 "Start-container proxy": sync
// allocations to the agent (best-effort), POST start, set DB status.
func (s *Service) StartContainer(ctx context.Context, containerID uuid.UUID) error {
	c, _, agent, err := s.containerAgent(containerID)
	if err != nil {
		return err
	}
	rows, err := s.Store.ListContainerAllocations(containerID)
	if err != nil {
		return err
	}
	var allocs []state.Allocation
	for _, r := range rows {
		allocs = append(allocs, state.Allocation{IP: r.IP, Port: r.Port, InternalPort: r.InternalPort, Protocol: r.Protocol, IsPrimary: r.IsPrimary})
	}
	if _, err := agent.UpdateContainer(ctx, c.ID.String(), agentclient.UpdateContainerRequest{Allocations: &allocs}); err != nil {
		s.Log.WithError(err).Warn("failed to sync allocations before start")
	}
	if err := agent.StartContainer(ctx, c.ID.String()); err != nil {
		return err
	}
	return s.Store.UpdateContainerStatus(containerID, model.ContainerStatusRunning)
}

// StopContainer implements spec.md §4.C2 "Stop-container proxy": try
// graceful-stop with the container's stop command and 30s timeout, fall
// back to plain stop, report which method was used.
func (s *Service) StopContainer(ctx context.Context, containerID uuid.UUID) (string, error) {
	c, _, agent, err := s.containerAgent(containerID)
	if err != nil {
		return "", err
	}
	result, err := agent.GracefulStop(ctx, c.ID.String(), agentclient.GracefulStopRequest{
		StopCommand: c.StopCommand, TimeoutSecs: 30,
	})
	method := "graceful"
	if err != nil {
		if err := agent.Stop(ctx, c.ID.String()); err != nil {
			return "", err
		}
		method = "force"
	} else {
		method = result.Method
	}
	if err := s.Store.UpdateContainerStatus(containerID, model.ContainerStatusStopped); err != nil {
		return "", err
	}
	return method, nil
}

func (s *Service) RestartContainer(ctx context.Context, containerID uuid.UUID) error {
	_, _, agent, err := s.containerAgent(containerID)
	if err != nil {
		return err
	}
	c, err := s.Store.GetContainer(containerID)
	if err != nil {
		return err
	}
	if err := agent.Restart(ctx, c.ID.String()); err != nil {
		return err
	}
	return s.Store.UpdateContainerStatus(containerID, model.ContainerStatusRunning)
}

func (s *Service) KillContainer(ctx context.Context, containerID uuid.UUID) error {
	_, _, agent, err := s.containerAgent(containerID)
	if err != nil {
		return err
	}
	c, err := s.Store.GetContainer(containerID)
	if err != nil {
		return err
	}
	if err := agent.Kill(ctx, c.ID.String()); err != nil {
		return err
	}
	return s.Store.UpdateContainerStatus(containerID, model.ContainerStatusStopped)
}

// DeleteContainer deletes on the agent first, then the DB rows, mirroring
// the create path's agent-then-DB ordering.
func (s *Service) DeleteContainer(ctx context.Context, containerID uuid.UUID) error {
	c, _, agent, err := s.containerAgent(containerID)
	if err != nil {
		return err
	}
	if err := agent.DeleteContainer(ctx, c.ID.String()); err != nil {
		return err
	}
	return s.Store.DeleteContainer(containerID)
}

func (s *Service) containerAgent(containerID uuid.UUID) (*model.Container, *model.Daemon, *agentclient.Client, error) {
	c, err := s.Store.GetContainer(containerID)
	if err != nil {
		return nil, nil, nil, err
	}
	d, err := s.Store.GetDaemon(c.DaemonID)
	if err != nil {
		return nil, nil, nil, err
	}
	return c, d, s.AgentFor(d), nil
}

// UpdateContainerResources implements spec.md §4.L8/§4.C2 "Update": PATCH
// the agent's engine-level resources first, then save the DB row.
func (s *Service) UpdateContainerResources(ctx context.Context, containerID uuid.UUID, memoryMiB, diskMiB, swapMiB, ioWeight int, cpu float64) (*model.Container, error) {
	c, _, agent, err := s.containerAgent(containerID)
	if err != nil {
		return nil, err
	}
	resources := state.Resources{MemoryMiB: memoryMiB, CPU: cpu, DiskMiB: diskMiB, SwapMiB: swapMiB, IOWeight: ioWeight}
	if _, err := agent.UpdateContainer(ctx, c.ID.String(), agentclient.UpdateContainerRequest{Resources: &resources}); err != nil {
		return nil, err
	}
	c.MemoryLimitMiB, c.CPULimit, c.DiskLimitMiB, c.SwapLimitMiB, c.IOWeight = memoryMiB, cpu, diskMiB, swapMiB, ioWeight
	if err := s.Store.UpdateContainer(c); err != nil {
		return nil, err
	}
	return c, nil
}


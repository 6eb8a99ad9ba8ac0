package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/docker/go-units"
)

// CreateSpec is the create contract from spec.md §4.L3.
type CreateSpec struct {
	Name          string
	Image         string
	StartupScript string
	// Command, when set, overrides the image's default entrypoint/cmd
	// directly (no bash -c wrapping) — used by the DB provisioner's
	// fixed per-engine startup commands, where StartupScript's
	// user-script semantics don't apply.
	Command       []string
	Ports         PortBindings
	// Binds are extra host-path:container-path mounts beyond the
	// per-container volume, e.g. the DB provisioner's data directory.
	Binds         []BindMount
	MemoryMiB     int64
	CPU           float64
	SwapMiB       int64
	IOWeight      uint16
	RestartPolicy string
	Env           map[string]string
	TTY           bool
}

// BindMount is a host-path:container-path bind mount.
type BindMount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// PortBindings maps "containerPort/proto" to the list of host (ip, port)
// pairs it should bind to, matching the create contract's optional
// port-binding map.
type PortBindings map[string][]HostBinding

// HostBinding is one (host-ip, host-port) pair.
type HostBinding struct {
	HostIP   string
	HostPort string
}

// VolumePath returns the per-container volume directory, per spec.md
// §4.L3 "<FTP_BASE_PATH>/volumes/<name>/".
func VolumePath(ftpBasePath, name string) string {
	return filepath.Join(ftpBasePath, "volumes", name)
}

// EnsureVolume creates the per-container volume world-writable and
// generates its machine-id file once, per spec.md §4.L3 "Per-container
// volume". It returns the volume path and the machine-id file path.
func EnsureVolume(ftpBasePath, name string) (volumePath, machineIDPath string, err error) {
	volumePath = VolumePath(ftpBasePath, name)
	if err = os.MkdirAll(volumePath, 0o777); err != nil {
		return "", "", fmt.Errorf("create volume dir: %w", err)
	}
	// MkdirAll applies umask; make sure it really is world-writable.
	if err = os.Chmod(volumePath, 0o777); err != nil {
		return "", "", fmt.Errorf("chmod volume dir: %w", err)
	}

	machineIDPath = filepath.Join(volumePath, ".machine-id")
	if _, statErr := os.Stat(machineIDPath); os.IsNotExist(statErr) {
		id, genErr := randomHex32()
		if genErr != nil {
			return "", "", fmt.Errorf("generate machine-id: %w", genErr)
		}
		if writeErr := os.WriteFile(machineIDPath, []byte(id+"\n"), 0o644); writeErr != nil {
			return "", "", fmt.Errorf("write machine-id: %w", writeErr)
		}
	}

	return volumePath, machineIDPath, nil
}

// VolumeOwner returns the UID/GID that owns the volume directory, so the
// container can run as that same user and keep file ownership consistent
// between the host and the container, per spec.md §4.L3 "User mapping".
func VolumeOwner(volumePath string) (uid, gid int, err error) {
	info, err := os.Stat(volumePath)
	if err != nil {
		return 0, 0, err
	}
	return statOwner(info)
}

// PullImage pulls an image and drains its progress stream. Every pull
// failure, transient or not, is logged as a warning and swallowed: it always
// returns nil, and the caller proceeds with a local image if one exists.
func (d *Driver) PullImage(ctx context.Context, ref string) error {
	rc, err := d.Client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		d.Log.WithError(err).WithField("image", trimmedImageName(ref)).Warn("image pull failed, continuing with local image if present")
		return nil
	}
	defer rc.Close()

	// Drain the progress stream; we don't render it, just let it complete.
	buf := make([]byte, 32*1024)
	for {
		if _, readErr := rc.Read(buf); readErr != nil {
			break
		}
	}
	return nil
}

// Create builds and creates (but does not start) a managed container, per
// spec.md §4.L3 "Create contract".
func (d *Driver) Create(ctx context.Context, spec CreateSpec) (string, error) {
	env := []string{"HOME=/home/container", "USER=container"}
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}

	var entrypoint []string
	if spec.StartupScript != "" {
		env = append(env, "STARTUP="+spec.StartupScript)
		entrypoint = []string{"/bin/bash", "-c", spec.StartupScript}
	}

	exposed, bindings := spec.Ports.toNAT()

	cfg := &container.Config{
		Image:        spec.Image,
		Env:          env,
		Entrypoint:   entrypoint,
		Cmd:          spec.Command,
		WorkingDir:   "/home/container",
		Tty:          spec.TTY,
		OpenStdin:    true,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		ExposedPorts: exposed,
	}

	memoryBytes := spec.MemoryMiB * 1024 * 1024
	swapBytes := memoryBytes + spec.SwapMiB*1024*1024

	var mounts []mount.Mount
	for _, b := range spec.Binds {
		mounts = append(mounts, mount.Mount{Type: mount.TypeBind, Source: b.Source, Target: b.Target, ReadOnly: b.ReadOnly})
	}

	hostCfg := &container.HostConfig{
		PortBindings:  bindings,
		Mounts:        mounts,
		RestartPolicy: RestartPolicy(spec.RestartPolicy),
		NetworkMode:   container.NetworkMode(InternalNetworkName),
		Resources: container.Resources{
			Memory:      memoryBytes,
			MemorySwap:  swapBytes,
			CPUQuota:    int64(spec.CPU * 100000),
			CPUPeriod:   100000,
			BlkioWeight: spec.IOWeight,
		},
	}

	resp, err := d.Client.ContainerCreate(ctx, cfg, hostCfg, &network.NetworkingConfig{}, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("create container %s: %w", spec.Name, err)
	}
	d.Log.WithFields(logFields(spec.Name, memoryBytes)).Info("created container")
	return resp.ID, nil
}

func logFields(name string, memoryBytes int64) map[string]interface{} {
	return map[string]interface{}{
		"container": name,
		"memory":    formatMemory(memoryBytes),
	}
}

// VolumeBinds returns the standard per-container bind set (home volume +
// machine-id file) as CreateSpec.Binds entries, per spec.md §4.L3 "binds =
// volume + machine-id".
func VolumeBinds(volumePath, machineIDPath string) []BindMount {
	return []BindMount{
		{Source: volumePath, Target: "/home/container"},
		{Source: machineIDPath, Target: "/etc/machine-id", ReadOnly: true},
	}
}

// WithBinds mounts the volume and the machine-id file directly into an
// already-built host config, used by callers that construct their
// container.HostConfig themselves rather than going through Create.
func WithBinds(hostCfg *container.HostConfig, volumePath, machineIDPath string) {
	for _, b := range VolumeBinds(volumePath, machineIDPath) {
		hostCfg.Mounts = append(hostCfg.Mounts, mount.Mount{Type: mount.TypeBind, Source: b.Source, Target: b.Target, ReadOnly: b.ReadOnly})
	}
}

func (p PortBindings) toNAT() (nat.PortSet, nat.PortMap) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for portProto, hosts := range p {
		port := nat.Port(portProto)
		exposed[port] = struct{}{}
		for _, h := range hosts {
			bindings[port] = append(bindings[port], nat.PortBinding{HostIP: h.HostIP, HostPort: h.HostPort})
		}
	}
	return exposed, bindings
}

// Start starts a created container.
func (d *Driver) Start(ctx context.Context, id string) error {
	return d.Client.ContainerStart(ctx, id, container.StartOptions{})
}

// Stop stops a container with the given timeout in seconds.
func (d *Driver) Stop(ctx context.Context, id string, timeoutSecs int) error {
	timeout := timeoutSecs
	return d.Client.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout})
}

// Restart stops then starts a container via the engine's own restart call.
func (d *Driver) Restart(ctx context.Context, id string, timeoutSecs int) error {
	timeout := timeoutSecs
	return d.Client.ContainerRestart(ctx, id, container.StopOptions{Timeout: &timeout})
}

// Kill sends SIGKILL to a container.
func (d *Driver) Kill(ctx context.Context, id string) error {
	return d.Client.ContainerKill(ctx, id, "SIGKILL")
}

// Remove force-removes a container.
func (d *Driver) Remove(ctx context.Context, id string, force bool) error {
	return d.Client.ContainerRemove(ctx, id, container.RemoveOptions{Force: force})
}

// Inspect returns the engine's full view of a container.
func (d *Driver) Inspect(ctx context.Context, id string) (types.ContainerJSON, error) {
	return d.Client.ContainerInspect(ctx, id)
}

// IsRunning reports whether the engine currently reports the container as
// running, used by the graceful-stop poll loop.
func (d *Driver) IsRunning(ctx context.Context, id string) (bool, error) {
	info, err := d.Inspect(ctx, id)
	if err != nil {
		return false, err
	}
	return info.State != nil && info.State.Running, nil
}

// List returns every engine-visible container, per spec.md §4.L8 "GET
// /containers".
func (d *Driver) List(ctx context.Context) ([]types.Container, error) {
	return d.Client.ContainerList(ctx, container.ListOptions{All: true})
}

// UpdateResources applies a resource-limit update to a running or stopped
// container, per spec.md §4.L8 "Update".
func (d *Driver) UpdateResources(ctx context.Context, id string, memoryMiB int64, cpu float64, swapMiB int64, ioWeight uint16) error {
	memoryBytes := memoryMiB * 1024 * 1024
	swapBytes := memoryBytes + swapMiB*1024*1024
	_, err := d.Client.ContainerUpdate(ctx, id, container.UpdateConfig{
		Resources: container.Resources{
			Memory:      memoryBytes,
			MemorySwap:  swapBytes,
			CPUQuota:    int64(cpu * 100000),
			CPUPeriod:   100000,
			BlkioWeight: ioWeight,
		},
	})
	return err
}

// IsNotFound reports whether err is the engine's not-found error, letting
// callers fold it into apierror.NotFound.
func IsNotFound(err error) bool {
	return client.IsErrNotFound(err)
}

// formatMemory renders a byte count the way the agent's diagnostic logging
// does, reusing docker/go-units the same way the teacher's substatus
// formatting would (pkg/commands/container.go's GetDisplaySubstatus).
func formatMemory(bytes int64) string {
	return units.BytesSize(float64(bytes))
}

// trimmedImageName strips a registry/library prefix for log friendliness.
func trimmedImageName(ref string) string {
	parts := strings.Split(ref, "/")
	return parts[len(parts)-1]
}

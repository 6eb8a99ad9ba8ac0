// Package engine is the L3 engine driver named in spec.md §4.L3: a thin,
// idempotent wrapper over a Docker-API-compatible container engine. It is
// grounded on the teacher's DockerCommand (pkg/commands/docker.go) — same
// client construction and connection-closing idiom — generalized from a
// read-mostly TUI data source into the orchestration primitives the daemon
// needs: create, start, stop, kill, remove, inspect, list, update-resources,
// exec, image-pull, network-ensure, plus the stats/logs streaming the
// teacher already does for its own container panel.
package engine

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/sirupsen/logrus"
)

// InternalNetworkName is the well-known bridge network every managed
// container joins, per spec.md §4.L3 "Ensure network".
const InternalNetworkName = "raptord_internal"

// Driver wraps a docker/docker API client with the daemon's conventions. It
// is the single process-wide singleton named in spec.md §9 "Global state".
type Driver struct {
	Log    *logrus.Entry
	Client *client.Client
}

// New constructs a Driver. host, if non-empty, overrides DOCKER_HOST; an
// empty host lets the client library apply its own environment-based
// default, matching the teacher's handleSSHDockerHost/client.NewClientWithOpts
// pattern minus the SSH tunnel machinery, which has no SPEC_FULL.md
// component to serve (the daemon always runs beside its local engine).
func New(log *logrus.Entry, host string) (*Driver, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to engine: %w", err)
	}

	return &Driver{Log: log, Client: cli}, nil
}

// Close releases the underlying client connection.
func (d *Driver) Close() error {
	return d.Client.Close()
}

// Ping checks the engine is reachable, used by the daemon's /health route.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.Client.Ping(ctx)
	return err
}

// EnsureNetwork creates the well-known bridge network if it does not
// already exist, per spec.md §4.L3.
func (d *Driver) EnsureNetwork(ctx context.Context) error {
	_, err := d.Client.NetworkInspect(ctx, InternalNetworkName, network.InspectOptions{})
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("inspect network %s: %w", InternalNetworkName, err)
	}

	_, err = d.Client.NetworkCreate(ctx, InternalNetworkName, network.CreateOptions{
		Driver: "bridge",
	})
	if err != nil {
		return fmt.Errorf("create network %s: %w", InternalNetworkName, err)
	}
	d.Log.WithField("network", InternalNetworkName).Info("created internal bridge network")
	return nil
}

// RestartPolicy maps the create-contract restart policy names from
// spec.md §4.L3 to the engine's restart policy type.
func RestartPolicy(name string) container.RestartPolicy {
	switch name {
	case "no", "none":
		return container.RestartPolicy{Name: container.RestartPolicyDisabled}
	case "always":
		return container.RestartPolicy{Name: container.RestartPolicyAlways}
	case "on-failure":
		return container.RestartPolicy{Name: container.RestartPolicyOnFailure, MaximumRetryCount: 5}
	default:
		return container.RestartPolicy{Name: container.RestartPolicyUnlessStopped}
	}
}

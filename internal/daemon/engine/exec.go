package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// readDemuxed drains a docker-multiplexed stream (stdout and stderr
// interleaved in the raw exec attach connection) into one combined string.
func readDemuxed(r *bufio.Reader) (string, error) {
	var out, errOut bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &errOut, r); err != nil {
		return "", err
	}
	return out.String() + errOut.String(), nil
}

// SendCommand attaches to a container's stdin only, writes the command
// followed by a newline, then closes — used to deliver "stop" commands to
// application consoles, per spec.md §4.L3 "Send command".
func (d *Driver) SendCommand(ctx context.Context, id string, command string) error {
	hijacked, err := d.Client.ContainerAttach(ctx, id, container.AttachOptions{
		Stream: true,
		Stdin:  true,
	})
	if err != nil {
		return fmt.Errorf("attach to container %s: %w", id, err)
	}
	defer hijacked.Close()

	if _, err := hijacked.Conn.Write([]byte(command + "\n")); err != nil {
		return fmt.Errorf("write command to container %s: %w", id, err)
	}
	return hijacked.CloseWrite()
}

// ExecResult is the outcome of a one-shot exec, used by the DB provisioner
// to run CLI commands inside engine-managed database containers.
type ExecResult struct {
	ExitCode int
	Output   string
}

// Exec runs cmd inside the container as user (empty for the image default)
// with the given environment, capturing combined output, per spec.md
// §4.L3's exec capability and §4.L5 "All commands run via exec inside the
// engine container."
func (d *Driver) Exec(ctx context.Context, id string, cmd []string, env []string, user string) (ExecResult, error) {
	created, err := d.Client.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          cmd,
		Env:          env,
		User:         user,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return ExecResult{}, fmt.Errorf("create exec in %s: %w", id, err)
	}

	attach, err := d.Client.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, fmt.Errorf("attach exec in %s: %w", id, err)
	}
	defer attach.Close()

	output, err := readDemuxed(attach.Reader)
	if err != nil {
		return ExecResult{}, fmt.Errorf("read exec output from %s: %w", id, err)
	}

	inspected, err := d.Client.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return ExecResult{}, fmt.Errorf("inspect exec in %s: %w", id, err)
	}

	return ExecResult{ExitCode: inspected.ExitCode, Output: output}, nil
}

package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/pkg/stdcopy"
)

// installTimeout is the hard wall-clock limit on an ephemeral install
// container, per spec.md §4.L3 "enforces a 5-minute wall-clock timeout
// (kill on expiry)".
const installTimeout = 5 * time.Minute

// InstallSpec describes a one-shot flake install run.
type InstallSpec struct {
	Name          string
	Image         string
	VolumePath    string
	InstallScript string
	Env           map[string]string
}

// RunInstallScript materializes a one-shot container from the given image,
// mounts the server's volume, and runs the install script, per spec.md
// §4.L3 "Run install script in ephemeral container". Logs are streamed
// into out if non-nil; the ephemeral container is always force-removed on
// exit, matching spec.md's error-handling policy that best-effort teardown
// steps are logged and never fail the surrounding operation.
func (d *Driver) RunInstallScript(ctx context.Context, spec InstallSpec, out chan<- LogLine) (exitCode int, err error) {
	ctx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	script := "ln -sfn /home/container /mnt/server\n" + spec.InstallScript + "\necho \"---install-exit-code:$?---\"\n"

	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}

	cfg := &container.Config{
		Image:      spec.Image,
		Entrypoint: []string{"/bin/bash", "-c", script},
		Env:        env,
		WorkingDir: "/home/container",
	}
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: spec.VolumePath, Target: "/home/container"},
		},
	}

	name := spec.Name + "-install"
	resp, err := d.Client.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		return 0, fmt.Errorf("create install container: %w", err)
	}

	defer func() {
		removeCtx, removeCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer removeCancel()
		if removeErr := d.Remove(removeCtx, resp.ID, true); removeErr != nil {
			d.Log.WithError(removeErr).WithField("container", name).Warn("failed to remove ephemeral install container")
		}
	}()

	if err := d.Start(ctx, resp.ID); err != nil {
		return 0, fmt.Errorf("start install container: %w", err)
	}

	exitCode, err = d.streamInstallLogs(ctx, resp.ID, out)
	if ctx.Err() == context.DeadlineExceeded {
		_ = d.Kill(context.Background(), resp.ID)
		return exitCode, fmt.Errorf("install script timed out after %s", installTimeout)
	}
	return exitCode, err
}

func (d *Driver) streamInstallLogs(ctx context.Context, id string, out chan<- LogLine) (int, error) {
	rc, err := d.Client.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	pr, pw := io.Pipe()
	go func() {
		_, copyErr := stdcopy.StdCopy(pw, pw, rc)
		pw.CloseWithError(copyErr)
	}()

	exitCode := 0
	scanner := bufio.NewScanner(pr)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "---install-exit-code:"); idx >= 0 {
			fmt.Sscanf(line[idx:], "---install-exit-code:%d---", &exitCode)
			continue
		}
		if out != nil {
			out <- LogLine{Text: line}
		}
	}
	return exitCode, nil
}

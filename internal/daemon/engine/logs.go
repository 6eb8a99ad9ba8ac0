package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/fatih/color"

	"github.com/raptor-panel/raptor/pkg/utils"
)

// LogLine is one line of combined stdout/stderr output, colored red when it
// came from stderr, per spec.md §4.L3 "Logs stream".
type LogLine struct {
	Text      string
	IsStderr  bool
	IsNotice  bool
}

// ParseSince converts the "<n>m" / "<n>h" since parameter from spec.md
// §4.L3 into a Unix timestamp string the engine API accepts.
func ParseSince(since string) (string, error) {
	if since == "" {
		return "", nil
	}
	unit := since[len(since)-1]
	amountStr := since[:len(since)-1]
	amount, err := strconv.Atoi(amountStr)
	if err != nil {
		return "", fmt.Errorf("invalid since parameter %q: %w", since, err)
	}

	var d time.Duration
	switch unit {
	case 'm':
		d = time.Duration(amount) * time.Minute
	case 'h':
		d = time.Duration(amount) * time.Hour
	default:
		return "", fmt.Errorf("invalid since unit in %q, expected m or h", since)
	}

	return strconv.FormatInt(time.Now().Add(-d).Unix(), 10), nil
}

// LogsStream streams combined stdout/stderr lines into out, first a
// bounded historical pull, then a following tail, matching spec.md §4.L3
// "Logs stream": "First pass: non-following pull bounded by tail=500 (or
// tail=all when since is set) ... Second pass: following tail=0 forever."
func (d *Driver) LogsStream(ctx context.Context, id string, since string, out chan<- LogLine) {
	defer close(out)

	sinceTS, err := ParseSince(since)
	if err != nil {
		out <- LogLine{Text: err.Error(), IsNotice: true}
		return
	}

	tail := "500"
	if sinceTS != "" {
		tail = "all"
	}

	if err := d.streamLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Since:      sinceTS,
		Tail:       tail,
		Follow:     false,
	}, out); err != nil {
		out <- LogLine{Text: notice(err), IsNotice: true}
		return
	}

	if err := d.streamLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       "0",
		Follow:     true,
	}, out); err != nil {
		out <- LogLine{Text: notice(err), IsNotice: true}
	}
}

func notice(err error) string {
	if err == io.EOF {
		return "-- log stream closed --"
	}
	return "-- log stream error: " + err.Error() + " --"
}

func (d *Driver) streamLogs(ctx context.Context, id string, opts container.LogsOptions, out chan<- LogLine) error {
	rc, err := d.Client.ContainerLogs(ctx, id, opts)
	if err != nil {
		return err
	}
	defer rc.Close()

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	done := make(chan error, 1)

	go func() {
		_, copyErr := stdcopy.StdCopy(stdoutW, stderrW, rc)
		stdoutW.CloseWithError(copyErr)
		stderrW.CloseWithError(copyErr)
		done <- copyErr
	}()

	merged := make(chan LogLine)
	go scanInto(stdoutR, false, merged)
	go scanInto(stderrR, true, merged)

	remaining := 2
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-merged:
			if !ok {
				remaining--
				continue
			}
			out <- line
		}
	}
	return <-done
}

func scanInto(r io.Reader, isStderr bool, out chan<- LogLine) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := utils.NormalizeLinefeeds(scanner.Text())
		if isStderr {
			text = utils.ColoredString(text, color.FgRed)
		}
		out <- LogLine{Text: text, IsStderr: isStderr}
	}
}

package engine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/docker/docker/api/types/container"
)

// ContainerStats is the derived sample returned by spec.md §4.L3 "Stats
// computation" and §4.L8 "Container stats one-shot". Field shapes follow
// the teacher's ContainerStats/ContainerStatsEntry
// (pkg/commands/runtime_types.go), adapted from a podman-CLI JSON line into
// the engine API's native stats payload.
type ContainerStats struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryUsage   uint64  `json:"memoryUsage"`
	MemoryLimit   uint64  `json:"memoryLimit"`
	MemoryPercent float64 `json:"memoryPercent"`
	NetworkRx     uint64  `json:"networkRx"`
	NetworkTx     uint64  `json:"networkTx"`
	BlockRead     uint64  `json:"blockRead"`
	BlockWrite    uint64  `json:"blockWrite"`
}

// DeriveStats computes a ContainerStats from one raw engine sample, per
// spec.md §4.L3 "Stats computation" (the same formula the teacher's
// calculateCPUPercentageFromEntry/calculateMemoryPercentageFromEntry
// verify in pkg/commands/podman.go and its _test.go, generalized from the
// podman CLI's polled JSON shape to the engine API's native stats struct).
func DeriveStats(raw *container.StatsResponse) ContainerStats {
	s := ContainerStats{
		MemoryUsage: raw.MemoryStats.Usage,
		MemoryLimit: raw.MemoryStats.Limit,
	}

	cpuDelta := float64(raw.CPUStats.CPUUsage.TotalUsage) - float64(raw.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(raw.CPUStats.SystemUsage) - float64(raw.PreCPUStats.SystemUsage)
	onlineCPUs := float64(raw.CPUStats.OnlineCPUs)
	if onlineCPUs == 0 {
		onlineCPUs = float64(len(raw.CPUStats.CPUUsage.PercpuUsage))
	}
	if onlineCPUs == 0 {
		onlineCPUs = 1
	}
	if cpuDelta > 0 && systemDelta > 0 {
		s.CPUPercent = (cpuDelta / systemDelta) * onlineCPUs * 100.0
	}

	if s.MemoryLimit > 0 {
		s.MemoryPercent = float64(s.MemoryUsage) / float64(s.MemoryLimit) * 100.0
	}

	for _, iface := range raw.Networks {
		s.NetworkRx += iface.RxBytes
		s.NetworkTx += iface.TxBytes
	}

	for _, entry := range raw.BlkioStats.IoServiceBytesRecursive {
		switch strings.ToLower(entry.Op) {
		case "read":
			s.BlockRead += entry.Value
		case "write":
			s.BlockWrite += entry.Value
		}
	}

	return s
}

// StatsOnce returns a single derived stats sample for a container, per
// spec.md §4.L8 "Container stats one-shot".
func (d *Driver) StatsOnce(ctx context.Context, id string) (ContainerStats, error) {
	resp, err := d.Client.ContainerStatsOneShot(ctx, id)
	if err != nil {
		return ContainerStats{}, err
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return ContainerStats{}, err
	}
	return DeriveStats(&raw), nil
}

// StatsStream opens a streaming stats source and emits a derived sample to
// out roughly once a second, terminating when ctx is cancelled or the
// stream closes. It is the producer side of the L7 stats broadcaster.
func (d *Driver) StatsStream(ctx context.Context, id string, out chan<- ContainerStats) error {
	resp, err := d.Client.ContainerStats(ctx, id, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	decoder := json.NewDecoder(resp.Body)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var raw container.StatsResponse
		if err := decoder.Decode(&raw); err != nil {
			return err
		}

		select {
		case out <- DeriveStats(&raw):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

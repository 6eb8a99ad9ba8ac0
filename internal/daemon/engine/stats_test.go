package engine

import (
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatsCPUPercentage(t *testing.T) {
	var raw container.StatsResponse
	raw.CPUStats.CPUUsage.TotalUsage = 10
	raw.CPUStats.SystemUsage = 10
	raw.CPUStats.OnlineCPUs = 1
	raw.PreCPUStats.CPUUsage.TotalUsage = 5
	raw.PreCPUStats.SystemUsage = 2

	stats := DeriveStats(&raw)
	assert.EqualValues(t, 62.5, stats.CPUPercent)
}

func TestDeriveStatsCPUPercentageZeroOnNonPositiveDelta(t *testing.T) {
	var raw container.StatsResponse
	raw.CPUStats.CPUUsage.TotalUsage = 5
	raw.CPUStats.SystemUsage = 10
	raw.PreCPUStats.CPUUsage.TotalUsage = 5
	raw.PreCPUStats.SystemUsage = 2

	stats := DeriveStats(&raw)
	assert.Zero(t, stats.CPUPercent)
}

func TestDeriveStatsMemoryPercentage(t *testing.T) {
	var raw container.StatsResponse
	raw.MemoryStats.Usage = 50
	raw.MemoryStats.Limit = 200

	stats := DeriveStats(&raw)
	assert.EqualValues(t, 25.0, stats.MemoryPercent)
}

func TestDeriveStatsMemoryPercentageZeroWhenNoLimit(t *testing.T) {
	var raw container.StatsResponse
	raw.MemoryStats.Usage = 50

	stats := DeriveStats(&raw)
	assert.Zero(t, stats.MemoryPercent)
}

func TestDeriveStatsSumsNetworksAndBlockIO(t *testing.T) {
	var raw container.StatsResponse
	raw.Networks = map[string]container.NetworkStats{
		"eth0": {RxBytes: 100, TxBytes: 50},
		"eth1": {RxBytes: 10, TxBytes: 5},
	}
	raw.BlkioStats.IoServiceBytesRecursive = []container.BlkioStatEntry{
		{Op: "Read", Value: 1024},
		{Op: "write", Value: 2048},
		{Op: "Async", Value: 999},
	}

	stats := DeriveStats(&raw)
	assert.EqualValues(t, 110, stats.NetworkRx)
	assert.EqualValues(t, 55, stats.NetworkTx)
	assert.EqualValues(t, 1024, stats.BlockRead)
	assert.EqualValues(t, 2048, stats.BlockWrite)
}

func TestParseSinceMinutes(t *testing.T) {
	ts, err := ParseSince("5m")
	assert.NoError(t, err)
	assert.NotEmpty(t, ts)
}

func TestParseSinceEmpty(t *testing.T) {
	ts, err := ParseSince("")
	assert.NoError(t, err)
	assert.Empty(t, ts)
}

func TestParseSinceInvalidUnit(t *testing.T) {
	_, err := ParseSince("5s")
	assert.Error(t, err)
}

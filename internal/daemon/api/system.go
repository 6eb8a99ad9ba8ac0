package api

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// systemSnapshot is the host memory/CPU/disk/hostname snapshot spec.md §6
// names for GET /system, sourced from gopsutil/v4 — already part of the
// teacher's own dependency graph (pulled in transitively via podman's
// pidhandle package) and the natural ecosystem choice for host metrics
// rather than hand-parsing /proc.
type systemSnapshot struct {
	Hostname       string  `json:"hostname"`
	CPUPercent     float64 `json:"cpuPercent"`
	MemoryUsed     uint64  `json:"memoryUsed"`
	MemoryTotal    uint64  `json:"memoryTotal"`
	MemoryPercent  float64 `json:"memoryPercent"`
	DiskUsed       uint64  `json:"diskUsed"`
	DiskTotal      uint64  `json:"diskTotal"`
	DiskPercent    float64 `json:"diskPercent"`
}

func collectSystemSnapshot() (systemSnapshot, error) {
	hostname, _ := os.Hostname()

	snap := systemSnapshot{Hostname: hostname}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemoryUsed = vm.Used
		snap.MemoryTotal = vm.Total
		snap.MemoryPercent = vm.UsedPercent
	}

	if du, err := disk.Usage("/"); err == nil {
		snap.DiskUsed = du.Used
		snap.DiskTotal = du.Total
		snap.DiskPercent = du.UsedPercent
	}

	return snap, nil
}

func (s *Server) handleSystem(c *gin.Context) {
	snap, err := collectSystemSnapshot()
	if err != nil {
		writeError(c, http.StatusInternalServerError, "collect system snapshot")
		return
	}
	c.JSON(http.StatusOK, snap)
}

package utils

import (
	"log"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const minAutoWorkers = 2

// GetOptimalWorkerCount returns how many order workflows may run at once in one poll cycle.
// configValue is either a positive number or "auto".
func GetOptimalWorkerCount(configValue string) int {
	if manualWorkers, err := strconv.Atoi(configValue); err == nil && manualWorkers > 0 {
		return manualWorkers
	}

	if configValue != "auto" && configValue != "" {
		log.Printf("WARN: Invalid order_workers value '%s'. Defaulting to 'auto' mode.", configValue)
	}

	cpuCores, err := cpu.Counts(true)
	if err != nil {
		log.Printf("WARN: Could not detect CPU cores. Falling back to default: %d workers.", 2)
		return 2
	}

	// Every worker holds an extra browser tab, so keep it to half the cores.
	// Never fewer than two, so order flows in one cycle overlap.
	optimalCount := cpuCores / 2
	if optimalCount < minAutoWorkers {
		optimalCount = minAutoWorkers
	}
	if optimalCount > 8 {
		optimalCount = 8
	}

	log.Printf("System has %d logical cores. Allowing %d concurrent order workflows.", cpuCores, optimalCount)
	return optimalCount
}

// SystemStats is a point-in-time resource snapshot of the host.
type SystemStats struct {
	CPUUsage      float64 `json:"cpu_usage"`
	RAMUsage      float64 `json:"ram_usage"`
	TotalMemoryGB uint64  `json:"total_memory_gb"`
	CPUModel      string  `json:"cpu_model,omitempty"`
}

// ReadSystemStats samples CPU usage over interval and reads memory usage.
// Usages are fractions in [0, 1].
func ReadSystemStats(interval time.Duration) (SystemStats, error) {
	var stats SystemStats

	percents, err := cpu.Percent(interval, false)
	if err != nil {
		return stats, err
	}
	if len(percents) > 0 {
		stats.CPUUsage = percents[0] / 100
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return stats, err
	}
	stats.RAMUsage = vm.UsedPercent / 100
	stats.TotalMemoryGB = vm.Total / (1 << 30)

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		stats.CPUModel = infos[0].ModelName
	}
	return stats, nil
}

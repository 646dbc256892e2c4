package report

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Host is a snapshot of the machine the container started on.
type Host struct {
	Hostname         string `json:"hostname" yaml:"hostname"`
	OS               string `json:"os" yaml:"os"`
	Architecture     string `json:"architecture" yaml:"architecture"`
	CPUs             int    `json:"cpus" yaml:"cpus"`
	MemoryTotalBytes uint64 `json:"memory_total_bytes" yaml:"memory_total_bytes"`
}

// CollectHost gathers what it can. Missing values stay zero.
func CollectHost() Host {
	h := Host{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	if name, err := os.Hostname(); err == nil {
		h.Hostname = name
	}

	if n, err := cpu.Counts(true); err == nil {
		h.CPUs = n
	} else {
		h.CPUs = runtime.NumCPU()
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		h.MemoryTotalBytes = vmem.Total
	}

	return h
}

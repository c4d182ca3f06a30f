package diagnostics

import (
	"fmt"
	"strings"

	"github.com/jaypipes/ghw"
)

// DiskDevice describes one physical block device.
type DiskDevice struct {
	Name   string  `json:"name"`
	Model  string  `json:"model,omitempty"`
	SizeGB float64 `json:"size_gb"`
}

// Hardware is a one-shot inventory of the machine.
type Hardware struct {
	CPUModel   string       `json:"cpu_model"`
	CPUCores   uint32       `json:"cpu_cores"`
	CPUThreads uint32       `json:"cpu_threads"`
	MemoryGB   float64      `json:"memory_gb"`
	Disks      []DiskDevice `json:"disks,omitempty"`
}

// ProbeHardware inventories CPU, memory and block devices. Probes are
// best-effort: a block that cannot be read is left empty rather than
// failing the whole inventory.
func ProbeHardware() (Hardware, error) {
	hw := Hardware{}
	var firstErr error

	if cpuInfo, err := ghw.CPU(); err == nil && cpuInfo != nil {
		hw.CPUCores = cpuInfo.TotalCores
		hw.CPUThreads = cpuInfo.TotalThreads
		if len(cpuInfo.Processors) > 0 {
			hw.CPUModel = strings.TrimSpace(cpuInfo.Processors[0].Model)
		}
	} else if err != nil {
		firstErr = fmt.Errorf("cpu probe: %w", err)
	}

	if memInfo, err := ghw.Memory(); err == nil && memInfo != nil {
		hw.MemoryGB = float64(memInfo.TotalPhysicalBytes) / 1024 / 1024 / 1024
	} else if err != nil && firstErr == nil {
		firstErr = fmt.Errorf("memory probe: %w", err)
	}

	if block, err := ghw.Block(); err == nil && block != nil {
		for _, d := range block.Disks {
			hw.Disks = append(hw.Disks, DiskDevice{
				Name:   d.Name,
				Model:  strings.TrimSpace(d.Model),
				SizeGB: float64(d.SizeBytes) / 1024 / 1024 / 1024,
			})
		}
	} else if err != nil && firstErr == nil {
		firstErr = fmt.Errorf("block probe: %w", err)
	}

	return hw, firstErr
}

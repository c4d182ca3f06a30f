package diagnostics

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// ProcessStats holds stats about the adsmith process itself.
type ProcessStats struct {
	Goroutines  int           `json:"goroutines"`
	HeapAllocMB float64       `json:"heap_alloc_mb"`
	NumGC       uint32        `json:"num_gc"`
	Uptime      time.Duration `json:"uptime"`
	GoVersion   string        `json:"go_version"`
}

// SystemMetrics holds system-wide resource usage plus process stats.
type SystemMetrics struct {
	// CPU
	CPUModel   string  `json:"cpu_model"`
	CPUCores   int     `json:"cpu_cores"`
	CPUThreads int     `json:"cpu_threads"`
	CPUPercent float64 `json:"cpu_percent"`

	// Memory (in MB)
	MemTotalMB float64 `json:"mem_total_mb"`
	MemUsedMB  float64 `json:"mem_used_mb"`
	MemPercent float64 `json:"mem_percent"`

	// Disk usage of the filesystem holding the run store (in GB)
	DiskPath    string  `json:"disk_path"`
	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskPercent float64 `json:"disk_percent"`

	// Load average (zero on platforms without it)
	LoadAvg1  float64 `json:"load_avg_1"`
	LoadAvg5  float64 `json:"load_avg_5"`
	LoadAvg15 float64 `json:"load_avg_15"`

	Process ProcessStats `json:"process"`
}

// Collector samples system metrics. CPU percent is computed from the
// delta between consecutive Collect calls, so the first sample reports
// zero.
type Collector struct {
	mu       sync.Mutex
	diskPath string
	started  time.Time

	lastCPUTotal float64
	lastCPUIdle  float64

	infoCollected bool
	cpuModel      string
	cpuCores      int
	cpuThreads    int
}

// NewCollector creates a collector. diskPath points at the run store;
// disk usage is reported for the filesystem that holds it.
func NewCollector(diskPath string) *Collector {
	return &Collector{
		diskPath: diskPath,
		started:  time.Now(),
	}
}

// Collect gathers current system and process statistics. Probes that
// fail leave their fields zero; Collect itself never errors.
func (c *Collector) Collect() SystemMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := SystemMetrics{}

	c.collectHardwareInfo(&stats)
	c.collectMemory(&stats)
	c.collectCPU(&stats)
	c.collectDisk(&stats)
	c.collectLoad(&stats)
	c.collectProcess(&stats)

	return stats
}

func (c *Collector) collectHardwareInfo(stats *SystemMetrics) {
	if !c.infoCollected {
		if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
			c.cpuModel = strings.TrimSpace(infos[0].ModelName)
		}
		if cores, err := cpu.Counts(false); err == nil && cores > 0 {
			c.cpuCores = cores
		}
		if threads, err := cpu.Counts(true); err == nil && threads > 0 {
			c.cpuThreads = threads
		}
		c.infoCollected = true
	}
	stats.CPUModel = c.cpuModel
	stats.CPUCores = c.cpuCores
	stats.CPUThreads = c.cpuThreads
}

func (c *Collector) collectMemory(stats *SystemMetrics) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return
	}
	stats.MemTotalMB = float64(vm.Total) / 1024 / 1024
	stats.MemUsedMB = float64(vm.Used) / 1024 / 1024
	stats.MemPercent = vm.UsedPercent
}

func (c *Collector) collectCPU(stats *SystemMetrics) {
	times, err := cpu.Times(false)
	if err != nil || len(times) == 0 {
		return
	}

	t := times[0]
	total := t.User + t.Nice + t.System + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal
	idleTime := t.Idle + t.Iowait

	if c.lastCPUTotal > 0 {
		totalDelta := total - c.lastCPUTotal
		idleDelta := idleTime - c.lastCPUIdle
		if totalDelta > 0 {
			stats.CPUPercent = (1 - idleDelta/totalDelta) * 100
		}
	}

	c.lastCPUTotal = total
	c.lastCPUIdle = idleTime
}

func (c *Collector) collectDisk(stats *SystemMetrics) {
	path := existingDir(c.diskPath)
	usage, err := disk.Usage(path)
	if err != nil {
		return
	}
	stats.DiskPath = path
	stats.DiskTotalGB = float64(usage.Total) / 1024 / 1024 / 1024
	stats.DiskUsedGB = float64(usage.Used) / 1024 / 1024 / 1024
	stats.DiskPercent = usage.UsedPercent
}

func (c *Collector) collectLoad(stats *SystemMetrics) {
	avg, err := load.Avg()
	if err != nil {
		return
	}
	stats.LoadAvg1 = avg.Load1
	stats.LoadAvg5 = avg.Load5
	stats.LoadAvg15 = avg.Load15
}

func (c *Collector) collectProcess(stats *SystemMetrics) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats.Process = ProcessStats{
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(ms.HeapAlloc) / 1024 / 1024,
		NumGC:       ms.NumGC,
		Uptime:      time.Since(c.started),
		GoVersion:   runtime.Version(),
	}
}

// existingDir walks up from path until it finds a directory that
// exists. The store file may not have been created yet.
func existingDir(path string) string {
	if path == "" {
		return rootDiskPath()
	}
	dir := path
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return rootDiskPath()
		}
		dir = parent
	}
}

func rootDiskPath() string {
	if runtime.GOOS == "windows" {
		drive := os.Getenv("SystemDrive")
		if drive == "" {
			drive = "C:"
		}
		return drive + "\\"
	}
	return "/"
}

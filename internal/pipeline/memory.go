package pipeline

import (
	"os"
	"runtime"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// ResourceMonitor samples the memory of the converting process. Each file's
// columns are held fully in memory, so the RSS after a file is the number
// to watch.
type ResourceMonitor struct {
	process *process.Process
	mu      sync.Mutex
}

// ResourceUsage is one sample.
type ResourceUsage struct {
	MemoryRSS             uint64
	HeapAlloc             uint64
	SystemMemoryAvailable uint64
}

// NewResourceMonitor attaches to the current process. A process that cannot
// be inspected yields a monitor reporting heap figures only.
func NewResourceMonitor() *ResourceMonitor {
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &ResourceMonitor{process: proc}
}

// Usage returns the current sample.
func (rm *ResourceMonitor) Usage() ResourceUsage {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	var usage ResourceUsage
	if rm.process != nil {
		if memInfo, err := rm.process.MemoryInfo(); err == nil {
			usage.MemoryRSS = memInfo.RSS
		}
	}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		usage.SystemMemoryAvailable = vmStat.Available
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	usage.HeapAlloc = memStats.HeapAlloc
	return usage
}

// Fields renders the sample as log fields.
func (u ResourceUsage) Fields() []zap.Field {
	return []zap.Field{
		zap.String("rss", humanize.IBytes(u.MemoryRSS)),
		zap.String("heap", humanize.IBytes(u.HeapAlloc)),
		zap.String("available", humanize.IBytes(u.SystemMemoryAvailable)),
	}
}

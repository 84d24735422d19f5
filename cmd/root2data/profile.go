package main

import (
	"os"
	"runtime"
	"runtime/pprof"

	"go.uber.org/zap"

	"github.com/appINPP/root2data/pkg/errors"
)

// startProfiling starts a CPU profile when cpuFile is set. The returned stop
// function ends it and, when memFile is set, writes a heap profile.
func startProfiling(cpuFile, memFile string, log *zap.Logger) (func(), error) {
	var cpu *os.File
	if cpuFile != "" {
		f, err := os.Create(cpuFile)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "create CPU profile")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "start CPU profile")
		}
		cpu = f
		log.Info("CPU profiling enabled", zap.String("path", cpuFile))
	}

	return func() {
		if cpu != nil {
			pprof.StopCPUProfile()
			cpu.Close()
		}
		if memFile == "" {
			return
		}
		f, err := os.Create(memFile)
		if err != nil {
			log.Warn("failed to create memory profile", zap.Error(err))
			return
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Warn("failed to write memory profile", zap.Error(err))
		}
	}, nil
}

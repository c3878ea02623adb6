package health

import (
	"context"
	"fmt"
	"runtime"

	"github.com/jonwraymond/healthcheck/task"
)

// MemoryCheckConfig configures the memory check.
type MemoryCheckConfig struct {
	// Name of the check. Default: "memory".
	Name string

	// Threshold is the heap usage ratio at which the check fails.
	// Value should be between 0 and 1. Default: 0.9 (90%)
	Threshold float64

	// MaxAlloc is the maximum expected heap allocation in bytes.
	// If zero, the memory obtained from the OS is used.
	MaxAlloc uint64

	Order    *int
	Critical bool
}

// MemoryCheck returns a check that fails when heap usage reaches the
// configured threshold. On success its data carries the memory stats.
func MemoryCheck(config MemoryCheckConfig) task.Definition {
	if config.Name == "" {
		config.Name = "memory"
	}
	if config.Threshold <= 0 || config.Threshold > 1 {
		config.Threshold = 0.9
	}

	return task.Definition{
		Name:     config.Name,
		Order:    config.Order,
		Critical: config.Critical,
		Run: func(ctx context.Context, env task.Env) (any, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return checkMemory(stats, config)
		},
	}
}

func checkMemory(stats runtime.MemStats, config MemoryCheckConfig) (map[string]any, error) {
	maxAlloc := config.MaxAlloc
	if maxAlloc == 0 {
		maxAlloc = stats.Sys
	}
	if maxAlloc == 0 {
		return map[string]any{"alloc_bytes": stats.Alloc}, nil
	}

	usage := float64(stats.HeapAlloc) / float64(maxAlloc)
	if usage >= config.Threshold {
		return nil, fmt.Errorf("memory usage critical: %.1f%% of %d bytes", usage*100, maxAlloc)
	}

	return map[string]any{
		"alloc_bytes":   stats.Alloc,
		"heap_alloc":    stats.HeapAlloc,
		"heap_in_use":   stats.HeapInuse,
		"max_alloc":     maxAlloc,
		"usage_percent": usage * 100,
		"num_gc":        stats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}, nil
}

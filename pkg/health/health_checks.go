package health

import (
	"context"
	"runtime"
)

// Common health check functions

// SimpleCheck creates a check that always reports healthy
func SimpleCheck(name string) CheckFunc {
	return func(context.Context) Check {
		return Check{Name: name, Status: StatusHealthy}
	}
}

// GraphCheck reports whether a network has been loaded. An empty network is
// degraded rather than unhealthy: analytics still answer, just with nothing.
func GraphCheck(size func() (airports, routes int)) CheckFunc {
	return func(context.Context) Check {
		airports, routes := size()
		check := Check{
			Name: "graph",
			Details: map[string]any{
				"airports": airports,
				"routes":   routes,
			},
		}
		if airports == 0 {
			check.Status = StatusDegraded
			check.Message = "Network is empty"
		} else {
			check.Status = StatusHealthy
			check.Message = "Network loaded"
		}
		return check
	}
}

// StoreCheck creates a health check for persistence backend connectivity
func StoreCheck(backend string, ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "store",
			Details: map[string]any{"backend": backend},
		}

		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}

		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func(context.Context) Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		if sys > 0 && float64(alloc)/float64(sys)*100 > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}

// RuntimeMemory reads the Go runtime's heap figures for MemoryCheck
func RuntimeMemory() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}

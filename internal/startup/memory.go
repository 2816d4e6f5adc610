package startup

import (
	"fmt"
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"videolib/internal/logging"
)

// defaultMemoryRatio leaves room outside the Go heap for ffmpeg children.
const defaultMemoryRatio = 0.80

// MemoryLimit describes how GOMEMLIMIT was set.
type MemoryLimit struct {
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT" or "none"
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureMemory sets the Go memory limit from MEMORY_LIMIT (bytes, as
// passed by the Kubernetes downward API) scaled by MEMORY_RATIO. An explicit
// GOMEMLIMIT wins and is only reported.
func ConfigureMemory() MemoryLimit {
	if v := os.Getenv("GOMEMLIMIT"); v != "" {
		limit := debug.SetMemoryLimit(-1)
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		if limit <= 0 || limit == math.MaxInt64 {
			return MemoryLimit{Source: "none"}
		}
		return MemoryLimit{Source: "GOMEMLIMIT", GoMemLimit: limit}
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		return MemoryLimit{Source: "none"}
	}
	container, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || container <= 0 {
		logging.Warn("Ignoring MEMORY_LIMIT %q: not a positive byte count", raw)
		return MemoryLimit{Source: "none"}
	}

	ratio := defaultMemoryRatio
	if v := os.Getenv("MEMORY_RATIO"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 || r > 1 {
			logging.Warn("Ignoring MEMORY_RATIO %q, using %.2f", v, defaultMemoryRatio)
		} else {
			ratio = r
		}
	}

	limit := int64(float64(container) * ratio)
	debug.SetMemoryLimit(limit)
	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s)", formatBytes(limit), ratio*100, formatBytes(container))
	return MemoryLimit{Source: "MEMORY_LIMIT", ContainerLimit: container, GoMemLimit: limit, Ratio: ratio}
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

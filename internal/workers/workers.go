package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that pins the worker count.
const EnvOverride = "EXTRACT_WORKERS"

// Count returns a worker count for a task type, scaled from GOMAXPROCS so
// that container CPU limits are respected.
//
// multiplier is 1.0 for CPU-bound work and 2.0 for I/O-bound work such as
// probing files with ffprobe. limit caps the result; 0 means no cap.
// A positive EXTRACT_WORKERS value takes precedence (still capped).
func Count(multiplier float64, limit int) int {
	if n, ok := override(); ok {
		return capAt(n, limit)
	}

	n := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if n < 1 {
		n = 1
	}
	return capAt(n, limit)
}

// ForCPU returns a worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns a worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

func override() (int, bool) {
	v := os.Getenv(EnvOverride)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

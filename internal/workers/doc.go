/*
Package workers sizes worker pools from the CPUs actually available to the
process.

runtime.NumCPU reports host CPUs even inside a container with a CPU limit,
while GOMAXPROCS follows the cgroup quota. Count scales GOMAXPROCS by a
multiplier suited to the workload:

	workers.ForIO(8)  // extraction jobs, mostly waiting on ffprobe/ffmpeg
	workers.ForCPU(4) // pure CPU work

Operators can pin the value with EXTRACT_WORKERS; the limit passed by the
caller still applies.
*/
package workers

package util

import "runtime"

// ReasonableWorkerCount picks a default number of simulation workers.
// Every worker replays a whole trace against a private cache, so the work is
// CPU bound: GOMAXPROCS, clamped to [1..jobs] and to 256.
func ReasonableWorkerCount(jobs int) int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	if jobs > 0 && n > jobs {
		n = jobs
	}
	if n > 256 {
		n = 256
	}
	return n
}

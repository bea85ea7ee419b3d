// internal/runutil/runutil.go
package runutil

import "runtime"

// EffectiveWorkers returns n, or the number of CPUs when n <= 0.
func EffectiveWorkers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// EffectiveChunks returns how many chunks each file is split into. An
// explicit chunk count wins; otherwise one chunk per worker.
func EffectiveChunks(chunks, workers int) int {
	if chunks > 0 {
		return chunks
	}
	if workers > 0 {
		return workers
	}
	return 1
}

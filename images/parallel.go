package images

import (
	"runtime"
	"sync"
)

// Partition splits [0, dataSize) into at most workers contiguous ranges of near-equal size.
//
// Arguments:
//   - dataSize: The number of items to split.
//   - workers: The maximum number of ranges. Values <= 0 use runtime.NumCPU().
//
// Returns:
//   - [][2]int: Half-open [start, end) ranges in ascending order.
func Partition(dataSize, workers int) [][2]int {
	if dataSize <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	// Small inputs are not worth the goroutine overhead.
	if workers == 1 || dataSize < workers*2 {
		return [][2]int{{0, dataSize}}
	}

	parts := make([][2]int, workers)
	size := dataSize / workers
	for i := range parts {
		start := i * size
		end := start + size
		if i == workers-1 {
			end = dataSize
		}
		parts[i] = [2]int{start, end}
	}
	return parts
}

// Parallel runs fn once per partition of [0, dataSize), concurrently, and waits for all.
//
// fn receives the partition index so callers can write results into per-partition slots
// and merge them in order afterwards.
//
// @example
//
//	parts := images.Partition(n, 0)
//	out := make([][]T, len(parts))
//	images.Parallel(parts, func(part, start, end int) {
//	    out[part] = work(start, end)
//	})
func Parallel(parts [][2]int, fn func(part, start, end int)) {
	if len(parts) == 1 {
		fn(0, parts[0][0], parts[0][1])
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(parts))
	for i, p := range parts {
		go func(part, start, end int) {
			defer wg.Done()
			fn(part, start, end)
		}(i, p[0], p[1])
	}
	wg.Wait()
}

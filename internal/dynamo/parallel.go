package dynamo

import (
	"runtime"
	"sync"
)

// Workers is the number of goroutines ParallelFor fans out to.
var Workers = runtime.GOMAXPROCS(0)

// ParallelFor executes a function in parallel over a range [0, n).
// fn must not write to state shared between chunks.
func ParallelFor(n, minChunk int, fn func(start, end int)) {
	numWorkers := Workers
	if minChunk < 1 {
		minChunk = 1
	}
	if n <= minChunk || numWorkers <= 1 {
		fn(0, n)
		return
	}

	workers := numWorkers
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ParallelMax runs fn over chunks of [0, n) and returns the largest value reported.
func ParallelMax(n, minChunk int, fn func(start, end int) float64) float64 {
	var mu sync.Mutex
	best := 0.0
	ParallelFor(n, minChunk, func(start, end int) {
		v := fn(start, end)
		mu.Lock()
		if v > best {
			best = v
		}
		mu.Unlock()
	})
	return best
}

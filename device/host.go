package device

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// defaultParallelThreshold is the minimum item count below which ParallelFor
// runs its work serially on the calling goroutine instead of fanning out:
// below this, goroutine setup costs more than the work it parallelizes.
const defaultParallelThreshold = 256

// Host is the Device implementation backed by ordinary process memory and a
// pool of goroutines. It is the only Device variant available in this
// build; see cuda.go for why a GPU variant is not.
type Host struct {
	workers   int
	threshold int
}

// NewHost constructs a Host device. workers <= 0 defaults to
// runtime.GOMAXPROCS(0); threshold <= 0 defaults to defaultParallelThreshold.
func NewHost(workers, threshold int) *Host {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if threshold <= 0 {
		threshold = defaultParallelThreshold
	}
	return &Host{workers: workers, threshold: threshold}
}

func (h *Host) Kind() Kind { return KindHostCPU }

func (h *Host) Allocate(n int) (Buffer, error) {
	if n < 0 {
		return Buffer{}, ErrShortBuffer
	}
	return Buffer{Kind: KindHostCPU, Data: make([]byte, n)}, nil
}

// Free is a no-op on Host: the buffer's backing array is reclaimed by the
// Go garbage collector once the caller drops its last reference. The
// method exists so Host satisfies Device and so callers that also target a
// real accelerator can write device-agnostic cleanup code.
func (h *Host) Free(Buffer) {}

func (h *Host) Memcpy(dst, src Buffer, n int, _ Direction) error {
	if n < 0 || len(dst.Data) < n || len(src.Data) < n {
		return ErrShortBuffer
	}
	copy(dst.Data[:n], src.Data[:n])
	return nil
}

// ParallelFor partitions [0,n) into contiguous chunks sized by
// calcParallelism and runs one goroutine per chunk, joined with an
// errgroup.Group. Below h.threshold items it runs serially on the calling
// goroutine — a fast path for small batches where fan-out overhead would
// dominate.
func (h *Host) ParallelFor(n int, fn func(i int)) {
	if n <= 0 {
		return
	}

	chunkSize, chunks := calcParallelism(n, h.threshold, h.workers)
	if chunks <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var g errgroup.Group
	for c := 0; c < chunks; c++ {
		start := c * chunkSize
		end := min(start+chunkSize, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				fn(i)
			}
			return nil
		})
	}
	_ = g.Wait() // fn never errors today; the errgroup join leaves room for a device whose dispatch can fail
}

// Sync is a no-op on Host: ParallelFor already joined every worker via
// errgroup.Group.Wait before returning, which is itself the happens-before
// edge §4.A's sync() requires.
func (h *Host) Sync() {}

// calcParallelism picks a chunk size and goroutine count for splitting n
// items across cpus workers. Below threshold items, everything runs in one
// chunk (the caller's own goroutine).
func calcParallelism(n, threshold, cpus int) (chunkSize, chunks int) {
	if n < threshold {
		return n, 1
	}
	if cpus < 1 {
		cpus = 1
	}
	chunks = cpus
	chunkSize = (n + chunks - 1) / chunks
	if chunkSize < 1 {
		chunkSize = 1
	}
	chunks = (n + chunkSize - 1) / chunkSize
	return chunkSize, chunks
}

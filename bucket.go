package hashmap

import (
	"bytes"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sys/cpu"
)

// spinBackoffAfter is how many consecutive failed CAS attempts a spinLock
// spins on the CPU (via runtime.Gosched, which also lets the Go scheduler
// run other goroutines) before falling back to a short sleep. Only the
// spinLock backs off this way; the slab's claim/release CAS loops retry
// immediately. See DESIGN.md for why this
// implementation uses only exported sync/atomic and runtime.Gosched rather
// than a //go:linkname into unexported scheduler internals.
const spinBackoffAfter = 32

const spinSleep = 50 * time.Microsecond

// spinLock is a CAS-guarded lock word, the "small mutex or lock-word
// sufficient to serialize chain mutation" §3's Bucket entity calls for. A
// dedicated atomic.Bool rather than a lock bit packed into a wider metadata
// word, since these buckets have no other per-bucket metadata to share it
// with.
type spinLock struct {
	locked atomic.Bool
}

func (l *spinLock) Lock() {
	if l.locked.CompareAndSwap(false, true) {
		return
	}
	l.lockSlow()
}

func (l *spinLock) lockSlow() {
	spins := 0
	for !l.locked.CompareAndSwap(false, true) {
		if spins < spinBackoffAfter {
			runtime.Gosched()
			spins++
		} else {
			time.Sleep(spinSleep)
			spins = 0
		}
	}
}

func (l *spinLock) Unlock() {
	l.locked.Store(false)
}

// bucketChain is Component C's Bucket entity: a lock guarding the head of
// an intrusive chain of slab indices. The chain itself lives in the
// tableState's chainNext array, indexed by slab slot — bucketChain only
// remembers where its chain starts.
//
// Padded to a cache line (via golang.org/x/sys/cpu.CacheLinePad, the
// teacher's own dependency and technique in mapof_opt_cachelinesize.go) so
// that two goroutines locking adjacent buckets under heavy bulk-call
// contention do not ping-pong the same cache line.
type bucketChain struct {
	lock spinLock
	head int32
	_    cpu.CacheLinePad
}

// newBucketChains allocates a bucket table of n empty chains.
func newBucketChains(n int) []bucketChain {
	chains := make([]bucketChain, n)
	for i := range chains {
		chains[i].head = slabSentinel
	}
	return chains
}

// findInChain walks chain starting at head looking for a slab slot whose
// key region equals key. Caller must hold the owning bucketChain's lock (or
// be operating on a table not yet visible to concurrent callers, as during
// Rehash's bulk-insert into a fresh table).
func findInChain(head int32, chainNext []int32, s *slab, key []byte) (int32, bool) {
	for idx := head; idx != slabSentinel; idx = chainNext[idx] {
		if bytes.Equal(s.key(idx), key) {
			return idx, true
		}
	}
	return slabSentinel, false
}

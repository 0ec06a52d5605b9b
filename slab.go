package hashmap

import (
	"sync/atomic"

	"github.com/vxslab/hashmap/device"
)

// slabSentinel marks an empty free-list / end-of-chain in the free-list
// linkage. Slot indices are int32; capacities never need to exceed 2^31-1
// records.
const slabSentinel int32 = -1

// slab is Component B: a fixed-capacity pool of dsize_key+dsize_value byte
// records with a lock-free free list. claim/release are a tagged Treiber
// stack over a contiguous int32 array, the "shared atomic counter plus a
// free-list array, pop/push via compare-and-swap" §4.B asks for. The tag
// occupies the high 32 bits of the packed head word and is bumped on every
// successful pop/push, which defeats the ABA problem a bare index-only CAS
// would be vulnerable to (thread A pops X, thread B pops X's old neighbor
// and later frees X back to the same slot, thread A's stale CAS would
// otherwise still succeed).
type slab struct {
	dev       device.Device
	buf       device.Buffer
	keySize   int
	valueSize int
	recSize   int
	capacity  int32

	freeNext []int32 // freeNext[i] = next free slot after i, or slabSentinel
	head     atomic.Uint64
}

func packHead(tag uint32, idx int32) uint64 {
	return uint64(tag)<<32 | uint64(uint32(idx))
}

func unpackHead(h uint64) (tag uint32, idx int32) {
	return uint32(h >> 32), int32(uint32(h))
}

// newSlab allocates a slab of the given capacity on dev. Every slot starts
// on the free list, in index order.
func newSlab(dev device.Device, capacity, keySize, valueSize int) (*slab, error) {
	recSize := keySize + valueSize
	buf, err := dev.Allocate(capacity * recSize)
	if err != nil {
		return nil, err
	}
	s := &slab{
		dev:       dev,
		buf:       buf,
		keySize:   keySize,
		valueSize: valueSize,
		recSize:   recSize,
		capacity:  int32(capacity),
		freeNext:  make([]int32, capacity),
	}
	for i := 0; i < capacity; i++ {
		if i == capacity-1 {
			s.freeNext[i] = slabSentinel
		} else {
			s.freeNext[i] = int32(i + 1)
		}
	}
	if capacity > 0 {
		s.head.Store(packHead(0, 0))
	} else {
		s.head.Store(packHead(0, slabSentinel))
	}
	return s, nil
}

// close releases the slab's device buffer. Not safe to call concurrently
// with claim/release.
func (s *slab) close() {
	s.dev.Free(s.buf)
}

// claim removes and returns one free slot index, or slabSentinel if the
// slab is exhausted. Thread-safe against itself and release.
func (s *slab) claim() int32 {
	for {
		cur := s.head.Load()
		tag, idx := unpackHead(cur)
		if idx == slabSentinel {
			return slabSentinel
		}
		next := s.freeNext[idx]
		if s.head.CompareAndSwap(cur, packHead(tag+1, next)) {
			return idx
		}
	}
}

// release returns a previously claimed slot index to the free list.
// Thread-safe against itself and claim.
func (s *slab) release(idx int32) {
	for {
		cur := s.head.Load()
		tag, head := unpackHead(cur)
		s.freeNext[idx] = head
		if s.head.CompareAndSwap(cur, packHead(tag+1, idx)) {
			return
		}
	}
}

// addr returns the byte slice of the full record (key||value) at idx.
func (s *slab) addr(idx int32) []byte {
	off := int(idx) * s.recSize
	return s.buf.Data[off : off+s.recSize]
}

// key returns the key region of the record at idx.
func (s *slab) key(idx int32) []byte {
	return s.addr(idx)[:s.keySize]
}

// value returns the value region of the record at idx.
func (s *slab) value(idx int32) []byte {
	return s.addr(idx)[s.keySize:]
}

// freeCount walks the free list and counts its entries. Diagnostic only —
// §8's Conservation property (Size() + free_slots == capacity) is checked
// against this in tests, not on any hot path.
func (s *slab) freeCount() int {
	_, idx := unpackHead(s.head.Load())
	n := 0
	for idx != slabSentinel {
		n++
		idx = s.freeNext[idx]
	}
	return n
}

// Package hashmap implements a device-parallel, separately chained bulk hash
// table for fixed-width byte-typed key/value pairs. Every mutation is
// array-at-a-time: callers supply parallel key (and value) buffers and the
// Hashmap fans the work out across its Device's parallel-for primitive,
// returning one Iterator and one success bit per input index. See
// SPEC_FULL.md for the full contract.
package hashmap

import (
	"sync"
	"sync/atomic"

	"github.com/vxslab/hashmap/device"
	"golang.org/x/sys/cpu"
)

// counterStripe is one cache-line-padded atomic counter. Size() sums a
// small striped array of these instead of one shared counter — bulk calls
// touch many buckets concurrently, and a single atomic.Int64 would
// serialize every worker on one cache line.
type counterStripe struct {
	n atomic.Int64
	_ cpu.CacheLinePad
}

// tableState is the slab+bucket table generation a Hashmap currently
// forwards to. Rehash builds a new tableState and atomically swaps it in;
// the old one (and its Device buffers) is torn down only after every live
// record has been copied over, per §4.D.
type tableState struct {
	slab        *slab
	buckets     []bucketChain
	chainNext   []int32 // indexed by slab slot; intrusive chain linkage
	bucketCount int
	counters    []counterStripe
}

func newTableState(dev device.Device, bucketCount, capacity, keySize, valueSize int) (*tableState, error) {
	sl, err := newSlab(dev, capacity, keySize, valueSize)
	if err != nil {
		return nil, err
	}
	chainNext := make([]int32, capacity)
	for i := range chainNext {
		chainNext[i] = slabSentinel
	}
	return &tableState{
		slab:        sl,
		buckets:     newBucketChains(bucketCount),
		chainNext:   chainNext,
		bucketCount: bucketCount,
		counters:    make([]counterStripe, counterStripeCount(bucketCount)),
	}, nil
}

// counterStripeCount bounds the number of size counters: enough stripes to
// avoid contention, never more than there are buckets to stripe over.
func counterStripeCount(bucketCount int) int {
	n := 64
	if bucketCount < n {
		n = bucketCount
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (t *tableState) addSize(bucketIdx int, delta int64) {
	t.counters[bucketIdx%len(t.counters)].n.Add(delta)
}

func (t *tableState) sumSize() int64 {
	var total int64
	for i := range t.counters {
		total += t.counters[i].n.Load()
	}
	return total
}

func (t *tableState) close() {
	t.slab.close()
}

// Hashmap is the public facade (Component F): it owns one device-resident
// slab+bucket table generation behind an atomic.Pointer, swapped wholesale
// on Rehash, and forwards every bulk operation to it.
type Hashmap struct {
	dev        device.Device
	keySize    int
	valueSize  int
	seed       uint64
	threshold  int
	rehashMu   sync.Mutex
	state      atomic.Pointer[tableState]
}

// New constructs a Hashmap with explicit initial bucket and slab capacity,
// per §6's long-form constructor. keySize and valueSize are fixed byte
// widths for the life of the table.
func New(dev device.Device, initBuckets, initCapacity, keySize, valueSize int, opts ...Option) (*Hashmap, error) {
	if keySize <= 0 || valueSize < 0 || initBuckets <= 0 || initCapacity <= 0 {
		return nil, ErrInvalidShape
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := newTableState(dev, initBuckets, initCapacity, keySize, valueSize)
	if err != nil {
		return nil, err
	}

	h := &Hashmap{
		dev:       dev,
		keySize:   keySize,
		valueSize: valueSize,
		seed:      cfg.seed,
		threshold: cfg.parallelThreshold,
	}
	h.state.Store(st)
	return h, nil
}

// NewSized is the short-form constructor from §6: it picks
// initBuckets ≈ initCapacity.
func NewSized(dev device.Device, initCapacity, keySize, valueSize int, opts ...Option) (*Hashmap, error) {
	return New(dev, initCapacity, initCapacity, keySize, valueSize, opts...)
}

func (h *Hashmap) table() *tableState { return h.state.Load() }

// Device reports the memory+compute domain this Hashmap's storage lives on.
func (h *Hashmap) Device() device.Device { return h.dev }

// KeySize reports dsize_key in bytes.
func (h *Hashmap) KeySize() int { return h.keySize }

// ValueSize reports dsize_value in bytes.
func (h *Hashmap) ValueSize() int { return h.valueSize }

// Size reports the current live-record count.
func (h *Hashmap) Size() int {
	return int(h.table().sumSize())
}

// Capacity reports the current slab capacity (max simultaneously-live
// records before Insert/Activate start returning SlabExhausted masks).
func (h *Hashmap) Capacity() int {
	return int(h.table().slab.capacity)
}

// LoadFactor reports Size() / bucket_count.
func (h *Hashmap) LoadFactor() float64 {
	st := h.table()
	if st.bucketCount == 0 {
		return 0
	}
	return float64(st.sumSize()) / float64(st.bucketCount)
}

// BucketSizes reports the current chain length of every bucket, in bucket
// index order. Diagnostic only, per §6 — no performance requirement, and
// it is not safe to call concurrently with a bulk call on the same
// Hashmap (no bulk call is safe to run concurrently with anything else on
// the same instance, per §5).
func (h *Hashmap) BucketSizes() []int {
	st := h.table()
	sizes := make([]int, st.bucketCount)
	for i := range st.buckets {
		n := 0
		for idx := st.buckets[i].head; idx != slabSentinel; idx = st.chainNext[idx] {
			n++
		}
		sizes[i] = n
	}
	return sizes
}

// BucketCount reports the current number of buckets.
func (h *Hashmap) BucketCount() int {
	return h.table().bucketCount
}

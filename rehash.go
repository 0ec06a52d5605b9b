package hashmap

import "github.com/vxslab/hashmap/device"

// Rehash replaces the current table generation with a fresh one sized to
// newBucketCount buckets (and a matching slab capacity), copying every
// live record across. §4.D's four-step protocol: collect every live
// iterator, unpack it to raw key/value bytes, bulk-insert those bytes into
// a newly built table, then atomically publish it and free the old one.
// No other bulk call is safe to run concurrently with Rehash, or with
// another Rehash, on the same Hashmap (§5) — rehashMu enforces the latter.
func (h *Hashmap) Rehash(newBucketCount int) error {
	if newBucketCount <= 0 {
		return ErrInvalidShape
	}

	h.rehashMu.Lock()
	defer h.rehashMu.Unlock()

	old := h.table()
	size := int(old.sumSize())

	iters := make([]Iterator, size)
	if _, err := h.GetIterators(iters); err != nil {
		return err
	}

	keyBuf := make([]byte, size*h.keySize)
	var valueBuf []byte
	valDev := device.Buffer{}
	if h.valueSize > 0 {
		valueBuf = make([]byte, size*h.valueSize)
		valDev = device.Buffer{Kind: h.dev.Kind(), Data: valueBuf}
	}
	keyDev := device.Buffer{Kind: h.dev.Kind(), Data: keyBuf}
	if err := h.UnpackIterators(iters, nil, keyDev, valDev); err != nil {
		return err
	}

	newCapacity := size * 2
	if newCapacity < newBucketCount {
		newCapacity = newBucketCount
	}
	if newCapacity < 1 {
		newCapacity = 1
	}

	newState, err := newTableState(h.dev, newBucketCount, newCapacity, h.keySize, h.valueSize)
	if err != nil {
		return ErrCapacity
	}

	if size > 0 {
		bulkInsertInto(newState, h.seed, keyDev, valDev, size, h.keySize, h.valueSize)
	}

	h.state.Store(newState)
	old.close()
	return nil
}

// bulkInsertInto inserts count key/value pairs directly into st, without
// going through a Hashmap's public validation path or bucket locking:
// st is not yet visible to any other caller (rehashMu excludes concurrent
// Rehash calls, and the old table is still what everyone else sees), so a
// single-goroutine pass is both correct and simpler than fanning out.
func bulkInsertInto(st *tableState, seed uint64, keys, values device.Buffer, count, keySize, valueSize int) {
	for i := 0; i < count; i++ {
		k := keys.Data[i*keySize : (i+1)*keySize]
		bucketIdx := int(hashKey(seed, k) % uint64(st.bucketCount))
		b := &st.buckets[bucketIdx]

		slot := st.slab.claim()
		if slot == slabSentinel {
			continue
		}
		copy(st.slab.key(slot), k)
		if valueSize > 0 {
			copy(st.slab.value(slot), values.Data[i*valueSize:(i+1)*valueSize])
		}
		st.chainNext[slot] = b.head
		b.head = slot
		st.addSize(bucketIdx, 1)
	}
}

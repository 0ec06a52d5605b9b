package hashmap

import (
	"bytes"

	"github.com/vxslab/hashmap/device"
)

// checkKeysBuffer validates a mandatory key buffer: present, on the right
// device, wide enough for count keys. Every bulk op that walks a key array
// needs exactly this check (§4.E: "validates that arrays reside on the
// same device as the hashmap ... failing with DeviceMismatch otherwise").
func (h *Hashmap) checkKeysBuffer(keys device.Buffer, count int) error {
	if keys.Data == nil {
		return ErrInvalidShape
	}
	if keys.Kind != h.dev.Kind() {
		return ErrDeviceMismatch
	}
	if keys.Len() < count*h.keySize {
		return ErrInvalidShape
	}
	return nil
}

// checkBuffer validates an optional buffer: a nil Data disables the output
// ("A nullptr output disables writing that output", §4.E) and is not an
// error; a non-nil one must be on the right device and wide enough.
func (h *Hashmap) checkBuffer(buf device.Buffer, count, elemSize int) error {
	if buf.Data == nil {
		return nil
	}
	if buf.Kind != h.dev.Kind() {
		return ErrDeviceMismatch
	}
	if buf.Len() < count*elemSize {
		return ErrInvalidShape
	}
	return nil
}

// dispatch runs fn over every index in [0,n) and establishes the
// happens-before edge §5 requires at the end of a bulk call. Below
// h.threshold (WithParallelThreshold) it runs fn serially in this
// goroutine instead of going through h.dev.ParallelFor — the Device's own
// construction-time threshold (e.g. device.NewHost's threshold argument)
// governs how ParallelFor itself partitions work once dispatched, but has
// no visibility into a per-Hashmap override, so the choice of whether to
// dispatch through the device at all belongs here.
func (h *Hashmap) dispatch(n int, fn func(i int)) {
	if n < h.threshold {
		for i := 0; i < n; i++ {
			fn(i)
		}
	} else {
		h.dev.ParallelFor(n, fn)
	}
	h.dev.Sync()
}

// insertOrActivate implements both Insert and Activate (§4.C): they differ
// only in whether a value is read from the caller and copied into a newly
// claimed slot. The duplicate-resolution guarantee ("exactly one of the
// colliding indices succeeds") falls out of every worker acquiring the
// same bucketChain.lock before it may claim a slot for that key — the
// linearization point §4.C requires.
func (h *Hashmap) insertOrActivate(keys, values device.Buffer, count int, iterators []Iterator, masks []bool, withValue bool) error {
	if count < 0 {
		return ErrInvalidShape
	}
	if count == 0 {
		return nil
	}
	if err := h.checkKeysBuffer(keys, count); err != nil {
		return err
	}
	if withValue {
		if values.Data == nil {
			return ErrInvalidShape
		}
		if err := h.checkBuffer(values, count, h.valueSize); err != nil {
			return err
		}
	}
	if iterators != nil && len(iterators) < count {
		return ErrInvalidShape
	}
	if masks != nil && len(masks) < count {
		return ErrInvalidShape
	}

	st := h.table()
	h.dispatch(count, func(i int) {
		k := keys.Data[i*h.keySize : (i+1)*h.keySize]
		bucketIdx := int(hashKey(h.seed, k) % uint64(st.bucketCount))
		b := &st.buckets[bucketIdx]

		b.lock.Lock()
		defer b.lock.Unlock()

		if idx, found := findInChain(b.head, st.chainNext, st.slab, k); found {
			if iterators != nil {
				iterators[i] = Iterator{slot: idx}
			}
			if masks != nil {
				masks[i] = false
			}
			return
		}

		slot := st.slab.claim()
		if slot == slabSentinel {
			if iterators != nil {
				iterators[i] = invalidIterator
			}
			if masks != nil {
				masks[i] = false
			}
			return
		}

		copy(st.slab.key(slot), k)
		if withValue {
			copy(st.slab.value(slot), values.Data[i*h.valueSize:(i+1)*h.valueSize])
		}
		st.chainNext[slot] = b.head
		b.head = slot
		st.addSize(bucketIdx, 1)

		if iterators != nil {
			iterators[i] = Iterator{slot: slot}
		}
		if masks != nil {
			masks[i] = true
		}
	})
	return nil
}

// Insert bulk-inserts count keys with their paired values. masks may be
// nil ("I trust all will succeed and do not wish to learn otherwise",
// §4.E) — duplicate resolution is still performed correctly either way.
func (h *Hashmap) Insert(keys, values device.Buffer, count int, iterators []Iterator, masks []bool) error {
	return h.insertOrActivate(keys, values, count, iterators, masks, true)
}

// Activate bulk-inserts count keys with their value regions left
// uninitialized, for callers who will fill them in by writing through the
// returned Iterator via AssignIterators. masks must be non-nil: an
// Activate result's success is not otherwise derivable (§4.E).
func (h *Hashmap) Activate(keys device.Buffer, count int, iterators []Iterator, masks []bool) error {
	if masks == nil {
		return ErrInvalidShape
	}
	return h.insertOrActivate(keys, device.Buffer{}, count, iterators, masks, false)
}

// Find bulk-looks-up count keys. masks must be non-nil: a Find result's
// success is not otherwise derivable (§4.E).
func (h *Hashmap) Find(keys device.Buffer, count int, iterators []Iterator, masks []bool) error {
	if masks == nil {
		return ErrInvalidShape
	}
	if count < 0 {
		return ErrInvalidShape
	}
	if count == 0 {
		return nil
	}
	if err := h.checkKeysBuffer(keys, count); err != nil {
		return err
	}
	if iterators != nil && len(iterators) < count {
		return ErrInvalidShape
	}
	if len(masks) < count {
		return ErrInvalidShape
	}

	st := h.table()
	h.dispatch(count, func(i int) {
		k := keys.Data[i*h.keySize : (i+1)*h.keySize]
		bucketIdx := int(hashKey(h.seed, k) % uint64(st.bucketCount))
		b := &st.buckets[bucketIdx]

		b.lock.Lock()
		idx, found := findInChain(b.head, st.chainNext, st.slab, k)
		b.lock.Unlock()

		if found {
			if iterators != nil {
				iterators[i] = Iterator{slot: idx}
			}
			masks[i] = true
		} else {
			if iterators != nil {
				iterators[i] = invalidIterator
			}
			masks[i] = false
		}
	})
	return nil
}

// Erase bulk-removes count keys. The released slots' bytes are not
// zeroed, per §4.C. masks may be nil.
func (h *Hashmap) Erase(keys device.Buffer, count int, masks []bool) error {
	if count < 0 {
		return ErrInvalidShape
	}
	if count == 0 {
		return nil
	}
	if err := h.checkKeysBuffer(keys, count); err != nil {
		return err
	}
	if masks != nil && len(masks) < count {
		return ErrInvalidShape
	}

	st := h.table()
	h.dispatch(count, func(i int) {
		k := keys.Data[i*h.keySize : (i+1)*h.keySize]
		bucketIdx := int(hashKey(h.seed, k) % uint64(st.bucketCount))
		b := &st.buckets[bucketIdx]

		b.lock.Lock()
		found := eraseFromChain(b, st, k)
		if found {
			st.addSize(bucketIdx, -1)
		}
		b.lock.Unlock()

		if masks != nil {
			masks[i] = found
		}
	})
	return nil
}

// eraseFromChain unlinks the slot whose key equals k from b's chain and
// releases it back to the slab. Caller must hold b.lock.
func eraseFromChain(b *bucketChain, st *tableState, k []byte) bool {
	prev := slabSentinel
	idx := b.head
	for idx != slabSentinel {
		if bytes.Equal(st.slab.key(idx), k) {
			if prev == slabSentinel {
				b.head = st.chainNext[idx]
			} else {
				st.chainNext[prev] = st.chainNext[idx]
			}
			st.slab.release(idx)
			return true
		}
		prev = idx
		idx = st.chainNext[idx]
	}
	return false
}

// GetIterators performs a parallel sweep of the bucket table, packing the
// addresses of every live record densely via a prefix sum over chain
// lengths (§4.C). Order across buckets follows bucket index order; order
// within a bucket follows that bucket's chain traversal order. Returns
// the total live count, which always equals Size().
func (h *Hashmap) GetIterators(iterators []Iterator) (int, error) {
	st := h.table()
	n := st.bucketCount

	counts := make([]int, n)
	h.dispatch(n, func(i int) {
		c := 0
		for idx := st.buckets[i].head; idx != slabSentinel; idx = st.chainNext[idx] {
			c++
		}
		counts[i] = c
	})

	offsets := make([]int, n+1)
	for i := 0; i < n; i++ {
		offsets[i+1] = offsets[i] + counts[i]
	}
	total := offsets[n]

	if iterators != nil {
		if len(iterators) < total {
			return 0, ErrInvalidShape
		}
		h.dispatch(n, func(i int) {
			o := offsets[i]
			for idx := st.buckets[i].head; idx != slabSentinel; idx = st.chainNext[idx] {
				iterators[o] = Iterator{slot: idx}
				o++
			}
		})
	}
	return total, nil
}

// UnpackIterators copies the key and/or value bytes addressed by each
// Iterator into outKeys/outValues, skipping any index whose mask is false
// (§4.C). masks may be nil, meaning every index is unpacked.
func (h *Hashmap) UnpackIterators(iterators []Iterator, masks []bool, outKeys, outValues device.Buffer) error {
	count := len(iterators)
	if masks != nil && len(masks) < count {
		return ErrInvalidShape
	}
	if err := h.checkBuffer(outKeys, count, h.keySize); err != nil {
		return err
	}
	if err := h.checkBuffer(outValues, count, h.valueSize); err != nil {
		return err
	}

	st := h.table()
	h.dispatch(count, func(i int) {
		if masks != nil && !masks[i] {
			return
		}
		it := iterators[i]
		if !it.Valid() {
			return
		}
		if outKeys.Data != nil {
			copy(outKeys.Data[i*h.keySize:(i+1)*h.keySize], st.slab.key(it.slot))
		}
		if outValues.Data != nil {
			copy(outValues.Data[i*h.valueSize:(i+1)*h.valueSize], st.slab.value(it.slot))
		}
	})
	return nil
}

// AssignIterators copies dsize_value bytes from inValues into the value
// region addressed by each Iterator, skipping any index whose mask is
// false (§4.C). masks may be nil, meaning every index is assigned.
func (h *Hashmap) AssignIterators(iterators []Iterator, masks []bool, inValues device.Buffer) error {
	count := len(iterators)
	if masks != nil && len(masks) < count {
		return ErrInvalidShape
	}
	if inValues.Data == nil {
		return ErrInvalidShape
	}
	if err := h.checkBuffer(inValues, count, h.valueSize); err != nil {
		return err
	}

	st := h.table()
	h.dispatch(count, func(i int) {
		if masks != nil && !masks[i] {
			return
		}
		it := iterators[i]
		if !it.Valid() {
			return
		}
		copy(st.slab.value(it.slot), inValues.Data[i*h.valueSize:(i+1)*h.valueSize])
	})
	return nil
}

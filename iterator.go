package hashmap

// Iterator is the opaque, stable handle §3/§9 describe: a tagged
// {slab slot} reference rather than a raw byte pointer. It is only ever
// dereferenced by the Hashmap itself, through UnpackIterators, AssignIterators,
// or GetIterators — never by the caller directly. An Iterator is valid until
// its record's key is erased or the table it came from is rehashed; using a
// stale Iterator after either is a caller bug the API does not detect (the
// teacher's own held-pointer iterators have the identical hazard; see §9's
// "Opaque iterator vs cycle of references" design note for why this is the
// eliminated-hazard version, not a new one).
type Iterator struct {
	slot int32
}

// invalidIterator is written for positions whose operation produced a
// false mask bit; its value is unspecified and must not be interpreted.
var invalidIterator = Iterator{slot: -1}

// Valid reports whether it is not the distinguished invalid handle. It does not
// imply the Iterator is still live in some Hashmap — only that it is not
// the sentinel written on a masked-out index.
func (it Iterator) Valid() bool { return it.slot >= 0 }

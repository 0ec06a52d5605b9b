package hashmap

import "errors"

// Per-call fatal errors (§7). A bulk call returning one of these writes no
// output at all — callers must not read iterators or masks afterward.
var (
	// ErrInvalidShape is returned when a key/value/iterator/mask slice
	// does not have the byte width or element count the call requires.
	ErrInvalidShape = errors.New("hashmap: invalid shape")

	// ErrDeviceMismatch is returned when a caller-supplied Buffer is
	// tagged with a device Kind different from the Hashmap's own.
	ErrDeviceMismatch = errors.New("hashmap: device mismatch")

	// ErrCapacity is returned by Rehash when it cannot allocate the new
	// slab/bucket table.
	ErrCapacity = errors.New("hashmap: capacity error")
)

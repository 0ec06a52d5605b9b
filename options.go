package hashmap

import "math/rand"

// config holds the resolved set of Option values. Unexported, like the
// teacher's MapConfig — callers only ever see functional Option values.
type config struct {
	seed              uint64
	parallelThreshold int
}

// Option configures a Hashmap at construction time, using the ordinary Go
// functional-options shape (func(*config)). New/NewSized already take
// initBuckets and initCapacity positionally per §6, so the remaining knobs
// are the hash seed and the device fan-out threshold rather than a size
// hint.
type Option func(*config)

// WithSeed fixes the Hashmap's hash seed instead of deriving one from
// runtime entropy. Two Hashmaps built with the same seed over the same
// keys route those keys to the same buckets — useful for reproducible
// tests, not required for correctness.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.seed = seed }
}

// WithParallelThreshold sets the minimum per-call item count below which
// bulk operations run serially instead of dispatching through the device's
// ParallelFor.
func WithParallelThreshold(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.parallelThreshold = n
		}
	}
}

func defaultConfig() config {
	return config{
		seed:              defaultSeed(),
		parallelThreshold: 256,
	}
}

// defaultSeed derives a starting seed from runtime entropy, so that two
// unconfigured Hashmaps don't hash identically. Not a cryptographic
// property, just enough to decorrelate default seeds across instances.
func defaultSeed() uint64 {
	return rand.Uint64()
}

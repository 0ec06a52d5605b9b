package hashmap

import "github.com/cespare/xxhash/v2"

// hashKey computes the seeded byte-wise avalanche hash §4.C calls for.
// xxhash provides the avalanche over the raw key bytes; the per-hashmap
// seed is folded in and the result re-mixed through a golden-ratio
// multiplier (hashPrime, split by word size in
// hash_prime_64.go/hash_prime_32.go), so that two Hashmaps constructed
// with different seeds over the same keys do not merely differ by a
// constant XOR.
func hashKey(seed uint64, key []byte) uint64 {
	h := xxhash.Sum64(key)
	h ^= seed
	h *= hashPrime
	h ^= h >> 32
	return h
}

package hashmap

import (
	"encoding/binary"
	"math"

	"github.com/vxslab/hashmap/device"
)

// Unique is Component E, the sole client operator this package exports on
// top of the raw bulk primitive (§4.F). Given count fixed-width keys, it
// builds a throwaway internal Hashmap sized to the input, bulk-inserts
// every key with its input index as the stored value, and reports which
// input position's insert created the record for its key. For a key that
// occurs more than once, exactly one of its positions is kept; which one
// is not specified, since the insert may run in parallel.
//
// The returned uniqueKeys is the original keys buffer unchanged — per
// §4.F's own text, deduplication does not reorder or compact the input;
// keepMask marks which of its count entries survive. A caller wanting the
// compacted set filters keys by keepMask itself (or calls GetIterators on
// the internal table before it goes out of scope, though this entry point
// does not expose that table).
func Unique(dev device.Device, keys device.Buffer, keySize, count int, opts ...Option) (uniqueKeys device.Buffer, keepMask []bool, err error) {
	if count < 0 || keySize <= 0 {
		return device.Buffer{}, nil, ErrInvalidShape
	}
	if count == 0 {
		return keys, nil, nil
	}
	if keys.Data == nil || keys.Kind != dev.Kind() || keys.Len() < count*keySize {
		return device.Buffer{}, nil, ErrInvalidShape
	}

	// value = the input index as a fixed 8-byte little-endian integer, so
	// a later Find on the internal table (not exposed here) could recover
	// which input position first claimed a given key.
	const valueSize = 8

	bucketCount := nextOddBucketCount(count)
	h, err := New(dev, bucketCount, count, keySize, valueSize, opts...)
	if err != nil {
		return device.Buffer{}, nil, err
	}

	values := make([]byte, count*valueSize)
	for i := 0; i < count; i++ {
		binary.LittleEndian.PutUint64(values[i*valueSize:(i+1)*valueSize], uint64(i))
	}
	valuesBuf := device.Buffer{Kind: dev.Kind(), Data: values}

	masks := make([]bool, count)
	if err := h.Insert(keys, valuesBuf, count, nil, masks); err != nil {
		return device.Buffer{}, nil, err
	}

	return keys, masks, nil
}

// nextOddBucketCount picks a bucket count close to n but odd: an odd
// modulus spreads a poor hash's low bits across buckets better than a
// power of two does.
func nextOddBucketCount(n int) int {
	if n < 1 {
		n = 1
	}
	if n%2 == 0 {
		n++
	}
	return n
}

// VoxelKey quantizes a 3D point to its containing voxel's integer
// coordinate, floor(point[i]/voxelSize) per axis. A quotient within a
// relative 1e-9 of an integer is snapped to that integer before flooring,
// so that float64 division error (1.2/0.1 == 11.999999999999998) does not
// drop a point into the voxel below. It exists solely to
// build the fixed-width byte keys the voxel-deduplication scenario feeds
// to Unique; it is not a geometry library and performs no bounds or
// neighbor reasoning beyond this one quantization.
func VoxelKey(point [3]float64, voxelSize float64) [3]int64 {
	var key [3]int64
	for i, p := range point {
		q := p / voxelSize
		if r := math.Round(q); math.Abs(q-r) <= 1e-9*math.Max(1, math.Abs(r)) {
			q = r
		}
		key[i] = int64(math.Floor(q))
	}
	return key
}

// EncodeVoxelKey packs a VoxelKey into the 24-byte fixed-width key layout
// (three little-endian int64 lanes) that Unique's keys buffer expects.
func EncodeVoxelKey(k [3]int64) []byte {
	buf := make([]byte, 24)
	for i, v := range k {
		binary.LittleEndian.PutUint64(buf[i*8:(i+1)*8], uint64(v))
	}
	return buf
}

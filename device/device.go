// Package device provides the capability set a Hashmap needs from its
// memory+compute domain: allocate/free, memcpy between buffers, a
// parallel-for primitive, and a synchronization point. Implementations are
// expected to be thin: a Host implementation is provided here. No GPU
// implementation is present in this build: NewCUDA (cuda.go) always returns
// ErrUnsupportedDevice.
package device

import "errors"

// ErrUnsupportedDevice is returned by a constructor for a device variant
// that is not available in this build.
var ErrUnsupportedDevice = errors.New("device: unsupported in this build")

// ErrShortBuffer is returned by Memcpy when either buffer is smaller than
// the requested copy length.
var ErrShortBuffer = errors.New("device: short buffer")

// Kind identifies the memory+compute domain a Buffer or Device belongs to.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindHostCPU
	KindGPUCUDA
)

func (k Kind) String() string {
	switch k {
	case KindHostCPU:
		return "host_cpu"
	case KindGPUCUDA:
		return "gpu_cuda"
	default:
		return "unknown"
	}
}

// Direction names the source/destination relationship for a Memcpy.
type Direction uint8

const (
	HostToDevice Direction = iota
	DeviceToHost
	DeviceToDevice
)

// Buffer is an allocation tagged with the Kind of device it lives on. A
// Hashmap checks this tag against its own Device before touching caller
// buffers, which is what lets DeviceMismatch be caught without any real
// cross-device hardware present.
type Buffer struct {
	Kind Kind
	Data []byte
}

// Len reports the buffer's length in bytes.
func (b Buffer) Len() int { return len(b.Data) }

// Device is the trait every memory+compute domain implements. The
// Hashmap is generic over this interface; it never imports a concrete
// device implementation.
type Device interface {
	// Kind reports which memory space this device manages.
	Kind() Kind

	// Allocate reserves n bytes on the device and returns a Buffer tagged
	// with this device's Kind.
	Allocate(n int) (Buffer, error)

	// Free releases a Buffer previously returned by Allocate. Buffers not
	// owned by this device must not be passed in.
	Free(b Buffer)

	// Memcpy copies n bytes from src to dst. Direction is advisory on a
	// single-memory-space host device but load-bearing on a real
	// accelerator, where it selects the transfer engine.
	Memcpy(dst, src Buffer, n int, dir Direction) error

	// ParallelFor invokes fn(i) for every i in [0,n) using some partition
	// across workers. Callers make no assumption about call order or
	// which goroutine runs a given i. ParallelFor returns once every fn
	// call has returned.
	ParallelFor(n int, fn func(i int))

	// Sync establishes a happens-before relationship between prior
	// ParallelFor work on this device and subsequent host reads.
	Sync()
}

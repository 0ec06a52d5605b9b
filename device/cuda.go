package device

// NewCUDA would construct a Device backed by a CUDA stream, per §4.A's
// gpu_cuda variant and §9's "Polymorphism over devices" design note. It is
// not implemented: no CUDA toolkit or Go CUDA binding is available to this
// build, and fabricating one behind a replace directive would defeat the
// point of depending on it. A real build adds this capability by writing a
// second file that implements Device — Hashmap and the rest of this
// package never reference Host directly, only the Device interface.
func NewCUDA(deviceIndex int) (Device, error) {
	return nil, ErrUnsupportedDevice
}

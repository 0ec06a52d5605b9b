//go:build amd64 || arm64 || ppc64 || ppc64le || mips64 || mips64le || riscv64 || s390x || wasm

package hashmap

// hashPrime is the 64-bit Golden Ratio mixing constant, adapted from the
// teacher's own per-word-size hashPrime (mapof_opt_cpu_64.go).
const hashPrime = 0x9E3779B185EBCA87

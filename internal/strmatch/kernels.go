package strmatch

import (
	"encoding/binary"
	"unsafe"
)

type kernelSet struct {
	impl      Impl
	equal     func(a, b string) bool
	contains  func(part, whole string) bool
	equalFold func(a, b string) bool
	typo      func(a, b string) int
	equal128  func(a, b *[16]byte) bool
}

var (
	genericKernels = &kernelSet{
		impl:      Generic,
		equal:     equalGeneric,
		contains:  containsGeneric,
		equalFold: equalFoldGeneric,
		typo:      typoGeneric,
		equal128:  equal128Generic,
	}
	batchedKernels = &kernelSet{
		impl:      Batched,
		equal:     equalBatched,
		contains:  containsBatched,
		equalFold: equalFoldBatched,
		typo:      typoBatched,
		equal128:  equal128Batched,
	}
)

func kernelsFor(impl Impl) *kernelSet {
	if impl == Batched {
		return batchedKernels
	}
	return genericKernels
}

// Equal reports whether a and b hold the same bytes.
func Equal(a, b string) bool {
	return active.Load().equal(a, b)
}

// PartialMatch reports whether whole contains part as a contiguous run of
// bytes. An empty part matches everything.
func PartialMatch(part, whole string) bool {
	return active.Load().contains(part, whole)
}

// EqualFoldString compares a and b ignoring ASCII case. Bytes outside
// A-Z/a-z must match exactly.
func EqualFoldString(a, b string) bool {
	return active.Load().equalFold(a, b)
}

// TypoDistance counts the byte positions at which a and b differ over their
// common prefix length, plus the difference in their lengths.
func TypoDistance(a, b string) int {
	return active.Load().typo(a, b)
}

// Equal128 compares two 128-bit values.
func Equal128(a, b *[16]byte) bool {
	return active.Load().equal128(a, b)
}

const (
	lsb  = 0x0101010101010101
	msb  = 0x8080808080808080
	low7 = 0x7f7f7f7f7f7f7f7f
)

// bytesOf views s without copying. The result must not be written.
func bytesOf(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func word(b []byte, i int) uint64 {
	return binary.LittleEndian.Uint64(b[i:])
}

// nonZeroBytes sets the high bit of every byte of x that is not zero.
func nonZeroBytes(x uint64) uint64 {
	return (((x & low7) + low7) | x) & msb
}

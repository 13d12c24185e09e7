package util

import "math/bits"

// IsPowerOfTwo reports whether x is a power of two (> 0).
func IsPowerOfTwo(x uint64) bool {
	return x != 0 && (x&(x-1)) == 0
}

// NextPow2 returns the smallest power of two >= x. NextPow2(0) is 1, and
// results that would overflow are clamped to 1<<63.
func NextPow2(x uint64) uint64 {
	return 1 << Log2Ceil(x)
}

// Log2Ceil returns the exponent of NextPow2(x), at most 63.
func Log2Ceil(x uint64) int {
	if x <= 1 {
		return 0
	}
	return min(bits.Len64(x-1), 63)
}

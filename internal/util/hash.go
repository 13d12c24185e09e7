// Package util contains internal helpers (hashing, power-of-two math, worker sizing).
//
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HashID hashes an object identifier. The 8 little-endian bytes of id are
// fed to xxhash so sequential ids spread evenly over power-of-two tables.
func HashID(id uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], id)
	return xxhash.Sum64(b[:])
}

// HashString maps a string key (e.g. a URL from a CSV trace) to an identifier.
func HashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// BucketIndex maps a 64-bit hash to a bucket of a power-of-two table.
func BucketIndex(hash uint64, buckets int) int {
	if buckets <= 1 {
		return 0
	}
	return int(hash & uint64(buckets-1))
}

// Package xhash provides the single seeded, non-cryptographic hash
// primitive shared by every filter and the ring. Varying the seed gives
// the independent hash functions needed for k-wise Bloom placement,
// cuckoo fingerprinting/bucketing, and ring item positioning.
package xhash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Seeded computes H(seed, data) -> uint32, deterministic for a given
// (seed, data) pair and cheap to compute repeatedly.
func Seeded(seed uint32, data []byte) uint32 {
	d := xxhash.New()

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], seed)
	_, _ = d.Write(buf[:])
	_, _ = d.Write(data)

	sum := d.Sum64()

	return uint32(sum) ^ uint32(sum>>32)
}

// SeededU64 is the 64-bit variant, used where more bits of hash are
// useful (cuckoo fingerprint extraction).
func SeededU64(seed uint32, data []byte) uint64 {
	d := xxhash.New()

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], seed)
	_, _ = d.Write(buf[:])
	_, _ = d.Write(data)

	return d.Sum64()
}

package filter

import (
	"math"

	"github.com/hypercache/kvcore/internal/xhash"
)

const wordBits = 64

// SimpleBloom is a fixed-size bit-array Bloom filter: insert and query
// only, no removal (spec.md §4.2 — clearing a bit could un-set another
// item's membership). Bits are packed into 64-bit words, the layout
// mirrored on dgraph-io-ristretto's z.Bloom bit-packing.
type SimpleBloom struct {
	bits []uint64
	m    uint64 // number of bits
	k    uint32 // number of hash functions
}

// NewSimpleBloom sizes a filter for an expected key count n and a target
// false-positive rate p, following spec.md §4.2:
//
//	m = ceil(n * ln(p) / ln(0.618))
//	k = floor((m/n) * ln(2))
func NewSimpleBloom(n uint64, p float64) (*SimpleBloom, error) {
	if n == 0 {
		return nil, &FilterError{Op: "new", Message: "expected item count must be > 0"}
	}
	if p <= 0 || p >= 1 {
		return nil, &FilterError{Op: "new", Message: "false positive rate must be in (0,1)"}
	}

	m := uint64(math.Ceil(float64(n) * math.Log(p) / math.Log(0.618)))
	if m < 1 {
		m = 1
	}

	k := uint32(math.Floor((float64(m) / float64(n)) * math.Ln2))
	if k < 1 {
		k = 1
	}

	words := (m + wordBits - 1) / wordBits

	return &SimpleBloom{
		bits: make([]uint64, words),
		m:    m,
		k:    k,
	}, nil
}

func (b *SimpleBloom) positions(item []byte) []uint64 {
	pos := make([]uint64, b.k)
	for i := uint32(0); i < b.k; i++ {
		pos[i] = uint64(xhash.Seeded(i, item)) % b.m
	}

	return pos
}

func (b *SimpleBloom) getBit(pos uint64) bool {
	return b.bits[pos/wordBits]&(1<<(pos%wordBits)) != 0
}

func (b *SimpleBloom) setBit(pos uint64) (flipped bool) {
	word, bit := pos/wordBits, pos%wordBits
	mask := uint64(1) << bit
	if b.bits[word]&mask == 0 {
		b.bits[word] |= mask
		return true
	}

	return false
}

// Insert sets every h_i(item) bit. The returned bool is a hint — true iff
// at least one bit flipped from 0 to 1, meaning the item was *likely* new
// — it is not a membership-correctness signal: a false-positive collision
// on every one of the k bits can make a genuinely new item report false
// here. Callers that need an authoritative answer must call Query.
func (b *SimpleBloom) Insert(item []byte) (bool, error) {
	if len(item) == 0 {
		return false, ErrEmptyItem
	}

	likelyNew := false
	for _, pos := range b.positions(item) {
		if b.setBit(pos) {
			likelyNew = true
		}
	}

	return likelyNew, nil
}

// Query returns true iff every h_i(item) bit is set.
func (b *SimpleBloom) Query(item []byte) bool {
	if len(item) == 0 {
		return false
	}

	for _, pos := range b.positions(item) {
		if !b.getBit(pos) {
			return false
		}
	}

	return true
}

// Size returns the bit array's footprint in bytes.
func (b *SimpleBloom) Size() uint64 {
	return uint64(len(b.bits)) * 8
}

// NumHashes returns k, the number of hash functions in use.
func (b *SimpleBloom) NumHashes() uint32 { return b.k }

// NumBits returns m, the size of the bit array.
func (b *SimpleBloom) NumBits() uint64 { return b.m }

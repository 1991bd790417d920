package filter

import (
	"math"

	"github.com/hypercache/kvcore/internal/xhash"
)

// CountingBloom is a Bloom filter backed by an array of saturating
// counters rather than bits, so it supports Remove (spec.md §4.3). Sizing
// follows the same m/k formulas as SimpleBloom. Counters are stored as
// uint16 and saturate at the uint8 maximum (255) by default
// (NewCountingBloom) or at the uint16 maximum when a higher expected
// per-slot load is anticipated (NewCountingBloomWide) — see DESIGN.md's
// Open Question decision.
type CountingBloom struct {
	counters []uint16
	wide     bool
	m        uint64
	k        uint32
}

const maxCounterNarrow = math.MaxUint8

func newCountingBloomSized(n uint64, p float64, wide bool) (*CountingBloom, error) {
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

	return &CountingBloom{
		counters: make([]uint16, m),
		wide:     wide,
		m:        m,
		k:        k,
	}, nil
}

// NewCountingBloom sizes a counting Bloom filter with uint8-range counters.
func NewCountingBloom(n uint64, p float64) (*CountingBloom, error) {
	return newCountingBloomSized(n, p, false)
}

// NewCountingBloomWide sizes a counting Bloom filter with uint16 counters,
// for workloads whose expected per-slot increment count exceeds 255.
func NewCountingBloomWide(n uint64, p float64) (*CountingBloom, error) {
	return newCountingBloomSized(n, p, true)
}

func (c *CountingBloom) positions(item []byte) []uint64 {
	pos := make([]uint64, c.k)
	for i := uint32(0); i < c.k; i++ {
		pos[i] = uint64(xhash.Seeded(i, item)) % c.m
	}

	return pos
}

func (c *CountingBloom) maxCounter() uint16 {
	if c.wide {
		return math.MaxUint16
	}

	return maxCounterNarrow
}

// Insert increments every h_i(item) counter. Counters saturate at their
// configured width rather than wrapping.
func (c *CountingBloom) Insert(item []byte) (bool, error) {
	if len(item) == 0 {
		return false, ErrEmptyItem
	}

	max := c.maxCounter()
	incremented := false

	for _, pos := range c.positions(item) {
		if c.counters[pos] < max {
			c.counters[pos]++
			incremented = true
		}
	}

	return incremented, nil
}

// Remove decrements every h_i(item) counter that is currently positive
// (spec.md §4.3): removing an item never seen is a no-op and never
// underflows. Returns true iff at least one counter was decremented.
func (c *CountingBloom) Remove(item []byte) bool {
	if len(item) == 0 {
		return false
	}

	decremented := false
	for _, pos := range c.positions(item) {
		if c.counters[pos] > 0 {
			c.counters[pos]--
			decremented = true
		}
	}

	return decremented
}

// Query returns true iff every h_i(item) counter is positive.
func (c *CountingBloom) Query(item []byte) bool {
	if len(item) == 0 {
		return false
	}

	for _, pos := range c.positions(item) {
		if c.counters[pos] == 0 {
			return false
		}
	}

	return true
}

// MinCount returns the minimum counter value across item's k hashed
// positions, used by tests to verify that each Remove decrements exactly
// one unit per slot (spec.md §4.3, §8 property 3).
func (c *CountingBloom) MinCount(item []byte) uint16 {
	min := c.maxCounter()
	for _, pos := range c.positions(item) {
		if c.counters[pos] < min {
			min = c.counters[pos]
		}
	}

	return min
}

// Size returns the counter array's footprint in bytes. The backing store
// is always a uint16 slice (2 bytes/counter); "narrow" mode only caps the
// saturation ceiling at 255, it does not shrink the slice element width.
func (c *CountingBloom) Size() uint64 {
	return uint64(len(c.counters)) * 2
}

// NumHashes returns k, the number of hash functions in use.
func (c *CountingBloom) NumHashes() uint32 { return c.k }

// NumCounters returns m, the size of the counter array.
func (c *CountingBloom) NumCounters() uint64 { return c.m }

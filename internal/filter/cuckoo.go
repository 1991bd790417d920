package filter

import (
	"math/rand"

	"github.com/hypercache/kvcore/internal/logging"
	"github.com/hypercache/kvcore/internal/obs"
	"github.com/hypercache/kvcore/internal/xhash"
)

// CuckooConfig holds the four sizing parameters named in spec.md §4.4.
type CuckooConfig struct {
	BucketSize       uint8  // B, fingerprints per bucket
	NumBuckets       uint64 // Nb, rounded up to a power of two at construction
	FingerprintBytes uint8  // F, 1..8
	MaxEvictions     uint32 // E, eviction-chain bound
}

// bucket holds up to B fingerprints. occupied is a bitmask distinguishing a
// genuinely-zero fingerprint from an empty slot (spec.md §4.4, §9 Open
// Questions) — an Option<fingerprint> per slot without the per-slot struct
// tag overhead, the same trick the teacher's cuckoo_filter.go used (there,
// to dodge fingerprint-0 collisions with "unused"; here, made exact).
type bucket struct {
	fingerprints []uint64
	occupied     uint64 // bit i set iff fingerprints[i] holds a real value
}

func newBucket(size uint8) bucket {
	return bucket{fingerprints: make([]uint64, size)}
}

func (b *bucket) insert(size uint8, fp uint64) bool {
	for i := uint8(0); i < size; i++ {
		if b.occupied&(1<<i) == 0 {
			b.fingerprints[i] = fp
			b.occupied |= 1 << i

			return true
		}
	}

	return false
}

func (b *bucket) contains(size uint8, fp uint64) bool {
	for i := uint8(0); i < size; i++ {
		if b.occupied&(1<<i) != 0 && b.fingerprints[i] == fp {
			return true
		}
	}

	return false
}

func (b *bucket) remove(size uint8, fp uint64) bool {
	for i := uint8(0); i < size; i++ {
		if b.occupied&(1<<i) != 0 && b.fingerprints[i] == fp {
			b.occupied &^= 1 << i
			return true
		}
	}

	return false
}

// evictRandom picks a uniformly random occupied slot, replaces its
// fingerprint with fp, and returns the evicted value. The bucket must not
// be empty.
func (b *bucket) evictRandom(size uint8, rng *rand.Rand, fp uint64) uint64 {
	occupiedSlots := make([]uint8, 0, size)
	for i := uint8(0); i < size; i++ {
		if b.occupied&(1<<i) != 0 {
			occupiedSlots = append(occupiedSlots, i)
		}
	}

	slot := occupiedSlots[rng.Intn(len(occupiedSlots))]
	evicted := b.fingerprints[slot]
	b.fingerprints[slot] = fp

	return evicted
}

// CuckooFilter is a bucketed cuckoo hash filter supporting insert, query
// and remove with bounded-eviction insertion (spec.md §4.4). Grounded on
// the teacher's internal/filter/cuckoo_filter.go bucket layout and xxhash
// hashing; eviction randomness is an explicit seeded *rand.Rand rather than
// crypto/rand (determinism is required for tests, spec.md §9).
type CuckooFilter struct {
	cfg     CuckooConfig
	buckets []bucket
	mask    uint64 // NumBuckets-1, NumBuckets is a power of two
	size    uint64
	rng     *rand.Rand

	evictionChains uint64
	maxEvictionLen uint32
}

// NewCuckooFilter creates a cuckoo filter per cfg, seeded with seed for
// deterministic eviction (spec.md §9: "tests must seed it").
func NewCuckooFilter(cfg CuckooConfig, seed int64) (*CuckooFilter, error) {
	if cfg.BucketSize == 0 {
		return nil, &FilterError{Op: "new", Message: "bucket_size must be > 0"}
	}
	if cfg.NumBuckets == 0 {
		return nil, &FilterError{Op: "new", Message: "num_buckets must be > 0"}
	}
	if cfg.FingerprintBytes == 0 || cfg.FingerprintBytes > 8 {
		return nil, &FilterError{Op: "new", Message: "fingerprint_bytes must be in [1,8]"}
	}
	if cfg.MaxEvictions == 0 {
		return nil, &FilterError{Op: "new", Message: "max_evictions must be > 0"}
	}

	nb := nextPowerOfTwo(cfg.NumBuckets)
	cfg.NumBuckets = nb

	buckets := make([]bucket, nb)
	for i := range buckets {
		buckets[i] = newBucket(cfg.BucketSize)
	}

	return &CuckooFilter{
		cfg:     cfg,
		buckets: buckets,
		mask:    nb - 1,
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

// Config returns the filter's resolved configuration (NumBuckets rounded
// up to the nearest power of two).
func (cf *CuckooFilter) Config() CuckooConfig { return cf.cfg }

func nextPowerOfTwo(n uint64) uint64 {
	if n == 0 {
		return 1
	}

	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32

	return n + 1
}

// fingerprint computes fp(x) = H(0,x) truncated to F bytes, little-endian
// low bits (spec.md §4.4). The result may legitimately be zero; presence
// is tracked separately by the bucket's occupied bitmask, not by the
// fingerprint's value.
func (cf *CuckooFilter) fingerprint(item []byte) uint64 {
	full := xhash.SeededU64(0, item)
	bits := uint(cf.cfg.FingerprintBytes) * 8
	if bits >= 64 {
		return full
	}

	return full & ((uint64(1) << bits) - 1)
}

func fingerprintBytes(fp uint64, f uint8) []byte {
	buf := make([]byte, f)
	for i := uint8(0); i < f; i++ {
		buf[i] = byte(fp >> (8 * i))
	}

	return buf
}

// primaryIndex and altOffset together realize spec.md §4.4's i1/i2 pair:
// i1 is derived from the item itself, i2 = i1 XOR H(0, fp) mod Nb. Because
// Nb is a power of two and alternate() is a pure XOR, alternate(alternate(i,
// fp), fp) == i always — the identity spec.md §4.4 requires to recover i1
// from (i2, fp).
func (cf *CuckooFilter) primaryIndex(item []byte) uint64 {
	return uint64(xhash.Seeded(1, item)) & cf.mask
}

func (cf *CuckooFilter) altOffset(fp uint64) uint64 {
	return uint64(xhash.Seeded(0, fingerprintBytes(fp, cf.cfg.FingerprintBytes))) & cf.mask
}

func (cf *CuckooFilter) alternate(idx uint64, fp uint64) uint64 {
	return (idx ^ cf.altOffset(fp)) & cf.mask
}

// Insert adds item to the filter (spec.md §4.4). Returns false, with no
// error, if the eviction bound E is exhausted — this is the documented
// data-loss-under-saturation mode, not an invariant violation.
func (cf *CuckooFilter) Insert(item []byte) (bool, error) {
	if len(item) == 0 {
		return false, ErrEmptyItem
	}

	fp := cf.fingerprint(item)
	i1 := cf.primaryIndex(item)
	i2 := cf.alternate(i1, fp)

	if cf.buckets[i1].insert(cf.cfg.BucketSize, fp) {
		cf.size++
		obs.FilterInsert("cuckoo", true)
		return true, nil
	}
	if cf.buckets[i2].insert(cf.cfg.BucketSize, fp) {
		cf.size++
		obs.FilterInsert("cuckoo", true)
		return true, nil
	}

	if cf.evict(i1, i2, fp) {
		cf.size++
		obs.FilterInsert("cuckoo", true)
		return true, nil
	}

	logging.Warn(nil, logging.ComponentFilter, logging.ActionInsert, "cuckoo insert rejected: eviction chain exhausted", map[string]interface{}{
		"max_evictions": cf.cfg.MaxEvictions,
		"count":         cf.size,
	})
	obs.FilterInsert("cuckoo", false)

	return false, nil
}

// evict runs the bounded random-walk eviction chain described in spec.md
// §4.4 step 3: pick one of the two full candidate buckets at random, then
// up to E times evict a random resident, try to re-home it at its
// alternate bucket, and continue the chain with whatever got displaced.
func (cf *CuckooFilter) evict(i1, i2, fp uint64) bool {
	cf.evictionChains++

	idx := i1
	if cf.rng.Intn(2) == 1 {
		idx = i2
	}

	for step := uint32(0); step < cf.cfg.MaxEvictions; step++ {
		evicted := cf.buckets[idx].evictRandom(cf.cfg.BucketSize, cf.rng, fp)
		altIdx := cf.alternate(idx, evicted)

		if cf.buckets[altIdx].insert(cf.cfg.BucketSize, evicted) {
			if step+1 > cf.maxEvictionLen {
				cf.maxEvictionLen = step + 1
			}
			obs.CuckooEvictionChain(int(step + 1))

			return true
		}

		idx = altIdx
		fp = evicted
	}

	return false
}

// Query returns true iff fp appears in either of item's candidate buckets.
func (cf *CuckooFilter) Query(item []byte) bool {
	if len(item) == 0 {
		return false
	}

	fp := cf.fingerprint(item)
	i1 := cf.primaryIndex(item)
	i2 := cf.alternate(i1, fp)

	hit := cf.buckets[i1].contains(cf.cfg.BucketSize, fp) || cf.buckets[i2].contains(cf.cfg.BucketSize, fp)
	obs.FilterQuery("cuckoo", hit)

	return hit
}

// Remove deletes one occurrence of item's fingerprint from whichever
// candidate bucket holds it first (spec.md §4.4). Callers must only call
// Remove on items they previously inserted: removing an item never
// inserted may remove a colliding fingerprint instead (documented cuckoo
// filter property, spec.md §4.4).
func (cf *CuckooFilter) Remove(item []byte) bool {
	if len(item) == 0 {
		return false
	}

	fp := cf.fingerprint(item)
	i1 := cf.primaryIndex(item)
	i2 := cf.alternate(i1, fp)

	if cf.buckets[i1].remove(cf.cfg.BucketSize, fp) {
		cf.size--
		obs.FilterRemove("cuckoo")
		return true
	}
	if cf.buckets[i2].remove(cf.cfg.BucketSize, fp) {
		cf.size--
		obs.FilterRemove("cuckoo")
		return true
	}

	return false
}

// Size returns the filter's storage footprint in bytes.
func (cf *CuckooFilter) Size() uint64 {
	return uint64(len(cf.buckets)) * uint64(cf.cfg.BucketSize) * 8
}

// Count returns the number of successfully inserted (and not removed)
// items, derived solely from Insert's own success return — never
// incremented a second time inside the eviction helper (spec.md §9's
// "double-counting" Open Question).
func (cf *CuckooFilter) Count() uint64 { return cf.size }

// EvictionStats reports the eviction-chain counters used by spec.md §8's
// saturation-related tests.
func (cf *CuckooFilter) EvictionStats() (chains uint64, maxLen uint32) {
	return cf.evictionChains, cf.maxEvictionLen
}

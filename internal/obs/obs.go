// Package obs wraps github.com/armon/go-metrics to expose the same kind
// of operational counters the teacher tracked by hand with sync/atomic in
// FilterStats and HashRingMetrics — add/query/remove counts, eviction
// chain lengths, cache hit rate — without reintroducing per-operation
// locking into the single-threaded core (spec.md §5). Counters only; no
// network export.
package obs

import (
	"sync"
	"time"

	metrics "github.com/armon/go-metrics"
)

// Recorder owns the process-local in-memory metrics sink. Callers outside
// internal/filter and internal/ring (internal/store, cmd/kvcore) hold one
// and call its FilterInsert/FilterQuery/FilterRemove/... methods after
// each operation.
type Recorder struct {
	sink *metrics.InmemSink
}

// NewRecorder builds a Recorder and installs it as the process's global
// go-metrics sink (metrics.NewGlobal), mirroring the teacher's
// HashRingMetrics being read off a single live ring instance.
func NewRecorder(serviceName string) (*Recorder, error) {
	sink := metrics.NewInmemSink(10*time.Second, 5*time.Minute)

	conf := metrics.DefaultConfig(serviceName)
	conf.EnableHostname = false
	conf.EnableRuntimeMetrics = false

	if _, err := metrics.NewGlobal(conf, sink); err != nil {
		return nil, err
	}

	return &Recorder{sink: sink}, nil
}

// FilterInsert records an insert attempt against a filter of the given
// kind ("bloom", "counting_bloom", "cuckoo"). accepted mirrors the
// operation's own success/hint return, not a derived judgement.
func (r *Recorder) FilterInsert(kind string, accepted bool) {
	metrics.IncrCounter([]string{"filter", kind, "insert"}, 1)
	if !accepted {
		metrics.IncrCounter([]string{"filter", kind, "insert_rejected"}, 1)
	}
}

// FilterQuery records a query, tagged by whether it reported membership.
func (r *Recorder) FilterQuery(kind string, hit bool) {
	metrics.IncrCounter([]string{"filter", kind, "query"}, 1)
	if hit {
		metrics.IncrCounter([]string{"filter", kind, "query_hit"}, 1)
	}
}

// FilterRemove records a successful removal.
func (r *Recorder) FilterRemove(kind string) {
	metrics.IncrCounter([]string{"filter", kind, "remove"}, 1)
}

// CuckooEvictionChain records the length of a cuckoo filter's bounded
// eviction walk, the counterpart of the teacher's FilterStats eviction
// counters.
func (r *Recorder) CuckooEvictionChain(length int) {
	metrics.AddSample([]string{"filter", "cuckoo", "eviction_chain_length"}, float32(length))
}

// RingLookup records a find_server call and whether it was served from
// the lookup cache, the counterpart of the teacher's
// HashRingMetrics.LookupCount/CacheHitCount.
func (r *Recorder) RingLookup(cacheHit bool) {
	metrics.IncrCounter([]string{"ring", "lookup"}, 1)
	if cacheHit {
		metrics.IncrCounter([]string{"ring", "lookup", "cache_hit"}, 1)
	}
}

// RingFailover records a simulate_offline call.
func (r *Recorder) RingFailover() {
	metrics.IncrCounter([]string{"ring", "failover"}, 1)
}

// RingReintegration records a simulate_online call.
func (r *Recorder) RingReintegration() {
	metrics.IncrCounter([]string{"ring", "reintegration"}, 1)
}

// Snapshot returns the most recent interval's counters (the current,
// still-accumulating one), for operators and tests — analogous to the
// teacher's GetMetrics().
func (r *Recorder) Snapshot() *metrics.IntervalMetrics {
	data := r.sink.Data()
	if len(data) == 0 {
		return nil
	}

	return data[len(data)-1]
}

var (
	globalRecorder *Recorder
	globalMu       sync.RWMutex
)

// SetGlobalRecorder installs r as the process-wide recorder, mirroring
// internal/logging's SetGlobalLogger: internal/filter and internal/ring
// hold no Recorder field of their own (the core stays single-threaded and
// dependency-free per spec.md §5) but call the package-level functions
// below, which become no-ops until a caller — typically cmd/kvcore's
// main — installs a recorder here.
func SetGlobalRecorder(r *Recorder) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalRecorder = r
}

// GetGlobalRecorder returns the installed recorder, or nil if none has
// been set.
func GetGlobalRecorder() *Recorder {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalRecorder
}

// Package-level convenience wrappers over the global recorder, nil-safe
// so internal/filter and internal/ring can call them unconditionally —
// the same pattern internal/logging uses for its Debug/Info/Warn/Error
// functions.

func FilterInsert(kind string, accepted bool) {
	if r := GetGlobalRecorder(); r != nil {
		r.FilterInsert(kind, accepted)
	}
}

func FilterQuery(kind string, hit bool) {
	if r := GetGlobalRecorder(); r != nil {
		r.FilterQuery(kind, hit)
	}
}

func FilterRemove(kind string) {
	if r := GetGlobalRecorder(); r != nil {
		r.FilterRemove(kind)
	}
}

func CuckooEvictionChain(length int) {
	if r := GetGlobalRecorder(); r != nil {
		r.CuckooEvictionChain(length)
	}
}

func RingLookup(cacheHit bool) {
	if r := GetGlobalRecorder(); r != nil {
		r.RingLookup(cacheHit)
	}
}

func RingFailover() {
	if r := GetGlobalRecorder(); r != nil {
		r.RingFailover()
	}
}

func RingReintegration() {
	if r := GetGlobalRecorder(); r != nil {
		r.RingReintegration()
	}
}

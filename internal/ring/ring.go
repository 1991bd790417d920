// Package ring implements the consistent-hash ring described in spec.md
// §4.5: a fixed-size circular address space holding servers and items in
// one flat slot array, with item ownership resolved by a successor lookup
// over server positions — either a linear scan or an ordered index
// (internal/ring/successor), and item sets migrated (never rehashed) on
// server online/offline transitions.
package ring

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/hypercache/kvcore/internal/logging"
	"github.com/hypercache/kvcore/internal/obs"
	"github.com/hypercache/kvcore/internal/ring/successor"
	"github.com/hypercache/kvcore/internal/xhash"
)

// IndexKind selects the successor-lookup strategy used by find_server
// (spec.md §4.5.1). It is fixed at construction; findServer checks it on
// each lookup to choose between the linear scan and the ordered index.
type IndexKind string

const (
	IndexNone IndexKind = "none"
	IndexBST  IndexKind = "bst"
	IndexRBT  IndexKind = "rbt"
)

type slotKind int

const (
	slotEmpty slotKind = iota
	slotItem
	slotServer
)

type slot struct {
	kind     slotKind
	item     []byte
	owner    int // server id; meaningful when kind == slotItem
	serverID int // meaningful when kind == slotServer
}

// Config holds the ring's construction-time parameters.
type Config struct {
	RingSize        int // R
	NumServers      int // N
	IndexKind       IndexKind
	LookupCacheSize int // entries in the position->server lookup cache; 0 disables caching
}

// Ring is the fixed-R-slot circular address space of spec.md §4.5.
type Ring struct {
	size       int
	numServers int
	indexKind  IndexKind

	slots        []slot
	servers      map[int]*Server
	positionByID map[int]int

	idx   successor.OrderedIndex[*Server]
	cache *lru.Cache
}

// New constructs a ring with servers 0..N-1 placed at their natural
// position floor(id*R/N), linear-probing to the next free slot on
// collision (spec.md §4.5).
func New(cfg Config) (*Ring, error) {
	if cfg.RingSize <= 0 {
		return nil, &InvariantError{Op: "new", Message: "ring_size must be > 0", Cause: ErrInvalidConfig}
	}
	if cfg.NumServers <= 0 {
		return nil, &InvariantError{Op: "new", Message: "num_servers must be > 0", Cause: ErrInvalidConfig}
	}
	switch cfg.IndexKind {
	case IndexNone, IndexBST, IndexRBT:
	default:
		return nil, &InvariantError{Op: "new", Message: "index_kind must be none, bst or rbt", Cause: ErrInvalidConfig}
	}

	r := &Ring{
		size:         cfg.RingSize,
		numServers:   cfg.NumServers,
		indexKind:    cfg.IndexKind,
		slots:        make([]slot, cfg.RingSize),
		servers:      make(map[int]*Server, cfg.NumServers),
		positionByID: make(map[int]int, cfg.NumServers),
	}

	switch cfg.IndexKind {
	case IndexBST:
		r.idx = successor.NewBST[*Server]()
	case IndexRBT:
		r.idx = successor.NewRBTree[*Server]()
	}

	if cfg.LookupCacheSize > 0 {
		cache, err := lru.New(cfg.LookupCacheSize)
		if err != nil {
			return nil, &InvariantError{Op: "new", Message: "failed to build lookup cache", Cause: err}
		}
		r.cache = cache
	}

	for id := 0; id < cfg.NumServers; id++ {
		natural := (id * cfg.RingSize) / cfg.NumServers
		placed := false

		for step := 0; step < cfg.RingSize; step++ {
			p := (natural + step) % cfg.RingSize
			if r.slots[p].kind == slotEmpty {
				r.slots[p] = slot{kind: slotServer, serverID: id}
				srv := newServer(id, p)
				r.servers[id] = srv
				r.positionByID[id] = p

				if r.idx != nil {
					r.idx.Insert(p, srv)
				}

				placed = true
				break
			}
		}

		if !placed {
			return nil, &InvariantError{Op: "new", Message: "could not place every server", Cause: ErrPlacementFull}
		}
	}

	return r, nil
}

func (r *Ring) hashPosition(item []byte) int {
	return int(xhash.Seeded(0, item) % uint32(r.size))
}

func (r *Ring) invalidateCache() {
	if r.cache != nil {
		r.cache.Purge()
	}
}

// findServer implements spec.md §4.5.1: the smallest online server whose
// position is strictly greater than p, wrapping to the minimum online
// server if none exists.
func (r *Ring) findServer(p int) (*Server, error) {
	if r.indexKind == IndexNone {
		for step := 1; step <= r.size; step++ {
			i := (p + step) % r.size
			s := r.slots[i]
			if s.kind != slotServer {
				continue
			}
			if srv := r.servers[s.serverID]; srv.Online {
				return srv, nil
			}
		}

		return nil, &InvariantError{Op: "find_server", Message: "linear scan exhausted R steps", Cause: ErrNoLiveServer}
	}

	if srv, ok := r.idx.Successor(p); ok {
		return srv, nil
	}
	if srv, ok := r.idx.Min(); ok {
		return srv, nil
	}

	return nil, &InvariantError{Op: "find_server", Message: "successor index is empty", Cause: ErrNoLiveServer}
}

// FindServer resolves the owning server for ring position p, consulting
// the lookup cache first and populating it on a miss.
func (r *Ring) FindServer(p int) (*Server, error) {
	if r.cache != nil {
		if cached, ok := r.cache.Get(p); ok {
			obs.RingLookup(true)
			return cached.(*Server), nil
		}
	}

	srv, err := r.findServer(p)
	if err != nil {
		return nil, err
	}

	obs.RingLookup(false)

	if r.cache != nil {
		r.cache.Add(p, srv)
	}

	return srv, nil
}

// Insert places item into the first empty slot found by linear-probing
// from its hash position, then routes it to its owning server (spec.md
// §4.5).
func (r *Ring) Insert(item []byte) (bool, error) {
	p0 := r.hashPosition(item)

	for step := 0; step < r.size; step++ {
		p := (p0 + step) % r.size
		if r.slots[p].kind == slotEmpty {
			owner, err := r.FindServer(p)
			if err != nil {
				return false, err
			}

			r.slots[p] = slot{kind: slotItem, item: item, owner: owner.ID}
			owner.addItem(p)

			return true, nil
		}
	}

	return false, nil
}

// Query reports whether item is present, stopping at the first empty
// slot encountered during the probe (spec.md §4.5).
func (r *Ring) Query(item []byte) bool {
	return r.Find(item) >= 0
}

// Find returns the ring position holding item, or -1 if absent.
func (r *Ring) Find(item []byte) int {
	p0 := r.hashPosition(item)

	for step := 0; step < r.size; step++ {
		p := (p0 + step) % r.size
		s := r.slots[p]

		switch s.kind {
		case slotEmpty:
			return -1
		case slotItem:
			if bytesEqual(s.item, item) {
				return p
			}
		}
	}

	return -1
}

// Remove deletes item from the ring and from its owning server's item
// set, returning the removed bytes.
func (r *Ring) Remove(item []byte) ([]byte, bool) {
	p0 := r.hashPosition(item)

	for step := 0; step < r.size; step++ {
		p := (p0 + step) % r.size
		s := r.slots[p]

		switch s.kind {
		case slotEmpty:
			return nil, false
		case slotItem:
			if bytesEqual(s.item, item) {
				removed := s.item
				if owner, ok := r.servers[s.owner]; ok {
					owner.removeItem(p)
				}
				r.slots[p] = slot{}

				return removed, true
			}
		}
	}

	return nil, false
}

// SimulateOffline implements spec.md §4.5.2: move every item owned by
// server id to the next live server, then mark id offline.
func (r *Ring) SimulateOffline(id int) error {
	srv, ok := r.servers[id]
	if !ok {
		return &InvariantError{Op: "simulate_offline", Message: "unknown server id", Cause: ErrUnknownServer}
	}

	if !srv.Online {
		logging.Warn(nil, logging.ComponentRing, logging.ActionFailover, "simulate_offline on already-offline server", map[string]interface{}{
			"server_id": id,
		})

		return nil
	}

	position := r.positionByID[id]

	next, err := r.findServer(position)
	if err != nil {
		return &InvariantError{Op: "simulate_offline", Message: "no other live server to absorb items", Cause: err}
	}
	if next == srv {
		return &InvariantError{Op: "simulate_offline", Message: "no other live server to absorb items", Cause: ErrNoLiveServer}
	}

	for idx := range srv.items {
		r.slots[idx].owner = next.ID
		next.addItem(idx)
	}
	srv.items = make(map[int]struct{})

	if r.idx != nil {
		r.idx.Remove(position)
	}

	srv.Online = false
	r.invalidateCache()
	obs.RingFailover()

	return nil
}

// SimulateOnline implements spec.md §4.5.3: reinsert server id's position,
// then reclaim from the server that was covering its arc exactly the
// items whose ring slot falls back into that arc.
func (r *Ring) SimulateOnline(id int) error {
	srv, ok := r.servers[id]
	if !ok {
		return &InvariantError{Op: "simulate_online", Message: "unknown server id", Cause: ErrUnknownServer}
	}

	if srv.Online {
		logging.Warn(nil, logging.ComponentRing, logging.ActionFailover, "simulate_online on already-online server", map[string]interface{}{
			"server_id": id,
		})

		return nil
	}

	position := r.positionByID[id]

	if r.idx != nil {
		r.idx.Insert(position, srv)
	}

	next, err := r.findServer(position)
	if err != nil {
		return &InvariantError{Op: "simulate_online", Message: "no server currently covers this arc", Cause: err}
	}

	reclaimed := make([]int, 0, len(next.items))
	for idx := range next.items {
		if arcReclaims(position, next.Position, idx, r.size) {
			reclaimed = append(reclaimed, idx)
		}
	}

	for _, idx := range reclaimed {
		next.removeItem(idx)
		r.slots[idx].owner = srv.ID
		srv.addItem(idx)
	}

	srv.Online = true
	r.invalidateCache()
	obs.RingReintegration()

	return nil
}

// arcReclaims implements spec.md §4.5.3's wraparound arc-membership
// predicate, derived directly from ring geometry rather than a residue
// comparison that breaks at the wrap point: ring slot idx, currently held
// by the server at next_pos, belongs back to the server reintegrating at
// position iff idx does not fall in the open arc (position, next_pos)
// that next_pos legitimately kept.
func arcReclaims(position, nextPos, idx, ringSize int) bool {
	if position < nextPos {
		return !(idx > position && idx < nextPos)
	}

	// position > nextPos: the reclaimed arc wraps through the end of the
	// ring back to its start.
	return !((idx > position && idx < ringSize) || (idx >= 0 && idx < nextPos))
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// GetRing returns a snapshot of every slot's kind, for introspection and
// tests.
func (r *Ring) GetRing() []string {
	out := make([]string, r.size)
	for i, s := range r.slots {
		switch s.kind {
		case slotEmpty:
			out[i] = "empty"
		case slotItem:
			out[i] = "item"
		case slotServer:
			out[i] = "server"
		}
	}

	return out
}

// GetServerSizes returns each server's current owned-item count, keyed by
// server id.
func (r *Ring) GetServerSizes() map[int]int {
	out := make(map[int]int, len(r.servers))
	for id, srv := range r.servers {
		out[id] = srv.ItemCount()
	}

	return out
}

// Server returns the server with the given id, if any.
func (r *Ring) Server(id int) (*Server, bool) {
	srv, ok := r.servers[id]
	return srv, ok
}

// Size reports the ring's fixed storage footprint in bytes: one slot
// record per address, regardless of occupancy, so this never grows as
// items are inserted — the counterpart of a filter's Size() for a
// facade field that must offer insert/query/remove/size uniformly
// (spec.md §9).
func (r *Ring) Size() uint64 {
	const slotFootprintBytes = 48 // kind + item slice header (24) + owner/serverID ints, 64-bit
	return uint64(r.size) * slotFootprintBytes
}

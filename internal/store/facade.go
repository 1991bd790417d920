package store

import (
	"github.com/hypercache/kvcore/internal/filter"
	"github.com/hypercache/kvcore/internal/logging"
	"github.com/hypercache/kvcore/internal/obs"
)

// Facade binds a username filter and an item store behind
// add_user/add_item/get_item/remove_item. The item store is typically
// an internal/ring.Ring but any ItemStore (including a bare filter)
// satisfies it — spec.md's "Data flow for an item insert" describes
// both routings explicitly.
type Facade struct {
	users filter.ProbabilisticFilter
	items ItemStore
	rec   *obs.Recorder
}

// New builds a Facade over the given username filter and item store.
// rec may be nil; when non-nil its counters are updated after every
// operation.
func New(users filter.ProbabilisticFilter, items ItemStore, rec *obs.Recorder) *Facade {
	return &Facade{users: users, items: items, rec: rec}
}

// AddUser inserts name into the username filter.
func (f *Facade) AddUser(name []byte) (bool, error) {
	ok, err := f.users.Insert(name)
	if err != nil {
		logging.Error(nil, logging.ComponentStore, logging.ActionInsert, "add_user failed", err)
		return false, err
	}

	if f.rec != nil {
		f.rec.FilterInsert("user", ok)
	}

	return ok, nil
}

// HasUser reports whether name might have been added.
func (f *Facade) HasUser(name []byte) bool {
	hit := f.users.Query(name)
	if f.rec != nil {
		f.rec.FilterQuery("user", hit)
	}

	return hit
}

// AddItem routes item to the item store: a ring hash-probe-and-place,
// or a filter bit/counter set, depending on what backs this façade.
func (f *Facade) AddItem(item []byte) (bool, error) {
	ok, err := f.items.Insert(item)
	if err != nil {
		logging.Error(nil, logging.ComponentStore, logging.ActionInsert, "add_item failed", err)
		return false, err
	}

	if f.rec != nil {
		f.rec.FilterInsert("item", ok)
	}

	return ok, nil
}

// GetItem reports whether item is present in the item store.
func (f *Facade) GetItem(item []byte) bool {
	hit := f.items.Query(item)
	if f.rec != nil {
		f.rec.FilterQuery("item", hit)
	}

	return hit
}

// RemoveItem removes item from the item store, reporting false if it
// was absent or if the backing store offers no removal capability at
// all (a simple Bloom filter item store, for instance).
func (f *Facade) RemoveItem(item []byte) bool {
	var removed bool

	switch s := f.items.(type) {
	case byteRemover:
		_, removed = s.Remove(item)
	case boolRemover:
		removed = s.Remove(item)
	default:
		logging.Warn(nil, logging.ComponentStore, logging.ActionRemove, "item store does not support removal")
		return false
	}

	if removed && f.rec != nil {
		f.rec.FilterRemove("item")
	}

	return removed
}

// Size reports the façade's combined storage footprint in bytes.
func (f *Facade) Size() uint64 {
	return f.users.Size() + f.items.Size()
}

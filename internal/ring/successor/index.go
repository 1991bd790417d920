// Package successor implements the ordered successor index described in
// spec.md §4.6: two interchangeable implementations — a classical
// unbalanced BST and a red-black tree — sharing one contract so the ring
// can be built against either without a runtime branch in its hot paths.
package successor

// OrderedIndex is the contract shared by BST and RBTree: insert, remove,
// exact-key lookup, minimum, and the tree-walk successor query the ring's
// find_server operation needs (spec.md §4.5.1). V is the value keyed by
// ring position — the ring always instantiates this with *ring.Server.
type OrderedIndex[V any] interface {
	// Insert adds or overwrites the value stored at key.
	Insert(key int, value V)

	// Remove deletes key if present; a remove of an absent key is a no-op.
	Remove(key int)

	// Get returns the value stored at the exact key, if present.
	Get(key int) (V, bool)

	// Min returns the value at the smallest key in the index.
	Min() (V, bool)

	// Successor returns the value at the smallest key strictly greater
	// than key, found by walking the tree as if inserting key (spec.md
	// §4.5.1): if the walk never turns right, key is less than every
	// stored key and the minimum is the answer; otherwise the answer is
	// the deepest ancestor the walk turned left away from. If the walk
	// never turns left, key is greater than or equal to every stored key
	// and there is no in-tree successor — ok is false, and callers that
	// want ring wraparound semantics fall back to Min themselves.
	Successor(key int) (value V, ok bool)

	// InOrderKeys returns every stored key in ascending order, used to
	// verify structural invariants in tests (spec.md §8 scenario B).
	InOrderKeys() []int

	// Len reports the number of stored keys.
	Len() int
}

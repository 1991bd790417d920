package successor

import (
	"reflect"
	"testing"
)

// TestBSTScenarioBBalancedRemovals is spec.md §8 scenario B: insert
// [5,3,1,2,4,7,6,8,9], confirm the in-order keys are 1..9, then remove in
// order [2,5,1,8,3,4,9], checking after each removal that the remaining
// in-order keys equal [1..9] minus whatever has been removed so far.
func TestBSTScenarioBBalancedRemovals(t *testing.T) {
	tree := NewBST[string]()

	insertOrder := []int{5, 3, 1, 2, 4, 7, 6, 8, 9}
	for _, k := range insertOrder {
		tree.Insert(k, "")
	}

	if got := tree.InOrderKeys(); !reflect.DeepEqual(got, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}) {
		t.Fatalf("expected in-order keys 1..9 after insert, got %v", got)
	}

	removeOrder := []int{2, 5, 1, 8, 3, 4, 9}
	removed := make(map[int]bool)

	for _, k := range removeOrder {
		tree.Remove(k)
		removed[k] = true

		var want []int
		for _, full := range insertOrder {
			if !removed[full] {
				want = append(want, full)
			}
		}
		sortInts(want)

		if got := tree.InOrderKeys(); !reflect.DeepEqual(got, want) {
			t.Fatalf("after removing %d: expected in-order keys %v, got %v", k, want, got)
		}
	}

	if tree.Len() != 2 {
		t.Fatalf("expected 2 keys left, got %d", tree.Len())
	}
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

func TestBSTGetAndMin(t *testing.T) {
	tree := NewBST[int]()
	for _, k := range []int{5, 3, 8, 1, 4} {
		tree.Insert(k, k*10)
	}

	if v, ok := tree.Get(3); !ok || v != 30 {
		t.Fatalf("Get(3) = %d, %v, want 30, true", v, ok)
	}
	if _, ok := tree.Get(100); ok {
		t.Fatal("Get(100) should report absent")
	}

	if v, ok := tree.Min(); !ok || v != 10 {
		t.Fatalf("Min() = %d, %v, want 10, true", v, ok)
	}
}

func TestBSTRemoveAbsentKeyIsNoop(t *testing.T) {
	tree := NewBST[int]()
	tree.Insert(1, 1)
	tree.Insert(2, 2)

	tree.Remove(99)

	if tree.Len() != 2 {
		t.Fatalf("expected removing an absent key to be a no-op, got len %d", tree.Len())
	}
}

// TestBSTSuccessorWalkAsIfInserting exercises spec.md §4.5.1's rule
// directly: successor(key) is the deepest ancestor from which the
// as-if-insert walk turns left, or Min if the walk never turns right.
func TestBSTSuccessorWalkAsIfInserting(t *testing.T) {
	tree := NewBST[int]()
	for _, k := range []int{5, 3, 1, 2, 4, 7, 6, 8, 9} {
		tree.Insert(k, k)
	}

	cases := []struct {
		key  int
		want int
		ok   bool
	}{
		{key: 0, want: 1, ok: true},
		{key: 4, want: 5, ok: true},
		{key: 6, want: 7, ok: true},
		{key: 8, want: 9, ok: true},
		{key: 9, want: 0, ok: false},
		{key: 100, want: 0, ok: false},
	}

	for _, c := range cases {
		got, ok := tree.Successor(c.key)
		if ok != c.ok {
			t.Fatalf("Successor(%d) ok = %v, want %v", c.key, ok, c.ok)
		}
		if ok && got != c.want {
			t.Fatalf("Successor(%d) = %d, want %d", c.key, got, c.want)
		}
	}
}

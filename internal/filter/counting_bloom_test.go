package filter_test

import (
	"fmt"
	"testing"

	"github.com/hypercache/kvcore/internal/filter"
)

// TestCountingBloomRemoveDecrementsExactlyOnce is spec.md §8 scenario F /
// property 3: inserting an item once, then removing it once, must bring
// every one of its k counters back down by exactly one unit.
func TestCountingBloomRemoveDecrementsExactlyOnce(t *testing.T) {
	c, err := filter.NewCountingBloom(1000, 0.01)
	if err != nil {
		t.Fatalf("NewCountingBloom: %v", err)
	}

	item := []byte("apple")

	before := c.MinCount(item)
	if before != 0 {
		t.Fatalf("expected MinCount 0 before insert, got %d", before)
	}

	if _, err := c.Insert(item); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if min := c.MinCount(item); min != 1 {
		t.Fatalf("expected MinCount 1 after a single insert, got %d", min)
	}

	if !c.Remove(item) {
		t.Fatal("expected Remove to report success")
	}
	if min := c.MinCount(item); min != 0 {
		t.Fatalf("expected MinCount 0 after matching remove, got %d", min)
	}
	if c.Query(item) {
		t.Error("expected item absent after its only insert was removed")
	}
}

func TestCountingBloomNoFalseNegativesAcrossLargeSample(t *testing.T) {
	const n = 100000

	c, err := filter.NewCountingBloom(n, 0.01)
	if err != nil {
		t.Fatalf("NewCountingBloom: %v", err)
	}

	for i := 0; i < n; i++ {
		if _, err := c.Insert([]byte(fmt.Sprintf("item-%d", i))); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	for i := 0; i < n; i++ {
		item := []byte(fmt.Sprintf("item-%d", i))
		if !c.Query(item) {
			t.Fatalf("Query(%d): expected present, no false negatives allowed", i)
		}
	}
}

func TestCountingBloomRemoveOfUnseenItemIsNoopAndNeverUnderflows(t *testing.T) {
	c, err := filter.NewCountingBloom(1000, 0.01)
	if err != nil {
		t.Fatalf("NewCountingBloom: %v", err)
	}

	if c.Remove([]byte("never-inserted")) {
		t.Error("Remove of an unseen item should not report success")
	}
	if min := c.MinCount([]byte("never-inserted")); min != 0 {
		t.Errorf("expected counters to stay at 0, got min %d", min)
	}
}

func TestCountingBloomDoubleInsertRequiresDoubleRemove(t *testing.T) {
	c, err := filter.NewCountingBloom(1000, 0.01)
	if err != nil {
		t.Fatalf("NewCountingBloom: %v", err)
	}

	item := []byte("shared-slot-item")

	if _, err := c.Insert(item); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := c.Insert(item); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if !c.Remove(item) {
		t.Fatal("expected first Remove to succeed")
	}
	if !c.Query(item) {
		t.Error("item inserted twice must still query present after only one removal")
	}

	if !c.Remove(item) {
		t.Fatal("expected second Remove to succeed")
	}
	if c.Query(item) {
		t.Error("item must be absent after removing both insertions")
	}
}

func TestCountingBloomNarrowSaturatesAtUint8Max(t *testing.T) {
	c, err := filter.NewCountingBloom(2, 0.5)
	if err != nil {
		t.Fatalf("NewCountingBloom: %v", err)
	}

	item := []byte("hot-item")
	for i := 0; i < 300; i++ {
		if _, err := c.Insert(item); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	if min := c.MinCount(item); min != 255 {
		t.Errorf("expected narrow counters to saturate at 255, got %d", min)
	}
}

func TestCountingBloomRejectsEmptyItem(t *testing.T) {
	c, err := filter.NewCountingBloom(10, 0.01)
	if err != nil {
		t.Fatalf("NewCountingBloom: %v", err)
	}

	if _, err := c.Insert(nil); err == nil {
		t.Error("expected an error inserting an empty item")
	}
	if c.Query(nil) {
		t.Error("query of an empty item must report absence")
	}
	if c.Remove(nil) {
		t.Error("remove of an empty item must report failure")
	}
}

func TestCountingBloomImplementsRemover(t *testing.T) {
	c, err := filter.NewCountingBloom(10, 0.01)
	if err != nil {
		t.Fatalf("NewCountingBloom: %v", err)
	}

	if _, ok := interface{}(c).(filter.Remover); !ok {
		t.Error("CountingBloom must implement Remover")
	}
}

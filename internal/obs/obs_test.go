package obs_test

import (
	"testing"

	"github.com/hypercache/kvcore/internal/obs"
)

func TestRecorderTracksCounters(t *testing.T) {
	rec, err := obs.NewRecorder("kvcore-test")
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	rec.FilterInsert("cuckoo", true)
	rec.FilterQuery("cuckoo", true)
	rec.FilterRemove("cuckoo")
	rec.RingLookup(true)
	rec.RingFailover()
	rec.RingReintegration()
	rec.CuckooEvictionChain(3)

	if snap := rec.Snapshot(); snap == nil {
		t.Fatal("expected a non-nil snapshot after recording at least one metric")
	}
}

// TestGlobalWrappersAreNilSafeBeforeInstall mirrors internal/logging's
// nil-safety guarantee: internal/filter and internal/ring call these
// package-level functions unconditionally, so they must never panic when
// no recorder has been installed.
func TestGlobalWrappersAreNilSafeBeforeInstall(t *testing.T) {
	obs.SetGlobalRecorder(nil)

	obs.FilterInsert("cuckoo", true)
	obs.FilterQuery("cuckoo", false)
	obs.FilterRemove("cuckoo")
	obs.CuckooEvictionChain(1)
	obs.RingLookup(false)
	obs.RingFailover()
	obs.RingReintegration()
}

func TestGlobalWrappersRouteToInstalledRecorder(t *testing.T) {
	rec, err := obs.NewRecorder("kvcore-global-test")
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	obs.SetGlobalRecorder(rec)
	t.Cleanup(func() { obs.SetGlobalRecorder(nil) })

	obs.FilterInsert("cuckoo", true)
	obs.RingFailover()

	if got := obs.GetGlobalRecorder(); got != rec {
		t.Fatal("expected GetGlobalRecorder to return the installed recorder")
	}
}

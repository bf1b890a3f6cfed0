package ring

import (
	"testing"

	"github.com/pingmesh/gridping/internal/outcome"
)

func countWritten(r *Ring) int {
	n := 0
	for i := 0; i < NSEC; i++ {
		if r.Get(i, 0) != outcome.NoPing {
			n++
		}
	}
	return n
}

func TestShiftWrittenCountMatchesTicks(t *testing.T) {
	r := New()
	for ticks := 0; ticks <= NSEC+10; ticks++ {
		want := ticks
		if want > NSEC {
			want = NSEC
		}
		if got := countWritten(r); got != want {
			t.Fatalf("after %d ticks, written = %d, want %d", ticks, got, want)
		}
		r.Shift()
	}
}

func TestShiftThenSetLostIsNoopOnContents(t *testing.T) {
	r := New()
	r.Shift()
	before := r.Get(0, 0)
	r.Set(0, outcome.Lost)
	after := r.Get(0, 0)
	if before != after {
		t.Fatalf("set(0,Lost) changed contents: %#x -> %#x", before, after)
	}
}

func TestCASLateUpgradeOnlyFromLost(t *testing.T) {
	r := New()
	r.Shift()
	r.Set(0, outcome.Encode(20)) // not Lost
	if r.CASLateUpgrade(0) {
		t.Fatal("upgraded a non-Lost slot")
	}
	if got := r.Get(0, 0); got != outcome.Encode(20) {
		t.Fatalf("non-Lost slot mutated: %#x", got)
	}

	r.Shift()
	r.Shift() // offset 1 is now Lost (never written)
	if !r.CASLateUpgrade(1) {
		t.Fatal("failed to upgrade a Lost slot")
	}
	if got := r.Get(1, 0); got != outcome.Late {
		t.Fatalf("upgraded slot = %#x, want Late", got)
	}
	if r.CASLateUpgrade(1) {
		t.Fatal("double upgrade succeeded")
	}
}

func TestGetHonorsDelt(t *testing.T) {
	r := New()
	r.Shift()
	r.Set(0, outcome.Encode(5))
	r.Shift()
	r.Set(0, outcome.Encode(50))
	// Offset 0 with delt=1 should read what offset 1 (without delt) reads.
	if r.Get(0, 1) != r.Get(1, 0) {
		t.Fatalf("Get(0,1)=%#x != Get(1,0)=%#x", r.Get(0, 1), r.Get(1, 0))
	}
}

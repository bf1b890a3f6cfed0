package trace

import (
	"net"
	"testing"
)

func TestNewTableInitialState(t *testing.T) {
	tb := NewTable()
	if tb.NHop() != MaxTTL {
		t.Fatalf("NHop() = %d, want %d", tb.NHop(), MaxTTL)
	}
}

func TestShrinkToOnlyShrinks(t *testing.T) {
	tb := NewTable()
	tb.ShrinkTo(5)
	if tb.NHop() != 5 {
		t.Fatalf("NHop() = %d, want 5", tb.NHop())
	}
	tb.ShrinkTo(10) // larger than current; must not grow
	if tb.NHop() != 5 {
		t.Fatalf("NHop() grew to %d, want still 5", tb.NHop())
	}
	tb.ShrinkTo(2)
	if tb.NHop() != 2 {
		t.Fatalf("NHop() = %d, want 2", tb.NHop())
	}
}

func TestBeginTickResetsScratchState(t *testing.T) {
	tb := NewTable()
	tb.ShrinkTo(3)
	tb.Hop(2).SetResponse(42, net.IPv4(8, 8, 8, 8))

	tb.BeginTick()
	if tb.NHop() != MaxTTL {
		t.Fatalf("NHop() after BeginTick = %d, want %d", tb.NHop(), MaxTTL)
	}
	if got := tb.Hop(2).DT(); got != 0 {
		t.Fatalf("hop 2 dt after BeginTick = %d, want 0", got)
	}
	if tb.Hop(2).IP() != nil {
		t.Fatalf("hop 2 ip after BeginTick = %v, want nil", tb.Hop(2).IP())
	}
}

func TestUnreachableMarker(t *testing.T) {
	tb := NewTable()
	tb.Hop(2).SetUnreachable(net.IPv4(1, 2, 3, 4))
	if got := tb.Hop(2).DT(); got != Unreachable {
		t.Fatalf("dt = %d, want %d", got, Unreachable)
	}
}

func TestResetForNewSelectionClearsStats(t *testing.T) {
	tb := NewTable()
	tb.Hop(1).Stats.Update(10)
	tb.ShrinkTo(4)
	tb.ResetForNewSelection()
	if tb.NHop() != MaxTTL {
		t.Fatalf("NHop() after reset = %d, want %d", tb.NHop(), MaxTTL)
	}
	if snap := tb.Hop(1).Stats.Snapshot(); snap.N != 0 {
		t.Fatalf("hop 1 stats after reset: %+v", snap)
	}
}

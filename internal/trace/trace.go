// Package trace holds the fixed-capacity hop table used by the parallel
// TTL-sweep traceroute against the currently-selected target.
package trace

import (
	"net"
	"sync/atomic"

	"github.com/pingmesh/gridping/internal/ring"
	"github.com/pingmesh/gridping/internal/stats"
)

// MaxTTL (tTTL) is the traceroute's fixed hop-table capacity.
const MaxTTL = 24

// Unreachable is the Hop.DT marker meaning "Destination Unreachable was
// received for this hop" as opposed to "no response yet" (DT == 0).
const Unreachable = -1

// Hop is one row of the trace table: the TTL-1 index into Table.hops.
type Hop struct {
	Ring  *ring.Ring
	Stats *stats.Stats

	dt atomic.Int64 // milliseconds; 0 = no response yet this tick, Unreachable = dest unreachable
	ip atomic.Uint32
}

func newHop() *Hop {
	h := &Hop{Ring: ring.New(), Stats: stats.New()}
	return h
}

// SetResponse records the dt (ms) and responding IPv4 address for this tick.
func (h *Hop) SetResponse(dtMs float64, ip net.IP) {
	h.dt.Store(int64(dtMs))
	h.ip.Store(ipToUint32(ip))
}

// SetUnreachable marks this hop as having returned Destination Unreachable.
func (h *Hop) SetUnreachable(ip net.IP) {
	h.dt.Store(Unreachable)
	h.ip.Store(ipToUint32(ip))
}

// Reset clears this tick's scratch dt/ip back to "no response yet".
func (h *Hop) Reset() {
	h.dt.Store(0)
	h.ip.Store(0)
}

// DT returns the last recorded round-trip time in milliseconds, 0 if no
// response yet this tick, or Unreachable.
func (h *Hop) DT() int64 { return h.dt.Load() }

// IP returns the last responding address for this hop, or nil if none.
func (h *Hop) IP() net.IP {
	v := h.ip.Load()
	if v == 0 {
		return nil
	}
	return uint32ToIP(v)
}

func ipToUint32(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3])
}

func uint32ToIP(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// Table is the fixed-capacity (MaxTTL) array of hops, plus the dynamic
// nhop high-water mark: the current estimate of path length, which shrinks
// monotonically within a tick; BeginTick (every tick) and
// ResetForNewSelection put it back to MaxTTL.
type Table struct {
	hops [MaxTTL]*Hop
	nhop atomic.Int32
}

// NewTable returns a trace table with nhop initialized to MaxTTL and every
// hop row freshly allocated.
func NewTable() *Table {
	tb := &Table{}
	for i := range tb.hops {
		tb.hops[i] = newHop()
	}
	tb.nhop.Store(MaxTTL)
	return tb
}

// Hop returns the hop row for the given 1-based TTL.
func (tb *Table) Hop(ttl int) *Hop { return tb.hops[ttl-1] }

// NHop returns the current path-length estimate in hops.
func (tb *Table) NHop() int { return int(tb.nhop.Load()) }

// ShrinkTo lowers nhop to ttl if ttl is smaller than the current value.
// nhop only ever shrinks within a tick.
func (tb *Table) ShrinkTo(ttl int) {
	for {
		cur := tb.nhop.Load()
		if int32(ttl) >= cur {
			return
		}
		if tb.nhop.CompareAndSwap(cur, int32(ttl)) {
			return
		}
	}
}

// ResetForNewSelection reinitializes every hop's stats and nhop back to
// MaxTTL, called by the UI when the selected target changes, before the
// next tick observes the new selection. Ring contents are cleared by
// allocating fresh rings, since the old history refers to a different
// destination.
func (tb *Table) ResetForNewSelection() {
	for _, h := range tb.hops {
		h.Ring = ring.New()
		h.Stats.Reset()
		h.Reset()
	}
	tb.nhop.Store(MaxTTL)
}

// BeginTick unconditionally resets nhop to MaxTTL and clears every hop's
// scratch dt/ip, called by the sender once per tick before emitting the
// TTL-swept burst. Trailing rows stay "no response" until the receiver
// shortens nhop.
func (tb *Table) BeginTick() {
	tb.nhop.Store(MaxTTL)
	for _, h := range tb.hops {
		h.Reset()
	}
}

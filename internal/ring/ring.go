// Package ring implements the fixed-length circular outcome buffer shared by
// every ping target and trace hop.
package ring

import (
	"sync/atomic"

	"github.com/pingmesh/gridping/internal/outcome"
)

// NSEC is the ring capacity: one hour of one-second samples.
const NSEC = 3600

// Ring is a fixed-capacity circular buffer of outcome bytes with a logical
// head cursor. The zero value is not usable; use New.
//
// cur is written only by the sender (via Shift). Slot contents are written
// by the sender (the Lost pre-commit Shift stores in the new head) and by the receiver
// (Set at offset 0 for the current reply, or the Lost->Late upgrade at a
// historical offset). Every slot is an independent atomic word so torn
// reads never occur and the Lost->Late CAS never races a concurrent
// content write to a different slot.
type Ring struct {
	buf [NSEC]atomic.Uint32
	cur atomic.Int64
}

// New returns a ring with every slot initialized to NoPing.
func New() *Ring {
	r := &Ring{}
	for i := range r.buf {
		r.buf[i].Store(uint32(outcome.NoPing))
	}
	return r
}

func mod(n int64) int64 {
	n %= NSEC
	if n < 0 {
		n += NSEC
	}
	return n
}

// Get returns the outcome at the given non-negative offset from the head,
// shifted further by delt (the UI's scrollback offset). delt is never
// consulted on a write path.
func (r *Ring) Get(off, delt int) outcome.Outcome {
	cur := r.cur.Load()
	idx := mod(cur + int64(off) + int64(delt))
	return outcome.Outcome(r.buf[idx].Load())
}

// Set writes v at the given offset from the head, ignoring delt. It writes
// unconditionally; upgrading a finalized slot (offset > 0) from Lost to
// Late goes through CASLateUpgrade instead.
func (r *Ring) Set(off int, v outcome.Outcome) {
	cur := r.cur.Load()
	idx := mod(cur + int64(off))
	r.buf[idx].Store(uint32(v))
}

// CASLateUpgrade attempts to upgrade the slot at offset off from Lost to
// Late. It returns true if the upgrade happened. Any value other than Lost
// observed at the slot leaves it unchanged, per spec: Lost->Late is the
// only legal transition.
func (r *Ring) CASLateUpgrade(off int) bool {
	cur := r.cur.Load()
	idx := mod(cur + int64(off))
	return r.buf[idx].CompareAndSwap(uint32(outcome.Lost), uint32(outcome.Late))
}

// Shift decrements cur modulo NSEC and pre-commits Lost into the new head
// slot (representing the tick that is now outstanding). It returns true if
// the slot it just rotated out of the head (the tick that just finalized)
// was still Lost, which callers use to drive the stats "lost" counter.
func (r *Ring) Shift() (finalizedLost bool) {
	oldHead := mod(r.cur.Load())
	finalizedLost = outcome.Outcome(r.buf[oldHead].Load()) == outcome.Lost

	newCur := mod(r.cur.Load() - 1)
	r.cur.Store(newCur)
	r.buf[newCur].Store(uint32(outcome.Lost))
	return finalizedLost
}

// Cur returns the current head cursor position, mostly useful for tests.
func (r *Ring) Cur() int64 {
	return r.cur.Load()
}

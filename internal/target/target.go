// Package target holds the ordered table of ping targets: their immutable
// identity (name, hostname, address) and the mutable per-target state the
// sender and receiver share (ring, stats, last RTT, observed TTL).
package target

import (
	"fmt"
	"math"
	"net"
	"sync/atomic"

	"github.com/pingmesh/gridping/internal/ring"
	"github.com/pingmesh/gridping/internal/stats"
)

// NoRTT is the sentinel LastRTT value meaning "no reply this tick".
const NoRTT = -1

// initialTTLGuesses are the common initial TTLs operating systems send
// with; HopEstimate finds the smallest one that is >= the observed TTL and
// subtracts the remaining hop count from it.
var initialTTLGuesses = [...]int{64, 128, 256}

// Target is one host in the target table. Name, Host and Addr are set once
// at load time and never change; the rest is mutated by the sender and
// receiver under the single-writer-per-field discipline described in the
// design notes.
type Target struct {
	// Name is the display name (defaults to Host if none given).
	Name string
	// Host is the hostname or address string as written in the config.
	Host string
	// Addr is the resolved IPv4 address.
	Addr net.IP
	// SockAddr is the address used for sends.
	SockAddr net.Addr

	Ring  *ring.Ring
	Stats *stats.Stats

	lastRTT  atomic.Uint64 // math.Float64bits of milliseconds, NoRTT sentinel
	replyTTL atomic.Int32
	silent   atomic.Bool
}

// New creates a target with fresh ring/stats.
func New(name, host string, addr net.IP, sockAddr net.Addr) *Target {
	t := &Target{
		Name:     name,
		Host:     host,
		Addr:     addr,
		SockAddr: sockAddr,
		Ring:     ring.New(),
		Stats:    stats.New(),
	}
	t.lastRTT.Store(math.Float64bits(NoRTT))
	return t
}

// SetLastRTT records the most recent round-trip time in milliseconds, kept
// at full precision for the log's "%5.1f" RTT column.
func (t *Target) SetLastRTT(ms float64) { t.lastRTT.Store(math.Float64bits(ms)) }

// ClearLastRTT resets LastRTT to the "no reply this tick" sentinel.
func (t *Target) ClearLastRTT() { t.lastRTT.Store(math.Float64bits(NoRTT)) }

// LastRTT returns the most recent round-trip time in milliseconds, or
// NoRTT if there was none this tick.
func (t *Target) LastRTT() float64 { return math.Float64frombits(t.lastRTT.Load()) }

// SetReplyTTL records the TTL observed on the most recent reply.
func (t *Target) SetReplyTTL(ttl int) { t.replyTTL.Store(int32(ttl)) }

// ReplyTTL returns the most recently observed reply TTL, or 0 if none yet.
func (t *Target) ReplyTTL() int { return int(t.replyTTL.Load()) }

// HopEstimate estimates the path length in hops from the most recent reply
// TTL, assuming the remote's initial TTL was one of 64/128/256.
func (t *Target) HopEstimate() int {
	observed := int(t.replyTTL.Load())
	if observed <= 0 {
		return 0
	}
	for _, initial := range initialTTLGuesses {
		if observed <= initial {
			return initial - observed + 1
		}
	}
	return 0
}

// SetSilent sets the UI-controlled silent flag.
func (t *Target) SetSilent(v bool) { t.silent.Store(v) }

// Silent reports the UI-controlled silent flag.
func (t *Target) Silent() bool { return t.silent.Load() }

// Table is the ordered set of configured targets. Indices are stable for
// the table's lifetime; the UI's "selected target" index refers here.
type Table struct {
	targets []*Target
	byIP    map[string]int
}

// NewTable returns an empty target table.
func NewTable() *Table {
	return &Table{byIP: make(map[string]int)}
}

// Add appends a target, rejecting duplicate resolved IPs.
func (tb *Table) Add(name, host string, addr net.IP, sockAddr net.Addr) (*Target, error) {
	key := addr.String()
	if i, dup := tb.byIP[key]; dup {
		return nil, fmt.Errorf("duplicate resolved address %s (already target %d: %s)", key, i, tb.targets[i].Host)
	}
	t := New(name, host, addr, sockAddr)
	tb.byIP[key] = len(tb.targets)
	tb.targets = append(tb.targets, t)
	return t, nil
}

// Len returns the number of targets.
func (tb *Table) Len() int { return len(tb.targets) }

// At returns the target at index i.
func (tb *Table) At(i int) *Target { return tb.targets[i] }

// All returns every target in table order.
func (tb *Table) All() []*Target { return tb.targets }

// IndexOf returns the table index of the target with the given resolved
// address, or -1 if not found.
func (tb *Table) IndexOf(addr net.IP) int {
	i, ok := tb.byIP[addr.String()]
	if !ok {
		return -1
	}
	return i
}

// Package engine ties the packet codec, ring buffers, statistics,
// target/trace tables and raw socket together into the two concurrent
// workers described by the design: a periodic sender and a blocking-read
// receiver. It replaces the original program's global mutable state with
// explicit fields on one Engine value, owned per the single-writer
// discipline documented on each field below.
package engine

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/pingmesh/gridping/internal/logger"
	"github.com/pingmesh/gridping/internal/ring"
	"github.com/pingmesh/gridping/internal/socket"
	"github.com/pingmesh/gridping/internal/target"
	"github.com/pingmesh/gridping/internal/trace"
)

// Default tuning constants, matching the original program's defaults.
const (
	DefaultCadence   = time.Second
	DefaultPacketUs  = 1000 // microseconds between consecutive sends in a burst
	PingTTL          = 64   // IP TTL used for ordinary pings
	tickBudgetMicros = 950_000
)

// Options configures a new Engine.
type Options struct {
	// Cadence is the tick period (sbp seconds in the spec). Must be between
	// 1s and 5s.
	Cadence time.Duration

	// PacketMicros is the inter-packet spacing within a tick's bursts (pus).
	PacketMicros int

	// Count, if nonzero, requests shutdown once this many ticks worth of
	// pings have been sent (finite-count mode).
	Count int

	// Logger, if non-nil, receives a per-tick RTT row from the sender. The
	// engine does not write the shutdown summary; cmd/gridping writes it to
	// the same logger after the run ends.
	Logger *logger.Logger
}

func (o *Options) cadence() time.Duration {
	if o == nil || o.Cadence == 0 {
		return DefaultCadence
	}
	return o.Cadence
}

func (o *Options) packetMicros() int {
	if o == nil || o.PacketMicros == 0 {
		return DefaultPacketUs
	}
	return o.PacketMicros
}

// Engine owns the shared mutable state described in the design notes: the
// atomics backing seq/tseq/sel/delt/run, plus handles to the target table,
// trace table and socket manager.
type Engine struct {
	Targets *target.Table
	Trace   *trace.Table
	Sock    *socket.Manager
	Logger  *logger.Logger

	cadence      time.Duration
	packetMicros int
	count        int

	// seq and tseq are written only by the sender; the receiver only reads
	// them, via Seq()/TSeq(), to classify replies as current or late.
	seq  atomic.Int32
	tseq atomic.Int32

	// sel is written only by the UI; the sender reads it once per tick to
	// aim the traceroute burst.
	sel atomic.Int32

	// delt is written only by the UI and read only on the ring Get path
	// (never on a write path).
	delt atomic.Int32

	run atomic.Bool

	// Repaint is sent to (non-blocking) once per tick after the sender
	// finishes a burst, for a UI collaborator to pick up.
	Repaint chan struct{}
}

// New creates an Engine over an already-loaded target table and opened
// socket.
func New(targets *target.Table, sock *socket.Manager, opts *Options) *Engine {
	e := &Engine{
		Targets:      targets,
		Trace:        trace.NewTable(),
		Sock:         sock,
		Logger:       opts.loggerOrNil(),
		cadence:      opts.cadence(),
		packetMicros: opts.packetMicros(),
		count:        optsCount(opts),
		Repaint:      make(chan struct{}, 1),
	}
	e.run.Store(true)
	return e
}

func optsCount(o *Options) int {
	if o == nil {
		return 0
	}
	return o.Count
}

func (o *Options) loggerOrNil() *logger.Logger {
	if o == nil {
		return nil
	}
	return o.Logger
}

// ValidateAirTime checks the per-tick air-time budget invariant from
// spec.md §4.7: (ntar + tTTL) * pus must stay under 950ms, or the
// configuration is rejected at load time.
func ValidateAirTime(numTargets int, packetMicros int) error {
	budget := int64(numTargets+trace.MaxTTL) * int64(packetMicros)
	if budget >= tickBudgetMicros {
		return fmt.Errorf("engine: per-tick air time %dus exceeds %dus budget with %d targets at %dus spacing",
			budget, tickBudgetMicros, numTargets, packetMicros)
	}
	return nil
}

// Seq returns the current ping sequence number.
func (e *Engine) Seq() int32 { return e.seq.Load() }

// TSeq returns the current trace sequence counter. It is incremented and
// wrapped once per tick but, matching the reference implementation, plays
// no further role: traceroute replies are mapped to hops by the TTL carried
// in the ICMP sequence field, not by this counter.
func (e *Engine) TSeq() int32 { return e.tseq.Load() }

// Selected returns the currently selected target's table index.
func (e *Engine) Selected() int { return int(e.sel.Load()) }

// SelectTarget changes the selected target and resets the trace table, per
// the concurrency design: the UI must reset trace state before the next
// tick can observe the new selection.
func (e *Engine) SelectTarget(i int) {
	e.sel.Store(int32(i))
	e.Trace.ResetForNewSelection()
}

// Delt returns the UI's current scrollback offset.
func (e *Engine) Delt() int { return int(e.delt.Load()) }

// SetDelt sets the UI's scrollback offset. Only the UI may call this.
func (e *Engine) SetDelt(d int) { e.delt.Store(int32(d)) }

// Running reports whether the engine should keep ticking.
func (e *Engine) Running() bool { return e.run.Load() }

// Stop requests a graceful shutdown; the sender observes this between
// ticks and the receiver is torn down when the socket closes.
func (e *Engine) Stop() { e.run.Store(false) }

// Reset reverts every target's and hop's statistics to their
// initial-undefined state, without discarding ring contents.
func (e *Engine) Reset() {
	for _, t := range e.Targets.All() {
		t.Stats.Reset()
	}
	for k := 1; k <= trace.MaxTTL; k++ {
		e.Trace.Hop(k).Stats.Reset()
	}
}

// nextSeq advances a 16-bit sequence counter, wrapping 65535->NSEC (not to
// 0) so arithmetic against a live ring offset never collides with a prior
// generation's numbering.
func nextSeq(cur int32) int32 {
	cur++
	if cur > 65535 {
		cur = ring.NSEC
	}
	return cur
}

// Run starts the sender and receiver workers and blocks until ctx is
// canceled or Stop is called and both workers exit.
func (e *Engine) Run(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		e.receiveLoop(ctx)
		close(done)
	}()
	e.sendLoop(ctx)
	<-done
}

func ipFromAddr(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.IPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	case *net.TCPAddr:
		return a.IP
	default:
		return nil
	}
}

func logf(format string, args ...any) {
	log.Printf(format, args...)
}

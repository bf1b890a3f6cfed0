package engine

import (
	"net"
	"testing"
	"time"

	"github.com/pingmesh/gridping/internal/outcome"
	"github.com/pingmesh/gridping/internal/ring"
	"github.com/pingmesh/gridping/internal/target"
	"github.com/pingmesh/gridping/internal/wire"
)

func newTestEngine(t *testing.T, hosts ...string) (*Engine, []*target.Target) {
	t.Helper()
	tbl := target.NewTable()
	var targets []*target.Target
	for i, h := range hosts {
		ip := net.IPv4(127, 0, 0, byte(i+1))
		tg, err := tbl.Add(h, h, ip, &net.IPAddr{IP: ip})
		if err != nil {
			t.Fatal(err)
		}
		targets = append(targets, tg)
	}
	e := New(tbl, nil, nil)
	return e, targets
}

func replyMsg(id, seq uint16, sentAt time.Time) *wire.Message {
	return &wire.Message{Type: wire.TypeEchoReply, ID: id, Seq: seq, SentAt: sentAt, TTL: 55}
}

// Scenario 1: two targets, no loss.
func TestScenarioTwoTargetsNoLoss(t *testing.T) {
	e, targets := newTestEngine(t, "a", "b")
	rtts := []time.Duration{20 * time.Millisecond, 150 * time.Millisecond}

	for tick := 0; tick < 3; tick++ {
		newSeq := nextSeq(e.seq.Load())
		e.seq.Store(newSeq)
		for i, tg := range targets {
			tg.Ring.Shift()
			sentAt := time.Now().Add(-rtts[i])
			e.handlePingReply(replyMsg(1, uint16(newSeq), sentAt), targets[i].SockAddr)
			_ = tg
		}
	}

	for i, tg := range targets {
		o := tg.Ring.Get(1, 0)
		lo, hi, ok := outcome.Bucket(o)
		if !ok {
			t.Fatalf("target %d: no bucket decoded", i)
		}
		wantMs := float64(rtts[i] / time.Millisecond)
		if wantMs < lo || wantMs >= hi {
			t.Errorf("target %d: bucket [%v,%v) excludes %v", i, lo, hi, wantMs)
		}
		snap := tg.Stats.Snapshot()
		if snap.N != 3 || snap.Lost != 0 || snap.Late != 0 {
			t.Errorf("target %d: snapshot = %+v, want n=3 lost=0 late=0", i, snap)
		}
	}
}

// Scenario 2: lost then late.
func TestScenarioLostThenLate(t *testing.T) {
	e, targets := newTestEngine(t, "a")
	tg := targets[0]

	var seqAtTick5 int32
	for tick := 1; tick <= 7; tick++ {
		newSeq := nextSeq(e.seq.Load())
		e.seq.Store(newSeq)
		tg.Ring.Shift()
		if tick == 5 {
			seqAtTick5 = newSeq
			continue // the reply for seq 5 doesn't arrive until tick 7
		}
		if tick == 7 {
			// Late reply for seq 5 arrives now, while seq is 7.
			e.handlePingReply(replyMsg(1, uint16(seqAtTick5), time.Now().Add(-5*time.Millisecond)), tg.SockAddr)
		}
	}

	if got := tg.Ring.Get(2, 0); got != outcome.Late {
		t.Errorf("ring offset 2 = %#x, want Late", got)
	}
	snap := tg.Stats.Snapshot()
	if snap.Late != 1 {
		t.Errorf("late = %d, want 1", snap.Late)
	}
}

// Scenario 3: traceroute to a 3-hop destination.
func TestScenarioTraceThreeHops(t *testing.T) {
	e, targets := newTestEngine(t, "dest")
	e.SelectTarget(0)
	e.Trace.BeginTick()
	for k := 1; k <= 24; k++ {
		e.Trace.Hop(k).Ring.Shift()
	}

	peer := targets[0].SockAddr
	e.handleTraceReply(&wire.Message{Type: wire.TypeTimeExceeded, ID: 3, Seq: 1, SentAt: time.Now().Add(-5 * time.Millisecond)}, peer, true)
	e.handleTraceReply(&wire.Message{Type: wire.TypeTimeExceeded, ID: 3, Seq: 2, SentAt: time.Now().Add(-12 * time.Millisecond)}, peer, true)
	e.handleTraceReply(&wire.Message{Type: wire.TypeEchoReply, ID: 3, Seq: 3, SentAt: time.Now().Add(-40 * time.Millisecond)}, peer, false)

	if got := e.Trace.NHop(); got != 3 {
		t.Fatalf("nhop = %d, want 3", got)
	}
	for k := 4; k <= 24; k++ {
		if got := e.Trace.Hop(k).Ring.Get(0, 0); got != outcome.Lost {
			t.Errorf("hop %d ring head = %#x, want Lost", k, got)
		}
	}
}

// Scenario 4: unreachable.
func TestScenarioUnreachable(t *testing.T) {
	e, targets := newTestEngine(t, "dest")
	e.SelectTarget(0)
	e.Trace.BeginTick()
	for k := 1; k <= 2; k++ {
		e.Trace.Hop(k).Ring.Shift()
	}

	peer := targets[0].SockAddr
	e.handleUnreachable(&wire.Message{Type: wire.TypeDestUnreachable, ID: 3, Seq: 2}, peer)

	if got := e.Trace.NHop(); got != 2 {
		t.Fatalf("nhop = %d, want 2", got)
	}
	if got := e.Trace.Hop(2).DT(); got != -1 {
		t.Fatalf("hop 2 dt = %d, want -1", got)
	}
}

// Scenario 5: sequence wrap.
func TestScenarioSequenceWrap(t *testing.T) {
	e, targets := newTestEngine(t, "a")
	tg := targets[0]

	e.seq.Store(65534)
	tg.Ring.Shift() // finalizes whatever was at head as tick for seq 65534->cur after shift

	// Drive seq to wrap.
	next := nextSeq(e.seq.Load()) // 65535
	e.seq.Store(next)
	tg.Ring.Shift()
	seqAt65535 := next

	next = nextSeq(e.seq.Load()) // wraps to NSEC
	if next != ring.NSEC {
		t.Fatalf("wrapped seq = %d, want %d", next, ring.NSEC)
	}
	e.seq.Store(next)
	tg.Ring.Shift()

	// A reply for the tick at seq 65535 arrives one tick late (current seq
	// is the wrapped value).
	k := int(e.seq.Load()) - int(seqAt65535)
	if k < 0 {
		k += 65536 - ring.NSEC
	}
	if k != 1 {
		t.Fatalf("late offset across wrap = %d, want 1", k)
	}
}

// Scenario 6: reset.
func TestScenarioReset(t *testing.T) {
	e, targets := newTestEngine(t, "a")
	tg := targets[0]

	for tick := 0; tick < 100; tick++ {
		newSeq := nextSeq(e.seq.Load())
		e.seq.Store(newSeq)
		tg.Ring.Shift()
		e.handlePingReply(replyMsg(1, uint16(newSeq), time.Now().Add(-time.Duration(tick)*time.Millisecond)), tg.SockAddr)
	}

	before := tg.Ring.Get(1, 0)
	e.Reset()
	snap := tg.Stats.Snapshot()
	if snap.N != 0 || snap.Lost != 0 || snap.Late != 0 {
		t.Fatalf("reset left nonzero counters: %+v", snap)
	}
	after := tg.Ring.Get(1, 0)
	if before != after {
		t.Fatalf("reset changed ring contents: before=%#x after=%#x", before, after)
	}
}

package engine

import (
	"context"
	"time"

	"github.com/pingmesh/gridping/internal/trace"
	"github.com/pingmesh/gridping/internal/wire"
)

// sendLoop is the periodic sender (C7). It never reads reply state; it
// only advances rings via Shift and emits probes. Per tick it: advances
// tseq, sends a TTL-swept traceroute burst at the currently-selected
// target, optionally logs the previous tick's RTTs, advances seq, and
// sends one ping to every target. It then sleeps out the remainder of the
// tick before signaling a repaint.
func (e *Engine) sendLoop(ctx context.Context) {
	pktDelay := time.Duration(e.packetMicros) * time.Microsecond

	for e.Running() {
		select {
		case <-ctx.Done():
			e.Stop()
			return
		default:
		}

		e.tseq.Store(nextSeq(e.tseq.Load()))
		e.sendTraceBurst(pktDelay)

		if e.Logger != nil && e.seq.Load() != 0 {
			e.Logger.LogTick(e.Targets.All())
		}

		newSeq := nextSeq(e.seq.Load())
		e.seq.Store(newSeq)
		e.sendPingSweep(newSeq, pktDelay)

		e.sleepOutTick()

		select {
		case e.Repaint <- struct{}{}:
		default:
		}

		time.Sleep((e.cadence - time.Second) + 50*time.Millisecond)

		if e.count > 0 && int(newSeq) >= e.count {
			e.Stop()
		}
	}
}

func (e *Engine) sendTraceBurst(pktDelay time.Duration) {
	e.Trace.BeginTick()

	sel := e.Selected()
	if sel < 0 || sel >= e.Targets.Len() {
		return
	}
	dest := e.Targets.At(sel).SockAddr

	for k := 1; k <= trace.MaxTTL; k++ {
		hop := e.Trace.Hop(k)
		if hop.Ring.Shift() {
			hop.Stats.MarkLost()
		}
		pkt := wire.BuildEchoRequest(e.Sock.TraceID, uint16(k), time.Now())
		if err := e.Sock.Send(pkt, dest, k); err != nil {
			logf("gridping: trace send ttl=%d: %v", k, err)
		}
		time.Sleep(pktDelay)
	}
}

func (e *Engine) sendPingSweep(seq int32, pktDelay time.Duration) {
	for _, t := range e.Targets.All() {
		t.ClearLastRTT()
		if t.Ring.Shift() {
			t.Stats.MarkLost()
		}
		pkt := wire.BuildEchoRequest(e.Sock.PingID, uint16(seq), time.Now())
		if err := e.Sock.Send(pkt, t.SockAddr, PingTTL); err != nil {
			logf("gridping: ping send to %s: %v", t.Host, err)
		}
		time.Sleep(pktDelay)
	}
}

// sleepOutTick sleeps the remainder of the nominal one-second tick not
// already consumed by the ping sweep, per spec.md §4.7 step 5. The
// traceroute burst's own air time is covered separately by the
// (ntar+tTTL)*pus < 950ms load-time budget check in ValidateAirTime.
func (e *Engine) sleepOutTick() {
	used := int64(e.Targets.Len()) * int64(e.packetMicros)
	remaining := tickBudgetMicros - used
	if remaining > 0 {
		time.Sleep(time.Duration(remaining) * time.Microsecond)
	}
}

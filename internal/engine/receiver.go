package engine

import (
	"context"
	"net"
	"time"

	"github.com/pingmesh/gridping/internal/outcome"
	"github.com/pingmesh/gridping/internal/ring"
	"github.com/pingmesh/gridping/internal/wire"
)

// receiveLoop is the blocking receiver (C8). It demultiplexes incoming
// ICMP datagrams into a target update or a hop update, tolerating
// late/duplicate/unreachable replies. It never sends and never mutates
// seq/tseq; it only writes ring slot 0 (current replies) or upgrades a
// previously-Lost slot to Late.
func (e *Engine) receiveLoop(ctx context.Context) {
	for e.Running() {
		raw, peer, err := e.Sock.Recv(time.Time{})
		if err != nil {
			if !e.Running() {
				return
			}
			// A reset closes the old socket out from under a blocked Recv;
			// loop and retry against whatever socket is current now.
			logf("gridping: recv error, retrying: %v", err)
			continue
		}

		msg, err := wire.ParseDatagram(raw)
		if err != nil {
			continue // garbage or truncated citation; drop silently
		}

		switch msg.Type {
		case wire.TypeEchoReply:
			switch msg.ID {
			case e.Sock.PingID:
				e.handlePingReply(msg, peer)
			case e.Sock.TraceID:
				e.handleTraceReply(msg, peer, false)
			}
		case wire.TypeTimeExceeded:
			if msg.ID == e.Sock.TraceID {
				e.handleTraceReply(msg, peer, true)
			}
		case wire.TypeDestUnreachable:
			if msg.ID == e.Sock.TraceID {
				e.handleUnreachable(msg, peer)
			}
		}

		select {
		case <-ctx.Done():
			e.Stop()
		default:
		}
	}
}

func (e *Engine) handlePingReply(msg *wire.Message, peer net.Addr) {
	ip := ipFromAddr(peer)
	if ip == nil {
		return
	}
	idx := e.Targets.IndexOf(ip)
	if idx < 0 {
		return
	}
	t := e.Targets.At(idx)
	if msg.SentAt.IsZero() {
		// No usable send time; nothing to record.
		return
	}

	curSeq := e.seq.Load()
	if int32(msg.Seq) == curSeq {
		dtMs := dtMillis(msg.SentAt)
		t.SetReplyTTL(msg.TTL)
		t.SetLastRTT(dtMs)
		t.Ring.Set(0, outcome.Encode(dtMs))
		t.Stats.Update(dtMs)
		return
	}

	k := int(curSeq) - int(msg.Seq)
	if k < 0 {
		k += 65536 - ring.NSEC
	}
	if k > 0 && k < ring.NSEC {
		if t.Ring.CASLateUpgrade(k) {
			t.Stats.MarkLate()
		}
	}
}

// handleTraceReply processes a traceroute Echo Reply (timeExceeded=false,
// meaning the probe reached the destination) or a Time Exceeded citation
// (timeExceeded=true, an intermediate hop). Only the former shortens nhop.
func (e *Engine) handleTraceReply(msg *wire.Message, peer net.Addr, timeExceeded bool) {
	rsq := int(msg.Seq)
	nhop := e.Trace.NHop()
	if rsq < 1 || rsq > nhop {
		return
	}
	if msg.SentAt.IsZero() {
		// Router didn't echo enough of the original datagram to recover the
		// send timestamp; nothing usable to record.
		return
	}

	if !timeExceeded {
		e.Trace.ShrinkTo(rsq)
	}

	dtMs := dtMillis(msg.SentAt)
	hop := e.Trace.Hop(rsq)
	hop.SetResponse(dtMs, ipFromAddr(peer))
	hop.Ring.Set(0, outcome.Encode(dtMs))
	hop.Stats.Update(dtMs)
}

func (e *Engine) handleUnreachable(msg *wire.Message, peer net.Addr) {
	rsq := int(msg.Seq)
	nhop := e.Trace.NHop()
	if rsq <= 0 || rsq >= nhop {
		return
	}
	e.Trace.ShrinkTo(rsq)
	e.Trace.Hop(rsq).SetUnreachable(ipFromAddr(peer))
	// The ring slot is left at its pre-committed Lost value: there is no
	// RTT to encode, and the UI distinguishes "unreachable" from "lost" by
	// checking Hop.DT() == trace.Unreachable, not by ring contents.
}

func dtMillis(sentAt time.Time) float64 {
	return float64(time.Since(sentAt)) / float64(time.Millisecond)
}

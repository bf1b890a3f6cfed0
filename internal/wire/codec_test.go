package wire

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

// buildIPv4Header returns a minimal 20-byte IPv4 header (no options) with
// the given TTL and protocol, wrapping body.
func buildIPv4Header(ttl, proto byte, body []byte) []byte {
	hdr := make([]byte, 20)
	hdr[0] = 0x45 // version 4, IHL 5 (20 bytes)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(20+len(body)))
	hdr[8] = ttl
	hdr[9] = proto
	return append(hdr, body...)
}

func buildEchoReplyBody(id, seq uint16, payload []byte) []byte {
	b := make([]byte, icmpHeaderLen+len(payload))
	b[0] = icmpEchoReply
	binary.BigEndian.PutUint16(b[4:6], id)
	binary.BigEndian.PutUint16(b[6:8], seq)
	copy(b[icmpHeaderLen:], payload)
	return b
}

func TestParseDatagramEchoReply(t *testing.T) {
	sentAt := time.Now()
	payload := make([]byte, payloadLen)
	binary.NativeEndian.PutUint64(payload, math.Float64bits(float64(sentAt.UnixNano())/1e9))
	raw := buildIPv4Header(55, 1, buildEchoReplyBody(0x1234, 42, payload))

	msg, err := ParseDatagram(raw)
	if err != nil {
		t.Fatalf("ParseDatagram: %v", err)
	}
	if msg.Type != TypeEchoReply || msg.ID != 0x1234 || msg.Seq != 42 || msg.TTL != 55 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.SentAt.IsZero() {
		t.Fatal("SentAt not decoded")
	}
}

// A reply body shorter than the 8-byte timestamp payload carries no usable
// send time and must be dropped outright, matching the reference
// implementation's Receive(), rather than returned with a zero SentAt.
func TestParseDatagramEchoReplyTruncatedPayloadDropped(t *testing.T) {
	short := buildEchoReplyBody(0x1234, 42, []byte{1, 2, 3}) // payloadLen-5 short
	raw := buildIPv4Header(55, 1, short)

	if _, err := ParseDatagram(raw); err == nil {
		t.Fatal("expected truncated echo reply to be rejected")
	}
}

func TestChecksumVerifies(t *testing.T) {
	pkt := BuildEchoRequest(0x1234, 42, time.Now())
	if !VerifyChecksum(pkt) {
		t.Fatal("checksum did not verify")
	}
	// Flip a bit and confirm it no longer verifies.
	pkt[5] ^= 0xFF
	if VerifyChecksum(pkt) {
		t.Fatal("checksum verified after corruption")
	}
}

func TestBuildEchoRequestFields(t *testing.T) {
	pkt := BuildEchoRequest(0x1234, 42, time.Now())
	if pkt[0] != icmpEchoRequest || pkt[1] != 0 {
		t.Fatalf("unexpected type/code: %v %v", pkt[0], pkt[1])
	}
	if len(pkt) != echoRequestLen {
		t.Fatalf("len = %d, want %d", len(pkt), echoRequestLen)
	}
}

func TestChecksumOddLength(t *testing.T) {
	b := []byte{0x08, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03}
	cs := Checksum(b)
	b[2] = byte(cs >> 8)
	b[3] = byte(cs)
	if !VerifyChecksum(b) {
		t.Fatal("odd-length checksum did not verify")
	}
}

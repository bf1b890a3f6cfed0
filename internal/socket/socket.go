// Package socket owns the single raw ICMPv4 socket shared by the sender
// and receiver, including the two-identifier scheme that separates the
// ping and traceroute streams, and per-send TTL control for the
// traceroute burst.
package socket

import (
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

// maxDatagram is large enough for any IPv4 ICMP reply or error citation
// this program sends or expects to receive.
const maxDatagram = 1500

// recvBufBytes enlarges the socket's receive buffer beyond the OS default
// so a burst of replies across many targets and trace hops doesn't get
// dropped by the kernel before Recv gets to it.
const recvBufBytes = 1 << 20

// rateLimit bounds outbound packets per second so a misconfigured target
// list can never blow through the socket's fair-use budget; the per-tick
// air-time check in the engine is the primary guard, this is a backstop.
const rateLimit = 2000

// Manager owns one raw ICMPv4 socket and derives the two stream
// identifiers from the process id, as described in the wire format: a ping
// identifier with its low bit clear, and a traceroute identifier with its
// low bit set, so the receiver can dispatch without ambiguity.
type Manager struct {
	mu      sync.Mutex
	conn    net.PacketConn
	p4      *ipv4.PacketConn
	limiter *rate.Limiter

	PingID  uint16
	TraceID uint16
}

// Open creates a raw ICMPv4 socket and derives fresh identifiers. Creating
// the socket requires elevated privileges (CAP_NET_RAW or root); Open does
// not fall back to an unprivileged datagram ICMP socket and returns an
// error when the raw socket cannot be opened.
func Open() (*Manager, error) {
	conn, err := net.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("socket: opening raw ICMP socket (requires elevated privileges): %w", err)
	}
	if err := setRecvBuf(conn, recvBufBytes); err != nil {
		conn.Close()
		return nil, fmt.Errorf("socket: setting receive buffer size: %w", err)
	}
	m := &Manager{
		conn:    conn,
		p4:      ipv4.NewPacketConn(conn),
		limiter: rate.NewLimiter(rate.Limit(rateLimit), rateLimit/10),
	}
	m.deriveIDs()
	return m, nil
}

func (m *Manager) deriveIDs() {
	pid := os.Getpid() & 0x7FFF
	m.PingID = uint16(pid) << 1
	m.TraceID = m.PingID | 1
}

// Send transmits b to dst with the given IP TTL. A TTL of 0 means "leave
// the socket's default TTL alone".
func (m *Manager) Send(b []byte, dst net.Addr, ttl int) error {
	if !m.limiter.Allow() {
		return fmt.Errorf("socket: send rate exceeded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl > 0 {
		orig, err := m.p4.TTL()
		if err != nil {
			return fmt.Errorf("socket: get ttl: %w", err)
		}
		if err := m.p4.SetTTL(ttl); err != nil {
			return fmt.Errorf("socket: set ttl %d: %w", ttl, err)
		}
		defer m.p4.SetTTL(orig)
	}
	_, err := m.conn.WriteTo(b, dst)
	return err
}

// Recv blocks for the next datagram, returning the raw bytes (including
// the IP header, as delivered by the raw socket) and the peer address.
func (m *Manager) Recv(deadline time.Time) ([]byte, net.Addr, error) {
	buf := make([]byte, maxDatagram)
	if !deadline.IsZero() {
		if err := m.conn.SetReadDeadline(deadline); err != nil {
			return nil, nil, err
		}
	} else {
		_ = m.conn.SetReadDeadline(time.Time{})
	}
	n, peer, err := m.conn.ReadFrom(buf)
	if err != nil {
		return nil, peer, err
	}
	return buf[:n], peer, nil
}

// Reset closes and reopens the socket, re-deriving the two stream
// identifiers. Any outstanding blocking Recv returns an error and the
// receiver must loop and call Recv again against the new socket.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.conn.Close(); err != nil {
		return fmt.Errorf("socket: close during reset: %w", err)
	}
	conn, err := net.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return fmt.Errorf("socket: reopen during reset: %w", err)
	}
	if err := setRecvBuf(conn, recvBufBytes); err != nil {
		conn.Close()
		return fmt.Errorf("socket: setting receive buffer size during reset: %w", err)
	}
	m.conn = conn
	m.p4 = ipv4.NewPacketConn(conn)
	m.deriveIDs()
	return nil
}

// Close releases the socket.
func (m *Manager) Close() error {
	return m.conn.Close()
}

// setRecvBuf sets SO_RCVBUF on conn's underlying file descriptor via a raw
// syscall, since net.PacketConn exposes no portable way to do this itself.
func setRecvBuf(conn net.PacketConn, bytes int) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return fmt.Errorf("connection does not support raw control")
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, bytes)
	}); err != nil {
		return err
	}
	return sockErr
}

// Package netio wraps UDP sockets behind the small surface the listener
// and session engine need: bind, send-to, receive-from(-with-deadline).
// Grounded on the teacher's net.PacketConn listener loop
// (pkg/server/server.go) and its SO_REUSEPORT dial/listen control
// function (pkg/server/helpers.go's controlReusePort), generalized into
// one Endpoint type used by both the well-known listening socket and
// every per-session ephemeral socket.
package netio

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrTimeout is returned by RecvFromTimeout when no matching datagram
// arrives before the deadline. It is distinguishable from a hard I/O
// error so callers can distinguish "retry" from "give up".
var ErrTimeout = errors.New("netio: receive timed out")

// ErrClosed indicates the underlying socket was closed from under a
// blocking receive.
var ErrClosed = errors.New("netio: endpoint closed")

// Peer identifies a UDP endpoint by address and port. A zero-value field
// acts as a wildcard when used as an expected-peer filter in
// RecvFromTimeout.
type Peer struct {
	Addr string
	Port int
}

func (p Peer) String() string {
	return net.JoinHostPort(p.Addr, fmt.Sprintf("%d", p.Port))
}

func (p Peer) IsZero() bool {
	return p.Addr == "" && p.Port == 0
}

// matches reports whether got satisfies the expected-peer filter want,
// treating a zero Addr/Port in want as a wildcard for that field.
func (want Peer) matches(got Peer) bool {
	if want.Addr != "" && want.Addr != got.Addr {
		return false
	}

	if want.Port != 0 && want.Port != got.Port {
		return false
	}

	return true
}

// Endpoint is an unconnected UDP socket: the Datagram Endpoint of spec §4.2.
// The same type serves the well-known listening socket (bound to a fixed
// port) and every per-session ephemeral socket (bound to port 0).
type Endpoint struct {
	conn net.PacketConn
	port int
}

// Bind opens a UDP socket on 0.0.0.0:port. port == 0 obtains an ephemeral
// port from the kernel; Port() always reflects the bound port afterward.
func Bind(port int) (*Endpoint, error) {
	lc := net.ListenConfig{Control: reusePortControl()}

	conn, err := lc.ListenPacket(context.Background(), "udp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("netio: bind port %d: %w", port, err)
	}

	bound := conn.LocalAddr().(*net.UDPAddr).Port

	return &Endpoint{conn: conn, port: bound}, nil
}

// Port returns the bound local port (the TID, for a session endpoint).
func (e *Endpoint) Port() int { return e.port }

// Close releases the socket. A blocking RecvFrom fails with ErrClosed.
func (e *Endpoint) Close() error {
	return e.conn.Close()
}

// SendTo writes b to dst.
func (e *Endpoint) SendTo(dst Peer, b []byte) (int, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", dst.String())
	if err != nil {
		return 0, fmt.Errorf("netio: resolve %s: %w", dst, err)
	}

	n, err := e.conn.WriteTo(b, udpAddr)
	if err != nil {
		return n, fmt.Errorf("netio: send to %s: %w", dst, err)
	}

	return n, nil
}

// RecvFrom blocks indefinitely until a datagram arrives and returns its
// length and source peer.
func (e *Endpoint) RecvFrom(buf []byte) (int, Peer, error) {
	n, addr, err := e.conn.ReadFrom(buf)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return 0, Peer{}, ErrClosed
		}

		return 0, Peer{}, fmt.Errorf("netio: recv from: %w", err)
	}

	return n, peerFromAddr(addr), nil
}

// RecvFromTimeout blocks for up to timeout waiting for a datagram from a
// peer matching want (zero Addr/Port fields act as wildcards). A datagram
// from a non-matching peer is discarded and the wait continues until the
// deadline elapses, at which point ErrTimeout is returned.
func (e *Endpoint) RecvFromTimeout(buf []byte, want Peer, timeout time.Duration) (int, Peer, error) {
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, Peer{}, ErrTimeout
		}

		if err := e.conn.SetReadDeadline(deadline); err != nil {
			return 0, Peer{}, fmt.Errorf("netio: set read deadline: %w", err)
		}

		n, addr, err := e.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return 0, Peer{}, ErrClosed
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return 0, Peer{}, ErrTimeout
			}

			return 0, Peer{}, fmt.Errorf("netio: recv: %w", err)
		}

		got := peerFromAddr(addr)
		if want.matches(got) {
			return n, got, nil
		}
		// Peer mismatch: absorb the datagram and keep waiting within the deadline.
	}
}

func peerFromAddr(addr net.Addr) Peer {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return Peer{}
	}

	return Peer{Addr: udpAddr.IP.String(), Port: udpAddr.Port}
}

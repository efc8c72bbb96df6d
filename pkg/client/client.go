// Package client implements a TFTP client used to drive GET/PUT transfers
// against a server built on internal/wire and internal/netio, plus an
// interactive REPL front end.
//
// Grounded on the teacher's pkg/client.Client (the Connector interface
// and constructor shape are kept), but Get/Put — stubs in the teacher —
// are rewritten into full RRQ/WRQ client-side state machines so the CLI
// is actually usable against the daemon in this repo.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelsys/tftpd/internal/netio"
	"github.com/kestrelsys/tftpd/internal/wire"
)

// DefaultTimeout matches the server's TFTP_RECV_TIMEOUT default.
const DefaultTimeout = 1 * time.Second

// DefaultAttempts matches the server's TFTP_RECV_ATTEMPTS default.
const DefaultAttempts = 2

var ErrNotConnected = errors.New("client: not connected, use connect <host> <port> first")

// Connector is the interface the CLI evaluator drives. A method set
// rather than a concrete type so the evaluator can be tested against a
// fake.
type Connector interface {
	Connect(addr string) error
	Get(ctx context.Context, filename string) error
	Put(ctx context.Context, filename string) error
	SetTimeout(timeout uint)
	SetTrace()
}

// Client is a single-peer TFTP client: one ephemeral endpoint reused
// across GET/PUT calls to the currently connected server.
type Client struct {
	ep       *netio.Endpoint
	server   netio.Peer
	l        *zap.SugaredLogger
	timeout  time.Duration
	attempts int
	trace    bool
}

// NewClient returns a Client with no server connected yet.
func NewClient(l *zap.SugaredLogger) Connector {
	return &Client{l: l, timeout: DefaultTimeout, attempts: DefaultAttempts}
}

// SetTimeout overrides the per-attempt receive timeout.
func (c *Client) SetTimeout(timeout uint) {
	c.timeout = time.Duration(timeout) * time.Second
}

// SetTrace toggles verbose per-block logging.
func (c *Client) SetTrace() {
	c.trace = !c.trace
	c.l.Infof("trace=%v", c.trace)
}

// Connect resolves addr ("host:port") as the server to transfer with,
// allocating a fresh ephemeral endpoint.
func (c *Client) Connect(addr string) error {
	if c.ep != nil {
		c.ep.Close()
	}

	ep, err := netio.Bind(0)
	if err != nil {
		return fmt.Errorf("client: connect: %w", err)
	}

	host, port, err := splitHostPort(addr)
	if err != nil {
		ep.Close()
		return fmt.Errorf("client: connect: %w", err)
	}

	c.ep = ep
	c.server = netio.Peer{Addr: host, Port: port}

	return nil
}

// Get downloads filename from the connected server via RRQ, writing it to
// a same-named file in the current directory.
func (c *Client) Get(ctx context.Context, filename string) error {
	if c.ep == nil {
		return ErrNotConnected
	}

	req := &wire.Request{Opcode: wire.OpCodeRRQ, Filename: filename, Mode: wire.ModeOctet}

	raw, err := req.MarshalBinary()
	if err != nil {
		return fmt.Errorf("client: get: marshal request: %w", err)
	}

	if _, err := c.ep.SendTo(c.server, raw); err != nil {
		return fmt.Errorf("client: get: send request: %w", err)
	}

	return c.receiveFile(ctx, filename)
}

// Put uploads filename to the connected server via WRQ.
func (c *Client) Put(ctx context.Context, filename string) error {
	if c.ep == nil {
		return ErrNotConnected
	}

	req := &wire.Request{Opcode: wire.OpCodeWRQ, Filename: filename, Mode: wire.ModeOctet}

	raw, err := req.MarshalBinary()
	if err != nil {
		return fmt.Errorf("client: put: marshal request: %w", err)
	}

	if _, err := c.ep.SendTo(c.server, raw); err != nil {
		return fmt.Errorf("client: put: send request: %w", err)
	}

	return c.sendFile(ctx, filename)
}

// receiveFile drives the client side of RRQ: receive DATA, ACK, repeat
// until a short block signals end-of-file.
func (c *Client) receiveFile(ctx context.Context, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("client: get: create %s: %w", filename, err)
	}
	defer f.Close()

	buf := make([]byte, wire.DatagramSize)
	from := netio.Peer{}

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("client: get: %w", err)
		}

		n, peer, err := c.ep.RecvFromTimeout(buf, from, c.timeout)
		if err != nil {
			return fmt.Errorf("client: get: recv data: %w", err)
		}

		from = peer // TID locks onto the session's ephemeral port after the first reply

		pkt, err := wire.Decode(buf[:n])
		if err != nil {
			continue
		}

		switch p := pkt.(type) {
		case *wire.Data:
			if _, err := f.Write(p.Payload); err != nil {
				return fmt.Errorf("client: get: write %s: %w", filename, err)
			}

			if c.trace {
				c.l.Infof("get %s: received block#=%d, #bytes=%d", filename, p.BlockNum, len(p.Payload))
			}

			ack := &wire.Ack{Opcode: wire.OpCodeACK, BlockNum: p.BlockNum}

			ackBytes, merr := ack.MarshalBinary()
			if merr != nil {
				return fmt.Errorf("client: get: marshal ack: %w", merr)
			}

			if _, err := c.ep.SendTo(from, ackBytes); err != nil {
				return fmt.Errorf("client: get: send ack: %w", err)
			}

			if len(p.Payload) < wire.MaxPayloadSize {
				return nil
			}
		case *wire.Error:
			return fmt.Errorf("client: get: server error %d: %s", p.ErrorCode, p.ErrMsg)
		}
	}
}

// sendFile drives the client side of WRQ: await ACK(0), then send DATA
// blocks until a short block terminates the transfer.
func (c *Client) sendFile(ctx context.Context, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("client: put: open %s: %w", filename, err)
	}
	defer f.Close()

	buf := make([]byte, wire.DatagramSize)

	// ACK(0) comes from the session's ephemeral port, not the well-known
	// port the WRQ was sent to, so accept any peer and lock onto it.
	n, from, err := c.ep.RecvFromTimeout(buf, netio.Peer{}, c.timeout)
	if err != nil {
		return fmt.Errorf("client: put: recv ack(0): %w", err)
	}

	pkt, err := wire.Decode(buf[:n])
	if err != nil {
		return fmt.Errorf("client: put: decode ack(0): %w", err)
	}

	ack, ok := pkt.(*wire.Ack)
	if !ok || ack.BlockNum != 0 {
		return errors.New("client: put: expected ACK(0)")
	}

	chunk := make([]byte, wire.MaxPayloadSize)

	var block uint16 = 1

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("client: put: %w", err)
		}

		readLen, rerr := f.Read(chunk)
		if rerr != nil && rerr != io.EOF {
			return fmt.Errorf("client: put: read %s: %w", filename, rerr)
		}

		data := &wire.Data{Opcode: wire.OpCodeDATA, BlockNum: block, Payload: chunk[:readLen]}

		payload, merr := data.MarshalBinary()
		if merr != nil {
			return fmt.Errorf("client: put: marshal data: %w", merr)
		}

		if _, err := c.ep.SendTo(from, payload); err != nil {
			return fmt.Errorf("client: put: send data: %w", err)
		}

		n, _, err = c.ep.RecvFromTimeout(buf, from, c.timeout)
		if err != nil {
			return fmt.Errorf("client: put: recv ack(%d): %w", block, err)
		}

		pkt, err = wire.Decode(buf[:n])
		if err != nil {
			return fmt.Errorf("client: put: decode ack(%d): %w", block, err)
		}

		ack, ok = pkt.(*wire.Ack)
		if !ok || ack.BlockNum != block {
			return fmt.Errorf("client: put: expected ACK(%d)", block)
		}

		if c.trace {
			c.l.Infof("put %s: sent block#=%d, #bytes=%d", filename, block, readLen)
		}

		if readLen < wire.MaxPayloadSize {
			return nil
		}

		block++
	}
}

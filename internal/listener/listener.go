// Package listener implements the Request Listener: the single
// well-known-port receive loop that classifies incoming RRQ/WRQ packets,
// rejects duplicates and requests past the concurrency cap, and spawns one
// goroutine per accepted session.
//
// Grounded on the original C++ tftp_server thread (nuTftpServer.cc) for
// the dispatch algorithm — including its self-healing behavior of
// invalidating the whole registry when a duplicate arrives while no
// session is open — and on the teacher's pkg/server/server.go for the
// Go idiom of a blocking ReadFrom loop spawning a goroutine per packet.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kestrelsys/tftpd/internal/netio"
	"github.com/kestrelsys/tftpd/internal/registry"
	"github.com/kestrelsys/tftpd/internal/session"
	"github.com/kestrelsys/tftpd/internal/store"
	"github.com/kestrelsys/tftpd/internal/wire"
)

// Stats exposes the Listener's live counters for the control block.
type Stats struct {
	OpenedSessions int32
	LastErrCode    int32
}

// Listener owns the well-known-port endpoint, the active-connection
// registry, and the bounded pool of concurrent sessions.
type Listener struct {
	ep     *netio.Endpoint
	log    *zap.SugaredLogger
	reg    *registry.Registry
	reads  *store.Store
	writes *store.Store
	cfg    session.Config

	maxSessions    int
	openedSessions int32
	lastErrCode    int32

	wg sync.WaitGroup

	stopped atomic.Bool
}

// New constructs a Listener bound to port, rooted at readDir for RRQ and
// writeDir for WRQ, admitting at most maxSessions concurrent transfers.
func New(log *zap.SugaredLogger, port int, readDir, writeDir string, maxSessions int, cfg session.Config) (*Listener, error) {
	ep, err := netio.Bind(port)
	if err != nil {
		return nil, fmt.Errorf("listener: bind: %w", err)
	}

	return &Listener{
		ep:          ep,
		log:         log,
		reg:         registry.New(maxSessions),
		reads:       store.New(readDir),
		writes:      store.New(writeDir),
		cfg:         cfg,
		maxSessions: maxSessions,
		lastErrCode: int32(session.NoError),
	}, nil
}

// Port reports the bound listening port.
func (l *Listener) Port() int { return l.ep.Port() }

// Stats returns a snapshot of the live counters.
func (l *Listener) Stats() Stats {
	return Stats{
		OpenedSessions: atomic.LoadInt32(&l.openedSessions),
		LastErrCode:    atomic.LoadInt32(&l.lastErrCode),
	}
}

// Serve blocks, dispatching requests until ctx is canceled or Close is
// called from another goroutine. It never returns a non-nil error on a
// clean shutdown.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	buf := make([]byte, wire.DatagramSize)

	for {
		n, from, err := l.ep.RecvFrom(buf)
		if err != nil {
			if errors.Is(err, netio.ErrClosed) || l.stopped.Load() {
				l.log.Warn("listener: stopped")
				return nil
			}

			atomic.StoreInt32(&l.lastErrCode, int32(wire.ErrNotDefined))

			return fmt.Errorf("listener: recv: %w", err)
		}

		if n == 0 {
			continue
		}

		raw := make([]byte, n)
		copy(raw, buf[:n])

		l.dispatch(from, raw)
	}
}

// dispatch classifies one inbound datagram and either absorbs it (peer
// already has a session, or the table is full) or spawns a session
// goroutine for it. It runs on the single receive-loop goroutine, so
// registry search+insert is naturally serialized without extra locking
// at this layer.
func (l *Listener) dispatch(from netio.Peer, raw []byte) {
	peer := registry.Peer{Addr: from.Addr, Port: from.Port}

	if idx := l.reg.Search(peer); idx >= 0 {
		l.log.Warnf("listener: duplicate request from %s, already tracked", from)

		if atomic.LoadInt32(&l.openedSessions) == 0 {
			l.reg.InvalidateAll()
		}

		return
	}

	opcode, err := wire.PeekOpcode(raw)
	if err != nil {
		l.log.Warnf("listener: malformed packet from %s: %s", from, err.Error())
		return
	}

	if opcode != wire.OpCodeRRQ && opcode != wire.OpCodeWRQ {
		l.log.Warnf("listener: unexpected opcode %d from %s outside a session", opcode, from)
		return
	}

	if int(atomic.LoadInt32(&l.openedSessions)) >= l.maxSessions {
		l.log.Warnf("listener: request from %s ignored, max sessions reached (%d)", from, l.maxSessions)
		return
	}

	idx := l.reg.Insert(peer)
	if idx < 0 {
		l.log.Warnf("listener: registry full, dropping request from %s", from)
		return
	}

	l.wg.Add(1)
	atomic.AddInt32(&l.openedSessions, 1)

	go l.runSession(opcode, from, raw, idx)
}

func (l *Listener) runSession(opcode wire.OpCode, from netio.Peer, raw []byte, regIdx int) {
	defer l.wg.Done()
	defer atomic.AddInt32(&l.openedSessions, -1)
	defer l.reg.Delete(regIdx)

	var (
		code int
		err  error
	)

	switch opcode {
	case wire.OpCodeRRQ:
		code, err = session.RunRRQ(l.cfg, l.log, l.reads, from, raw)
	case wire.OpCodeWRQ:
		code, err = session.RunWRQ(l.cfg, l.log, l.writes, from, raw)
	}

	if err != nil {
		l.log.Errorf("listener: session with %s ended: %s", from, err.Error())
	}

	if code != session.NoError {
		atomic.StoreInt32(&l.lastErrCode, int32(code))
	}
}

// Close stops the receive loop and waits for every in-flight session to
// finish.
func (l *Listener) Close() error {
	l.stopped.Store(true)

	err := l.ep.Close()

	l.wg.Wait()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("listener: close: %w", err)
	}

	return nil
}

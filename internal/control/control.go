// Package control implements the Server Control Block and the bounded
// handle pool the programmatic embedding API is built on.
//
// Grounded on the original C++ IPC_thread_param / tftpd_get_ipc /
// tftpd_free_ipc trio (nuTftpServer.cc): a fixed-size pool of control
// blocks, each backing exactly one running daemon instance, acquired by
// Pool.Start and released by Pool.Release or Pool.ShutdownAll (Block.Shutdown
// stops the instance but does not free its slot). The hand-rolled critical section
// guarding the pool is replaced by a sync.Mutex.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kestrelsys/tftpd/internal/listener"
	"github.com/kestrelsys/tftpd/internal/session"
)

// PoolSize bounds the number of concurrent server instances a single
// process may run, matching TFTPD_IPC_POOL_SIZE.
const PoolSize = 3

// ErrPoolExhausted is returned by Pool.Start when PoolSize instances are
// already running.
var ErrPoolExhausted = errors.New("control: handle pool exhausted")

// Block is one running daemon instance: its listener plus the counters
// the handle API exposes (opened sessions, running flag, stop flag, last
// error code).
type Block struct {
	lst         *listener.Listener
	cancel      context.CancelFunc
	readDir     string
	writeDir    string
	port        int
	maxSessions int

	running atomic.Bool
	stopped atomic.Bool

	done chan error
}

// ReadDir is the GET_DIR this block serves RRQ from.
func (b *Block) ReadDir() string { return b.readDir }

// WriteDir is the PUT_DIR this block serves WRQ into.
func (b *Block) WriteDir() string { return b.writeDir }

// Port is the well-known port this block is bound to.
func (b *Block) Port() int { return b.port }

// OpenedSessions reports the number of sessions currently in flight,
// mirroring tftp_get_opened_sessions_count.
func (b *Block) OpenedSessions() uint32 {
	return uint32(b.lst.Stats().OpenedSessions)
}

// IsRunning mirrors tftp_is_server_running.
func (b *Block) IsRunning() bool { return b.running.Load() }

// StopCmdIssued mirrors tftp_stop_cmd_issued.
func (b *Block) StopCmdIssued() bool { return b.stopped.Load() }

// LastErrCode mirrors tftp_get_last_server_error_code: the most recent
// terminal error code observed by any session, or session.NoError.
func (b *Block) LastErrCode() int {
	return int(b.lst.Stats().LastErrCode)
}

// Shutdown mirrors tftp_stop_server: sets the stop flag and closes the
// listening socket, then waits for the receive loop to exit.
func (b *Block) Shutdown() error {
	b.stopped.Store(true)
	b.cancel()

	err := <-b.done
	b.running.Store(false)

	if err != nil {
		return fmt.Errorf("control: shutdown: %w", err)
	}

	return nil
}

// Pool is the fixed-size set of concurrently running Blocks, matching
// TFTPD_IPC_POOL_SIZE.
type Pool struct {
	mu     sync.Mutex
	blocks []*Block
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{}
}

// Start acquires a slot and launches a new daemon instance, returning its
// Block (the programmatic handle). It fails if max_sessions <= 0 or the
// pool already holds PoolSize instances, matching tftp_start_server's
// parameter validation.
func (p *Pool) Start(log *zap.SugaredLogger, port, maxSessions int, readDir, writeDir string, cfg session.Config) (*Block, error) {
	if maxSessions <= 0 {
		return nil, fmt.Errorf("control: start: max_sessions must be positive")
	}

	p.mu.Lock()
	if len(p.blocks) >= PoolSize {
		p.mu.Unlock()
		return nil, ErrPoolExhausted
	}
	p.mu.Unlock()

	lst, err := listener.New(log, port, readDir, writeDir, maxSessions, cfg)
	if err != nil {
		return nil, fmt.Errorf("control: start: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Block{
		lst:         lst,
		cancel:      cancel,
		readDir:     readDir,
		writeDir:    writeDir,
		port:        lst.Port(),
		maxSessions: maxSessions,
		done:        make(chan error, 1),
	}
	b.running.Store(true)

	go func() {
		b.done <- lst.Serve(ctx)
	}()

	p.mu.Lock()
	p.blocks = append(p.blocks, b)
	p.mu.Unlock()

	return b, nil
}

// Release removes b from the pool, freeing its slot. It does not shut b
// down; call Shutdown first.
func (p *Pool) Release(b *Block) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, cur := range p.blocks {
		if cur == b {
			p.blocks = append(p.blocks[:i], p.blocks[i+1:]...)
			return
		}
	}
}

// ShutdownAll shuts down every running block and releases its slot,
// combining every failure into one error.
func (p *Pool) ShutdownAll() error {
	p.mu.Lock()
	blocks := make([]*Block, len(p.blocks))
	copy(blocks, p.blocks)
	p.mu.Unlock()

	var err error

	for _, b := range blocks {
		if shutErr := b.Shutdown(); shutErr != nil {
			err = multierr.Append(err, shutErr)
		}

		p.Release(b)
	}

	return err
}

// Len reports how many instances are currently running.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.blocks)
}

package store

import (
	"context"
	"net"
	"sync"
	"time"
)

// attemptConns holds the network connections of one Put. Every connection
// is given the attempt's deadline and is closed once the attempt context is
// done, so a peer that stops answering fails the read or write in progress.
type attemptConns struct {
	ctx    context.Context
	dialer net.Dialer

	mu     sync.Mutex
	conns  []net.Conn
	closed bool
	stop   func() bool
}

func newAttemptConns(ctx context.Context, dialTimeout time.Duration) *attemptConns {
	a := &attemptConns{ctx: ctx, dialer: net.Dialer{Timeout: dialTimeout}}
	a.stop = context.AfterFunc(ctx, a.closeAll)
	return a
}

// dial opens a connection bound to the attempt.
func (a *attemptConns) dial(network, addr string) (net.Conn, error) {
	conn, err := a.dialer.DialContext(a.ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := a.ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		conn.Close()
		return nil, a.ctx.Err()
	}
	a.conns = append(a.conns, conn)
	return conn, nil
}

func (a *attemptConns) closeAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for _, conn := range a.conns {
		conn.Close()
	}
	a.conns = nil
}

// release detaches the connections from the attempt context. It does not
// close them.
func (a *attemptConns) release() {
	a.stop()
}

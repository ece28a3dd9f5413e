package status

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/jamesainslie/launchsync/pkg/launchsync/logging"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

// Responder answers status requests with a configurable status. It stands
// in for a login server during development and in tests.
type Responder struct {
	conn net.PacketConn

	mu     sync.RWMutex
	status types.ServerStatus

	requests atomic.Int64
	closed   atomic.Bool
}

// Listen opens a UDP socket on addr, e.g. "127.0.0.1:0".
func Listen(ctx context.Context, addr string, s types.ServerStatus) (*Responder, error) {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return &Responder{conn: conn, status: s}, nil
}

// Addr returns the bound address.
func (r *Responder) Addr() net.Addr {
	return r.conn.LocalAddr()
}

// SetStatus changes the status sent in later replies.
func (r *Responder) SetStatus(s types.ServerStatus) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

// Status returns the current reply status.
func (r *Responder) Status() types.ServerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Requests returns the number of valid requests answered so far.
func (r *Responder) Requests() int64 {
	return r.requests.Load()
}

// Serve answers requests until ctx is done or Close is called. Datagrams
// other than the status request are ignored. It returns nil after a
// regular shutdown.
func (r *Responder) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = r.Close() })
	defer stop()

	log := logging.Get("status")
	buf := make([]byte, 512)
	for {
		n, from, err := r.conn.ReadFrom(buf)
		if err != nil {
			if r.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("reading request: %w", err)
		}
		if !bytes.Equal(buf[:n], Request) {
			log.Debug("ignoring datagram", "from", from, "bytes", n)
			continue
		}

		r.requests.Add(1)
		if _, err := r.conn.WriteTo(EncodeStatus(r.Status()), from); err != nil {
			log.Warn("reply failed", "to", from, "error", err)
		}
	}
}

// Close stops Serve and releases the socket.
func (r *Responder) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.conn.Close()
}

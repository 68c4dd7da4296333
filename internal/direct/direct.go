// Package direct implements the direct and reject pseudo-egresses:
// plain TCP connect to the destination, and refusal after a fixed or
// random delay.
package direct

import (
	"context"
	"math/rand"
	"net"
	"sync/atomic"
	"time"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/endpoint"
)

// DefaultDialTimeout bounds how long Connect waits for the outbound TCP
// handshake.
const DefaultDialTimeout = 10 * time.Second

// Egress dials straight to the requested (or resolved) destination with no
// further protocol framing.
type Egress struct {
	dialTimeout time.Duration
	conn        net.Conn
	closed      atomic.Bool
}

// New builds a direct Egress with DefaultDialTimeout.
func New() *Egress {
	return &Egress{dialTimeout: DefaultDialTimeout}
}

// Connect dials remote, preferring the first resolved address when the
// caller already performed DNS resolution.
func (e *Egress) Connect(ctx context.Context, remote endpoint.Endpoint, resolved []endpoint.Endpoint) error {
	target := remote
	if len(resolved) > 0 {
		target = resolved[0]
		target.Port = remote.Port
	}

	d := net.Dialer{Timeout: e.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", target.String())
	if err != nil {
		return adapter.Wrap(adapter.ConnFailure, "direct dial failed", err)
	}
	e.conn = conn
	return nil
}

func (e *Egress) Recv(ctx context.Context, buf []byte) (int, error) {
	applyDeadline(ctx, e.conn, false)
	return e.conn.Read(buf)
}

func (e *Egress) Send(ctx context.Context, buf []byte) error {
	applyDeadline(ctx, e.conn, true)
	_, err := e.conn.Write(buf)
	return err
}

func (e *Egress) Close() error {
	e.closed.Store(true)
	if e.conn == nil {
		return nil
	}
	return e.conn.Close()
}

func (e *Egress) Readable() bool { return !e.closed.Load() }
func (e *Egress) Writable() bool { return !e.closed.Load() }

func applyDeadline(ctx context.Context, conn net.Conn, write bool) {
	dl, ok := ctx.Deadline()
	if !ok {
		return
	}
	if write {
		conn.SetWriteDeadline(dl)
	} else {
		conn.SetReadDeadline(dl)
	}
}

// RejectEgress simulates an outbound attempt that always fails, after an
// optional delay. Replay defence and self-connect loop prevention both
// route here.
type RejectEgress struct {
	delay func() time.Duration
}

// NewFixedReject builds a RejectEgress that waits exactly d before
// failing.
func NewFixedReject(d time.Duration) *RejectEgress {
	return &RejectEgress{delay: func() time.Duration { return d }}
}

// NewRandomReject builds a RejectEgress that waits a uniformly random
// duration in [0, max) before failing (used for replay defence, so a
// probing client cannot distinguish "replayed" from "merely slow").
func NewRandomReject(max time.Duration) *RejectEgress {
	if max <= 0 {
		return NewFixedReject(0)
	}
	return &RejectEgress{delay: func() time.Duration { return time.Duration(rand.Int63n(int64(max))) }}
}

func (r *RejectEgress) Connect(ctx context.Context, _ endpoint.Endpoint, _ []endpoint.Endpoint) error {
	select {
	case <-time.After(r.delay()):
	case <-ctx.Done():
		return ctx.Err()
	}
	return adapter.New(adapter.ConnFailure, "connection rejected")
}

func (r *RejectEgress) Recv(context.Context, []byte) (int, error) {
	return 0, adapter.New(adapter.ConnFailure, "reject egress has no stream")
}

func (r *RejectEgress) Send(context.Context, []byte) error {
	return adapter.New(adapter.ConnFailure, "reject egress has no stream")
}

func (r *RejectEgress) Close() error    { return nil }
func (r *RejectEgress) Readable() bool  { return false }
func (r *RejectEgress) Writable() bool  { return false }

var _ adapter.Egress = (*Egress)(nil)
var _ adapter.Egress = (*RejectEgress)(nil)

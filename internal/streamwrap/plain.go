// Package streamwrap implements the composable TLS and WebSocket stream
// layers: decorators over a raw net.Conn (or over each
// other) that all satisfy adapter.Stream, so any ingress/egress adapter
// can be stacked underneath either or both without caring which.
package streamwrap

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/pichi-router/pichi-go/internal/buffer"
)

// Plain adapts a raw net.Conn to adapter.Stream: the base layer every
// protocol adapter's transport ultimately bottoms out at, whether that
// net.Conn is a bare TCP socket or itself a *tls.Conn (TLS already
// satisfies net.Conn, so wrapping one in Plain is how TLS-under-anything
// composes; see tls.go).
type Plain struct {
	Conn   net.Conn
	cache  buffer.Cache
	closed atomic.Bool
}

// NewPlain wraps conn.
func NewPlain(conn net.Conn) *Plain {
	return &Plain{Conn: conn}
}

// Unread pushes back bytes already consumed from Conn (e.g. the remainder
// of a handshake read) so the next Recv returns them before touching the
// socket again.
func (p *Plain) Unread(b []byte) {
	p.cache.Fill(b)
}

func (p *Plain) Recv(ctx context.Context, buf []byte) (int, error) {
	if !p.cache.Empty() {
		return p.cache.Drain(buf), nil
	}
	if dl, ok := ctx.Deadline(); ok {
		p.Conn.SetReadDeadline(dl)
	} else {
		p.Conn.SetReadDeadline(time.Time{})
	}
	return p.Conn.Read(buf)
}

func (p *Plain) Send(ctx context.Context, buf []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		p.Conn.SetWriteDeadline(dl)
	} else {
		p.Conn.SetWriteDeadline(time.Time{})
	}
	_, err := p.Conn.Write(buf)
	return err
}

func (p *Plain) Close() error {
	p.closed.Store(true)
	return p.Conn.Close()
}

func (p *Plain) Readable() bool { return !p.closed.Load() || !p.cache.Empty() }
func (p *Plain) Writable() bool { return !p.closed.Load() }

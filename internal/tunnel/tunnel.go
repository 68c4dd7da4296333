// Package tunnel implements the Tunnel ingress: a protocol-less listener
// whose destination is fixed at configuration time rather than read from
// the client. It accepts any raw TCP connection and immediately treats it
// as destined for one of a configured list of destinations, chosen by the
// shared balancer. This is the shape used for simple port-forwarding
// rules that don't carry a client-chosen target.
package tunnel

import (
	"context"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/balancer"
	"github.com/pichi-router/pichi-go/internal/endpoint"
)

// Ingress wraps a raw transport with no handshake of its own: ReadRemote
// immediately yields one of the configured destinations without consuming
// any bytes from the client.
//
// The balancer is owned by the persistent ingress entry, not by this
// per-connection Ingress, so RoundRobin/LeastConn state survives across
// connections. Constructing a fresh Balancer per connection here would
// reset cursor and useCnt on every accept.
type Ingress struct {
	transport adapter.Stream
	balancer  *balancer.Balancer[endpoint.Endpoint]

	handle   balancer.Handle
	selected bool
	released bool
}

// NewIngress builds a Tunnel ingress over transport that selects its
// destination from b, a Balancer shared across every connection accepted on
// the same ingress.
func NewIngress(transport adapter.Stream, b *balancer.Balancer[endpoint.Endpoint]) *Ingress {
	return &Ingress{transport: transport, balancer: b}
}

// ReadRemote selects and returns the next destination via the balancer; no
// bytes are read from transport.
func (in *Ingress) ReadRemote(context.Context) (endpoint.Endpoint, error) {
	dst, handle := in.balancer.Select()
	in.handle = handle
	in.selected = true
	return dst, nil
}

// ReadIV is always nil: the Tunnel ingress carries no IV/salt.
func (in *Ingress) ReadIV(context.Context) ([]byte, error) { return nil, nil }

// Confirm is a no-op: there is no client handshake to acknowledge.
func (in *Ingress) Confirm(context.Context) error { return nil }

// Disconnect releases the balancer handle Select issued and otherwise does
// nothing; the Tunnel protocol has no client-visible error signaling.
func (in *Ingress) Disconnect(context.Context, adapter.ErrorKind) {
	in.release()
}

// release returns this connection's handle to the shared balancer exactly
// once, whichever of Disconnect/Close reaches it first: session.Handle
// always runs Close on teardown but only calls Disconnect on error paths,
// so Close is what releases the handle on a connection that ran to
// completion successfully.
func (in *Ingress) release() {
	if !in.selected || in.released {
		return
	}
	in.released = true
	in.balancer.Release(in.handle)
}

func (in *Ingress) Recv(ctx context.Context, buf []byte) (int, error) {
	return in.transport.Recv(ctx, buf)
}

func (in *Ingress) Send(ctx context.Context, buf []byte) error {
	return in.transport.Send(ctx, buf)
}

func (in *Ingress) Close() error {
	in.release()
	return in.transport.Close()
}
func (in *Ingress) Readable() bool { return in.transport.Readable() }
func (in *Ingress) Writable() bool { return in.transport.Writable() }

var _ adapter.Ingress = (*Ingress)(nil)

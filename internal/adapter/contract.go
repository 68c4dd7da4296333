package adapter

import (
	"context"

	"github.com/pichi-router/pichi-go/internal/endpoint"
)

// Stream is the byte-stream contract both ingress and egress adapters
// satisfy. Adapters may buffer bytes read past their handshake boundary,
// so Readable means "either the underlying socket is open or the internal
// read cache is non-empty".
type Stream interface {
	// Recv reads up to len(buf) bytes into buf, returning the number read.
	Recv(ctx context.Context, buf []byte) (int, error)
	// Send writes buf in full.
	Send(ctx context.Context, buf []byte) error
	// Close tears down the adapter's owned transport socket.
	Close() error
	// Readable reports whether a further Recv could produce data.
	Readable() bool
	// Writable reports whether a further Send could succeed.
	Writable() bool
}

// Ingress is the inbound side of a session: it terminates a client's
// handshake and exposes a Stream once confirmed.
type Ingress interface {
	Stream

	// ReadRemote parses the client's handshake and returns the requested
	// destination endpoint.
	ReadRemote(ctx context.Context) (endpoint.Endpoint, error)
	// ReadIV returns the Shadowsocks IV/salt observed during the
	// handshake, or nil for protocols that don't carry one.
	ReadIV(ctx context.Context) ([]byte, error)
	// Confirm tells the client the destination was reached.
	Confirm(ctx context.Context) error
	// Disconnect communicates kind to the client in a protocol-appropriate
	// way and is always best-effort.
	Disconnect(ctx context.Context, kind ErrorKind)
}

// Egress is the outbound side of a session: it originates a connection to
// a chosen destination through a proxy protocol (or directly).
type Egress interface {
	Stream

	// Connect establishes the outbound session to remote. resolved holds
	// the (possibly empty) DNS resolution of remote, if the caller
	// performed one.
	Connect(ctx context.Context, remote endpoint.Endpoint, resolved []endpoint.Endpoint) error
}

package shadowsocks

import (
	"context"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/endpoint"
	"github.com/pichi-router/pichi-go/internal/sscrypto"
)

// Ingress terminates a Shadowsocks client: the request direction
// (client -> server) is decrypted with a decryptor seeded from the IV/salt
// the client sends; the response direction (server -> client) is
// encrypted with a freshly generated IV/salt emitted on first Send.
type Ingress struct {
	transport    adapter.Stream
	method       sscrypto.Method
	presharedKey []byte

	cr *cryptoReader
	cw *cryptoWriter
}

// NewIngress wraps transport (already TLS/WS-layered if configured) as a
// Shadowsocks ingress for method, keyed by presharedKey (see
// sscrypto.DeriveKey).
func NewIngress(transport adapter.Stream, method sscrypto.Method, presharedKey []byte) *Ingress {
	return &Ingress{
		transport:    transport,
		method:       method,
		presharedKey: presharedKey,
		cr:           &cryptoReader{transport: transport, dec: newDecryptor(method, presharedKey)},
	}
}

// ReadIV reads the client's IV/salt exactly once, for the session
// orchestrator to consult the replay cache with
// before ReadRemote is ever called.
func (in *Ingress) ReadIV(ctx context.Context) ([]byte, error) {
	return in.cr.ensureIV(ctx)
}

// ReadRemote decrypts and parses the endpoint the client sent as its first
// plaintext payload.
func (in *Ingress) ReadRemote(ctx context.Context) (endpoint.Endpoint, error) {
	if !in.cr.dec.ivSet {
		if _, err := in.cr.ensureIV(ctx); err != nil {
			return endpoint.Endpoint{}, err
		}
	}
	return endpoint.Parse(in.cr.endpointReader(ctx))
}

// Confirm is a no-op: Shadowsocks carries no explicit handshake reply.
func (in *Ingress) Confirm(context.Context) error { return nil }

// Disconnect is silent: a Shadowsocks client that fails authentication or
// protocol parsing simply sees the TCP connection close with no
// distinguishing response.
func (in *Ingress) Disconnect(context.Context, adapter.ErrorKind) {}

func (in *Ingress) Recv(ctx context.Context, buf []byte) (int, error) {
	return in.cr.recv(ctx, buf)
}

func (in *Ingress) Send(ctx context.Context, buf []byte) error {
	if in.cw == nil {
		enc, err := newEncryptor(in.method, in.presharedKey)
		if err != nil {
			return err
		}
		in.cw = &cryptoWriter{transport: in.transport, enc: enc}
	}
	return in.cw.send(ctx, buf)
}

func (in *Ingress) Close() error { return in.transport.Close() }

func (in *Ingress) Readable() bool {
	return in.transport.Readable() || !in.cr.pending.Empty()
}

func (in *Ingress) Writable() bool { return in.transport.Writable() }

var _ adapter.Ingress = (*Ingress)(nil)

package shadowsocks

import (
	"context"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/endpoint"
	"github.com/pichi-router/pichi-go/internal/sscrypto"
)

// maxSerializedEndpoint bounds the worst-case endpoint.Serialize output:
// a 255-byte domain name plus its tag byte, length byte and 2-byte port
// is 4+255 bytes; the constant leaves 2 bytes of slack on top.
const maxSerializedEndpoint = 4 + 255 + 2

// Egress speaks Shadowsocks to an upstream Shadowsocks server: the request
// direction (client -> server) is encrypted with a freshly generated
// IV/salt emitted on first Send, carrying the destination endpoint as its
// first plaintext payload; the response direction (server -> client) is
// decrypted with a decryptor seeded from the server's IV/salt.
type Egress struct {
	transport    adapter.Stream
	method       sscrypto.Method
	presharedKey []byte

	cr *cryptoReader
	cw *cryptoWriter
}

// NewEgress wraps an already-connected transport (raw TCP to the upstream
// Shadowsocks server, optionally TLS/WS-layered) as a Shadowsocks egress.
func NewEgress(transport adapter.Stream, method sscrypto.Method, presharedKey []byte) *Egress {
	return &Egress{
		transport:    transport,
		method:       method,
		presharedKey: presharedKey,
		cr:           &cryptoReader{transport: transport, dec: newDecryptor(method, presharedKey)},
	}
}

// Connect sends the serialized destination endpoint as the first
// encrypted payload on the request direction.
func (e *Egress) Connect(ctx context.Context, remote endpoint.Endpoint, _ []endpoint.Endpoint) error {
	enc, err := newEncryptor(e.method, e.presharedKey)
	if err != nil {
		return err
	}
	e.cw = &cryptoWriter{transport: e.transport, enc: enc}

	buf := make([]byte, maxSerializedEndpoint)
	n, err := endpoint.Serialize(remote, buf)
	if err != nil {
		return err
	}
	if err := e.cw.send(ctx, buf[:n]); err != nil {
		return adapter.Wrap(adapter.ConnFailure, "shadowsocks egress endpoint send failed", err)
	}
	return nil
}

func (e *Egress) Recv(ctx context.Context, buf []byte) (int, error) {
	if !e.cr.dec.ivSet {
		if _, err := e.cr.ensureIV(ctx); err != nil {
			return 0, err
		}
	}
	return e.cr.recv(ctx, buf)
}

func (e *Egress) Send(ctx context.Context, buf []byte) error { return e.cw.send(ctx, buf) }
func (e *Egress) Close() error                               { return e.transport.Close() }
func (e *Egress) Readable() bool                             { return e.transport.Readable() || !e.cr.pending.Empty() }
func (e *Egress) Writable() bool                             { return e.transport.Writable() }

var _ adapter.Egress = (*Egress)(nil)

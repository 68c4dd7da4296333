package trojan

import (
	"context"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/endpoint"
)

// maxSerializedEndpoint bounds endpoint.Serialize's worst case: a 255-byte
// domain name plus its tag byte, length byte and 2-byte port is 4+255
// bytes; the constant leaves 2 bytes of slack on top.
const maxSerializedEndpoint = 4 + 255 + 2

// Egress originates a Trojan connection over an already-TLS-connected
// transport: it sends the same preamble an ingress expects, then
// streams.
type Egress struct {
	transport adapter.Stream
	password  string
}

// NewEgress wraps an already-TLS-connected transport as a Trojan egress
// authenticating with password (plaintext; hashed on the wire).
func NewEgress(transport adapter.Stream, password string) *Egress {
	return &Egress{transport: transport, password: password}
}

// Connect sends the Trojan request preamble:
//
//	hex(SHA224(password)) CRLF 0x01 endpoint-bytes CRLF
func (e *Egress) Connect(ctx context.Context, remote endpoint.Endpoint, _ []endpoint.Endpoint) error {
	epBuf := make([]byte, maxSerializedEndpoint)
	n, err := endpoint.Serialize(remote, epBuf)
	if err != nil {
		return err
	}

	out := make([]byte, 0, pwdLen+2+1+n+2)
	out = append(out, HashPassword(e.password)...)
	out = append(out, crlf[:]...)
	out = append(out, cmdConnect)
	out = append(out, epBuf[:n]...)
	out = append(out, crlf[:]...)

	if err := e.transport.Send(ctx, out); err != nil {
		return adapter.Wrap(adapter.ConnFailure, "trojan egress preamble send failed", err)
	}
	return nil
}

func (e *Egress) Recv(ctx context.Context, buf []byte) (int, error) { return e.transport.Recv(ctx, buf) }
func (e *Egress) Send(ctx context.Context, buf []byte) error        { return e.transport.Send(ctx, buf) }
func (e *Egress) Close() error                                      { return e.transport.Close() }
func (e *Egress) Readable() bool                                    { return e.transport.Readable() }
func (e *Egress) Writable() bool                                    { return e.transport.Writable() }

var _ adapter.Egress = (*Egress)(nil)

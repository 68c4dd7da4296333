package socks5

import (
	"context"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/endpoint"
)

// Credential is the optional RFC 1929 username/password the egress
// presents to the upstream SOCKS5 server.
type Credential struct {
	User string
	Pass string
}

// Egress speaks SOCKS5 as a client to an upstream SOCKS5 proxy server,
// asking it to CONNECT to the real destination.
type Egress struct {
	transport adapter.Stream
	cred      *Credential
}

// NewEgress wraps an already-connected transport (raw TCP to the upstream
// SOCKS5 server, optionally TLS/WS-layered) as a SOCKS5 egress.
func NewEgress(transport adapter.Stream, cred *Credential) *Egress {
	return &Egress{transport: transport, cred: cred}
}

// Connect performs the SOCKS5 client handshake against the upstream
// server already reachable over e.transport, then asks it to CONNECT to
// remote.
func (e *Egress) Connect(ctx context.Context, remote endpoint.Endpoint, _ []endpoint.Endpoint) error {
	methods := []byte{methodNoAuth}
	if e.cred != nil {
		methods = []byte{methodUserPass}
	}
	greeting := append([]byte{ver5, byte(len(methods))}, methods...)
	if err := e.transport.Send(ctx, greeting); err != nil {
		return adapter.Wrap(adapter.ConnFailure, "socks5 egress greeting send failed", err)
	}

	var sel [2]byte
	if err := readFull(ctx, e.transport, sel[:]); err != nil {
		return adapter.Wrap(adapter.ConnFailure, "socks5 egress method selection read failed", err)
	}
	if sel[0] != ver5 || sel[1] == methodNoAcceptable {
		return adapter.New(adapter.ConnFailure, "upstream socks5 server rejected all auth methods")
	}

	if sel[1] == methodUserPass {
		if e.cred == nil {
			return adapter.New(adapter.ConnFailure, "upstream socks5 server requires credentials we don't have")
		}
		if err := e.authenticate(ctx); err != nil {
			return err
		}
	}

	return e.sendConnectRequest(ctx, remote)
}

func (e *Egress) authenticate(ctx context.Context) error {
	req := []byte{authVer1}
	req = append(req, byte(len(e.cred.User)))
	req = append(req, e.cred.User...)
	req = append(req, byte(len(e.cred.Pass)))
	req = append(req, e.cred.Pass...)
	if err := e.transport.Send(ctx, req); err != nil {
		return adapter.Wrap(adapter.ConnFailure, "socks5 egress auth send failed", err)
	}

	var resp [2]byte
	if err := readFull(ctx, e.transport, resp[:]); err != nil {
		return adapter.Wrap(adapter.ConnFailure, "socks5 egress auth response read failed", err)
	}
	if resp[1] != authStatus {
		return adapter.New(adapter.ConnFailure, "upstream socks5 server rejected credentials")
	}
	return nil
}

func (e *Egress) sendConnectRequest(ctx context.Context, remote endpoint.Endpoint) error {
	buf := make([]byte, 3+4+255+2) // header + worst-case domain endpoint
	buf[0], buf[1], buf[2] = ver5, cmdConnect, 0x00
	n, err := endpoint.Serialize(remote, buf[3:])
	if err != nil {
		return err
	}
	if err := e.transport.Send(ctx, buf[:3+n]); err != nil {
		return adapter.Wrap(adapter.ConnFailure, "socks5 egress connect request send failed", err)
	}

	var hdr [3]byte
	if err := readFull(ctx, e.transport, hdr[:]); err != nil {
		return adapter.Wrap(adapter.ConnFailure, "socks5 egress reply header read failed", err)
	}
	if hdr[0] != ver5 {
		return adapter.New(adapter.ConnFailure, "bad socks5 reply version")
	}
	if hdr[1] != repOK {
		return adapter.New(adapter.ConnFailure, "upstream socks5 server refused connect")
	}
	// Consume the bound-address endpoint; its contents are conventionally
	// 0.0.0.0:0 and not otherwise useful.
	if _, err := endpoint.Parse(endpointReader(ctx, e.transport)); err != nil {
		return adapter.Wrap(adapter.ConnFailure, "socks5 egress reply address parse failed", err)
	}
	return nil
}

func (e *Egress) Recv(ctx context.Context, buf []byte) (int, error) { return e.transport.Recv(ctx, buf) }
func (e *Egress) Send(ctx context.Context, buf []byte) error        { return e.transport.Send(ctx, buf) }
func (e *Egress) Close() error                                      { return e.transport.Close() }
func (e *Egress) Readable() bool                                    { return e.transport.Readable() }
func (e *Egress) Writable() bool                                    { return e.transport.Writable() }

var _ adapter.Egress = (*Egress)(nil)

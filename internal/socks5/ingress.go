package socks5

import (
	"context"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/endpoint"
)

// Ingress terminates a SOCKS5 client (RFC 1928 + RFC 1929), CMD=CONNECT
// only.
type Ingress struct {
	transport adapter.Stream
	auth      Authenticator

	pastGreeting bool
	pastRequest  bool
}

// NewIngress wraps transport (already TLS/WS-layered if configured) as a
// SOCKS5 ingress. auth may be nil, meaning no-auth only.
func NewIngress(transport adapter.Stream, auth Authenticator) *Ingress {
	return &Ingress{transport: transport, auth: auth}
}

func (in *Ingress) write(ctx context.Context, buf []byte) {
	_ = in.transport.Send(ctx, buf)
}

// ReadIV is a no-op for SOCKS5: it carries no Shadowsocks IV.
func (in *Ingress) ReadIV(context.Context) ([]byte, error) { return nil, nil }

// ReadRemote performs the greeting, optional username/password
// sub-negotiation, and CONNECT request parse, returning the requested
// destination.
func (in *Ingress) ReadRemote(ctx context.Context) (endpoint.Endpoint, error) {
	var hdr [2]byte
	if err := readFull(ctx, in.transport, hdr[:]); err != nil {
		return endpoint.Endpoint{}, adapter.Wrap(adapter.BadProto, "socks5 greeting read failed", err)
	}
	if hdr[0] != ver5 {
		return endpoint.Endpoint{}, adapter.New(adapter.BadProto, "unsupported socks version")
	}
	nMethods := int(hdr[1])
	methods := make([]byte, nMethods)
	if err := readFull(ctx, in.transport, methods); err != nil {
		return endpoint.Endpoint{}, adapter.Wrap(adapter.BadProto, "socks5 method list read failed", err)
	}

	method := in.selectMethod(methods)
	if method == methodNoAcceptable {
		return endpoint.Endpoint{}, adapter.New(adapter.BadAuthMethod, "no acceptable socks5 auth method")
	}
	in.write(ctx, []byte{ver5, method})
	in.pastGreeting = true

	if method == methodUserPass {
		if err := in.authenticate(ctx); err != nil {
			return endpoint.Endpoint{}, err
		}
	}

	remote, err := in.readRequest(ctx)
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	in.pastRequest = true
	return remote, nil
}

func (in *Ingress) selectMethod(offered []byte) byte {
	hasUserPass := false
	hasNoAuth := false
	for _, m := range offered {
		switch m {
		case methodUserPass:
			hasUserPass = true
		case methodNoAuth:
			hasNoAuth = true
		}
	}
	if in.auth != nil {
		if hasUserPass {
			return methodUserPass
		}
		return methodNoAcceptable
	}
	if hasNoAuth {
		return methodNoAuth
	}
	return methodNoAcceptable
}

func (in *Ingress) authenticate(ctx context.Context) error {
	var hdr [2]byte
	if err := readFull(ctx, in.transport, hdr[:]); err != nil {
		return adapter.Wrap(adapter.BadProto, "socks5 auth header read failed", err)
	}
	if hdr[0] != authVer1 {
		return adapter.New(adapter.BadProto, "unsupported socks5 auth sub-negotiation version")
	}
	if hdr[1] == 0 {
		return adapter.New(adapter.BadProto, "zero-length socks5 username")
	}
	uname := make([]byte, hdr[1])
	if err := readFull(ctx, in.transport, uname); err != nil {
		return adapter.Wrap(adapter.BadProto, "socks5 username read failed", err)
	}
	var plenBuf [1]byte
	if err := readFull(ctx, in.transport, plenBuf[:]); err != nil {
		return adapter.Wrap(adapter.BadProto, "socks5 password length read failed", err)
	}
	passwd := make([]byte, plenBuf[0])
	if err := readFull(ctx, in.transport, passwd); err != nil {
		return adapter.Wrap(adapter.BadProto, "socks5 password read failed", err)
	}

	if !in.auth(string(uname), string(passwd)) {
		return adapter.New(adapter.Unauthenticated, "socks5 credential mismatch")
	}
	in.write(ctx, []byte{authVer1, authStatus})
	return nil
}

func (in *Ingress) readRequest(ctx context.Context) (endpoint.Endpoint, error) {
	var hdr [3]byte
	if err := readFull(ctx, in.transport, hdr[:]); err != nil {
		return endpoint.Endpoint{}, adapter.Wrap(adapter.BadProto, "socks5 request header read failed", err)
	}
	if hdr[0] != ver5 {
		return endpoint.Endpoint{}, adapter.New(adapter.BadProto, "unsupported socks version in request")
	}
	if hdr[1] != cmdConnect {
		return endpoint.Endpoint{}, adapter.New(adapter.BadProto, "only CONNECT is supported")
	}
	return endpoint.Parse(endpointReader(ctx, in.transport))
}

// Confirm replies with RFC 1928's success reply, using the conventional
// 0.0.0.0:0 bound-address placeholder.
func (in *Ingress) Confirm(ctx context.Context) error {
	reply := []byte{ver5, repOK, 0x00, 0x01, 0, 0, 0, 0, 0, 0}
	return in.transport.Send(ctx, reply)
}

// Disconnect writes the protocol-appropriate rejection for kind, matching
// however far the handshake had progressed.
func (in *Ingress) Disconnect(ctx context.Context, kind adapter.ErrorKind) {
	switch {
	case kind == adapter.BadAuthMethod && !in.pastGreeting:
		in.write(ctx, []byte{ver5, methodNoAcceptable})
	case kind == adapter.Unauthenticated:
		in.write(ctx, []byte{authVer1, 0xff})
	case !in.pastRequest:
		in.write(ctx, []byte{ver5, repHostUnreachable, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
	default:
		in.write(ctx, []byte{ver5, repGeneralFailure, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
	}
}

func (in *Ingress) Recv(ctx context.Context, buf []byte) (int, error) { return in.transport.Recv(ctx, buf) }
func (in *Ingress) Send(ctx context.Context, buf []byte) error        { return in.transport.Send(ctx, buf) }
func (in *Ingress) Close() error                                      { return in.transport.Close() }
func (in *Ingress) Readable() bool                                    { return in.transport.Readable() }
func (in *Ingress) Writable() bool                                    { return in.transport.Writable() }

var _ adapter.Ingress = (*Ingress)(nil)

package httpproxy

import (
	"bufio"
	"bytes"
	"context"
	"net/http"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/endpoint"
)

// Egress speaks HTTP as a client to an upstream HTTP proxy server,
// attempting CONNECT tunnel mode first and falling back to relay mode
// over a freshly redialed connection on any non-2xx response.
//
// Unlike socks5.Egress, which reuses a single already-connected
// transport, HTTP egress may need to discard a used-up connection and
// reopen a fresh one for the relay fallback, so the caller supplies a
// dial callback rather than a ready transport.
type Egress struct {
	dial func(ctx context.Context) (adapter.Stream, error)
	cred *Credential

	transport adapter.Stream
	recv      func(ctx context.Context, buf []byte) (int, error)
	send      func(ctx context.Context, buf []byte) error
}

// NewEgress constructs an HTTP egress. dial opens a fresh connection
// (already TLS/WS-layered if configured) to the upstream proxy; it may
// be called twice per Connect if tunnel mode is rejected.
func NewEgress(dial func(ctx context.Context) (adapter.Stream, error), cred *Credential) *Egress {
	return &Egress{dial: dial, cred: cred}
}

func (e *Egress) Connect(ctx context.Context, remote endpoint.Endpoint, _ []endpoint.Endpoint) error {
	transport, err := e.dial(ctx)
	if err != nil {
		return adapter.Wrap(adapter.ConnFailure, "http egress dial failed", err)
	}
	e.transport = transport

	ok, err := e.tryTunnel(ctx, remote)
	if err != nil {
		return err
	}
	if ok {
		e.recv = func(ctx context.Context, buf []byte) (int, error) { return e.transport.Recv(ctx, buf) }
		e.send = func(ctx context.Context, buf []byte) error { return e.transport.Send(ctx, buf) }
		return nil
	}

	// Tunnel request rejected: the socket has already had a CONNECT
	// request written to it, so redial cleanly for relay mode.
	_ = e.transport.Close()
	transport, err = e.dial(ctx)
	if err != nil {
		return adapter.Wrap(adapter.ConnFailure, "http egress relay redial failed", err)
	}
	e.transport = transport
	e.recv = func(ctx context.Context, buf []byte) (int, error) { return e.transport.Recv(ctx, buf) }
	e.send = e.relaySend
	return nil
}

func (e *Egress) tryTunnel(ctx context.Context, remote endpoint.Endpoint) (bool, error) {
	req, err := http.NewRequest(http.MethodConnect, "", nil)
	if err != nil {
		return false, adapter.Wrap(adapter.Misc, "failed building CONNECT request", err)
	}
	authority := remote.Host + ":" + remote.Port
	req.Host = authority
	if e.cred != nil {
		req.Header.Set("Proxy-Authorization", encodeBasicAuth(e.cred))
	}
	addCloseHeaders(req.Header)

	var buf bytes.Buffer
	buf.WriteString("CONNECT " + authority + " HTTP/1.1\r\n")
	buf.WriteString("Host: " + authority + "\r\n")
	_ = req.Header.Write(&buf)
	buf.WriteString("\r\n")

	if err := e.transport.Send(ctx, buf.Bytes()); err != nil {
		return false, adapter.Wrap(adapter.ConnFailure, "failed sending CONNECT request", err)
	}

	br := bufio.NewReader(streamReader{ctx: ctx, s: e.transport})
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		return false, adapter.Wrap(adapter.ConnFailure, "failed reading CONNECT response", err)
	}
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// relaySend rewrites the outbound request header on the first call
// (adding close headers and injecting the configured Proxy-Authorization
// credential), then becomes a raw passthrough.
func (e *Egress) relaySend(ctx context.Context, buf []byte) error {
	br := bufio.NewReader(bytes.NewReader(buf))
	req, err := http.ReadRequest(br)
	if err != nil {
		// Didn't fit a whole header in one buf: pass through raw rather
		// than buffering indefinitely.
		e.send = func(ctx context.Context, buf []byte) error { return e.transport.Send(ctx, buf) }
		return e.transport.Send(ctx, buf)
	}
	addCloseHeaders(req.Header)
	suppressDefaultUserAgent(req)
	if e.cred != nil {
		req.Header.Set("Proxy-Authorization", encodeBasicAuth(e.cred))
	}
	req.RequestURI = ""
	req.Body = nil

	var out bytes.Buffer
	if err := req.Write(&out); err != nil {
		return adapter.Wrap(adapter.BadProto, "failed re-serializing relay request", err)
	}
	leftover, _ := bufferedBody(br)
	out.Write(leftover)

	e.send = func(ctx context.Context, buf []byte) error { return e.transport.Send(ctx, buf) }
	return e.transport.Send(ctx, out.Bytes())
}

func (e *Egress) Recv(ctx context.Context, buf []byte) (int, error) { return e.recv(ctx, buf) }
func (e *Egress) Send(ctx context.Context, buf []byte) error        { return e.send(ctx, buf) }

// Close tolerates a nil transport: the orchestrator closes the egress even
// when Connect failed before the first dial completed.
func (e *Egress) Close() error {
	if e.transport == nil {
		return nil
	}
	return e.transport.Close()
}

func (e *Egress) Readable() bool { return e.transport != nil && e.transport.Readable() }
func (e *Egress) Writable() bool { return e.transport != nil && e.transport.Writable() }

var _ adapter.Egress = (*Egress)(nil)

package httpproxy

import (
	"bufio"
	"bytes"
	"context"
	"net/http"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/buffer"
	"github.com/pichi-router/pichi-go/internal/endpoint"
)

// Authenticator validates the client's Proxy-Authorization credentials.
// A nil Authenticator means no-auth required.
type Authenticator func(user, pass string) bool

// Ingress terminates an HTTP proxy client in either tunnel (CONNECT) or
// relay mode, selected by the first request's method.
type Ingress struct {
	transport adapter.Stream
	auth      Authenticator

	tunnel bool
	recv   func(ctx context.Context, buf []byte) (int, error)
	send   func(ctx context.Context, buf []byte) error

	// relay mode state: the rewritten request header, replayed on the
	// first Recv call, and the bufio.Reader's leftover buffered bytes.
	relayHeader   buffer.Cache
	stickyBody    buffer.Cache
	respRewritten bool
}

// NewIngress wraps transport (already TLS/WS-layered if configured) as an
// HTTP proxy ingress. auth may be nil, meaning no-auth only.
func NewIngress(transport adapter.Stream, auth Authenticator) *Ingress {
	return &Ingress{transport: transport, auth: auth}
}

// ReadIV is a no-op: HTTP carries no Shadowsocks IV.
func (in *Ingress) ReadIV(context.Context) ([]byte, error) { return nil, nil }

// ReadRemote parses the first request line and headers, dispatching to
// tunnel or relay mode, and returns the requested destination.
func (in *Ingress) ReadRemote(ctx context.Context) (endpoint.Endpoint, error) {
	br := bufio.NewReader(streamReader{ctx: ctx, s: in.transport})
	req, err := http.ReadRequest(br)
	if err != nil {
		return endpoint.Endpoint{}, adapter.Wrap(adapter.BadProto, "malformed HTTP request", err)
	}

	if in.auth != nil {
		user, pass, aerr := decodeBasicAuth(req.Header.Get("Proxy-Authorization"))
		if aerr != nil {
			return endpoint.Endpoint{}, aerr
		}
		if !in.auth(user, pass) {
			return endpoint.Endpoint{}, adapter.New(adapter.Unauthenticated, "proxy credential mismatch")
		}
		req.Header.Del("Proxy-Authorization")
	}

	sticky, err := bufferedBody(br)
	if err != nil {
		return endpoint.Endpoint{}, adapter.Wrap(adapter.BadProto, "failed draining sticky body", err)
	}

	if req.Method == http.MethodConnect {
		return in.setupTunnel(req, sticky)
	}
	return in.setupRelay(req, sticky)
}

func (in *Ingress) setupTunnel(req *http.Request, sticky []byte) (endpoint.Endpoint, error) {
	in.tunnel = true
	in.stickyBody.Fill(sticky)
	in.recv = func(ctx context.Context, buf []byte) (int, error) {
		if !in.stickyBody.Empty() {
			return in.stickyBody.Drain(buf), nil
		}
		return in.transport.Recv(ctx, buf)
	}
	in.send = func(ctx context.Context, buf []byte) error {
		return in.transport.Send(ctx, buf)
	}

	host, port := hostPort(req.URL.Host, "443")
	return endpoint.New(host, port), nil
}

func (in *Ingress) setupRelay(req *http.Request, sticky []byte) (endpoint.Endpoint, error) {
	var host, port string
	if req.URL.IsAbs() {
		host, port = hostPort(req.URL.Host, "80")
		req.Host = req.URL.Host
		req.URL.Scheme = ""
		req.URL.Host = ""
	} else {
		if req.Host == "" {
			return endpoint.Endpoint{}, adapter.New(adapter.BadProto, "relative target without Host header")
		}
		host, port = hostPort(req.Host, "80")
	}

	addCloseHeaders(req.Header)
	suppressDefaultUserAgent(req)
	req.RequestURI = ""
	req.Body = nil

	var hdr bytes.Buffer
	if err := req.Write(&hdr); err != nil {
		return endpoint.Endpoint{}, adapter.Wrap(adapter.BadProto, "failed re-serializing request", err)
	}
	in.relayHeader.Fill(hdr.Bytes())
	in.stickyBody.Fill(sticky)

	in.recv = func(ctx context.Context, buf []byte) (int, error) {
		if !in.relayHeader.Empty() {
			return in.relayHeader.Drain(buf), nil
		}
		if !in.stickyBody.Empty() {
			return in.stickyBody.Drain(buf), nil
		}
		in.recv = in.transport.Recv
		return in.transport.Recv(ctx, buf)
	}
	in.send = in.relaySend

	return endpoint.New(host, port), nil
}

// relaySend rewrites the egress's response header on the first call
// (adding close headers unless Upgrade), then becomes a raw passthrough.
func (in *Ingress) relaySend(ctx context.Context, buf []byte) error {
	if in.respRewritten {
		return in.transport.Send(ctx, buf)
	}

	br := bufio.NewReader(bytes.NewReader(buf))
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		// Response header didn't fit in a single buf; fall back to raw
		// passthrough rather than buffering indefinitely.
		in.respRewritten = true
		return in.transport.Send(ctx, buf)
	}
	addCloseHeaders(resp.Header)
	resp.Body = nil

	var out bytes.Buffer
	if err := resp.Write(&out); err != nil {
		return adapter.Wrap(adapter.BadProto, "failed re-serializing response", err)
	}
	leftover, _ := bufferedBody(br)
	out.Write(leftover)

	in.respRewritten = true
	in.send = func(ctx context.Context, buf []byte) error { return in.transport.Send(ctx, buf) }
	return in.transport.Send(ctx, out.Bytes())
}

// Confirm writes the tunnel-mode success response. Relay mode has no
// confirm step: the orchestrator's first Recv/Send pair already carries
// the rewritten request/response.
func (in *Ingress) Confirm(ctx context.Context) error {
	if !in.tunnel {
		return nil
	}
	const resp = "HTTP/1.1 200 Connection Established\r\nConnection: close\r\nProxy-Connection: close\r\n\r\n"
	return in.transport.Send(ctx, []byte(resp))
}

// Disconnect writes a best-effort error response; failures are
// suppressed.
func (in *Ingress) Disconnect(ctx context.Context, kind adapter.ErrorKind) {
	status, extra := statusFor(kind)
	resp := "HTTP/1.1 " + status + "\r\nConnection: close\r\n"
	if extra != "" {
		resp += extra + "\r\n"
	}
	resp += "\r\n"
	_ = in.transport.Send(ctx, []byte(resp))
}

func statusFor(kind adapter.ErrorKind) (status string, extraHeader string) {
	switch kind {
	case adapter.ConnFailure:
		return "504 Gateway Timeout", ""
	case adapter.BadAuthMethod:
		return "407 Proxy Authentication Required", "Proxy-Authenticate: Basic"
	case adapter.Unauthenticated:
		return "403 Forbidden", ""
	case adapter.BadProto:
		return "400 Bad Request", ""
	default:
		return "500 Internal Server Error", ""
	}
}

func (in *Ingress) Recv(ctx context.Context, buf []byte) (int, error) { return in.recv(ctx, buf) }
func (in *Ingress) Send(ctx context.Context, buf []byte) error        { return in.send(ctx, buf) }
func (in *Ingress) Close() error                                      { return in.transport.Close() }
func (in *Ingress) Readable() bool {
	return in.transport.Readable() || !in.stickyBody.Empty() || !in.relayHeader.Empty()
}
func (in *Ingress) Writable() bool { return in.transport.Writable() }

var _ adapter.Ingress = (*Ingress)(nil)

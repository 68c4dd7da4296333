package trojan

import (
	"context"
	"errors"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/buffer"
	"github.com/pichi-router/pichi-go/internal/endpoint"
)

// errMismatch marks a handshake byte that diverged from the expected
// Trojan request shape (bad length, unknown password, bad CR/LF, CMD != 1).
// It never escapes ReadRemote: it is the trigger for the masquerade
// fallback, not a reported error.
var errMismatch = errors.New("trojan: handshake mismatch")

// Ingress terminates a Trojan client over an already-TLS-terminated
// transport. On a valid handshake it behaves as an ordinary ingress; on
// any divergence it masquerades as an innocent HTTPS origin by silently
// tunneling everything already read to fallback.
type Ingress struct {
	transport adapter.Stream
	passwords map[string]struct{}
	fallback  endpoint.Endpoint

	received buffer.Cache
}

// NewIngress builds a Trojan ingress accepting any of passwords
// (plaintext; hashed internally) and masquerading to fallback on handshake
// failure. A zero-value fallback defaults to DefaultFallback.
func NewIngress(transport adapter.Stream, passwords []string, fallback endpoint.Endpoint) *Ingress {
	set := make(map[string]struct{}, len(passwords))
	for _, pwd := range passwords {
		set[HashPassword(pwd)] = struct{}{}
	}
	if fallback.Host == "" {
		fallback = DefaultFallback
	}
	return &Ingress{transport: transport, passwords: set, fallback: fallback}
}

// handshakeParser accumulates bytes read for the handshake so that, on
// mismatch, every byte seen so far can be replayed to the caller verbatim
// (the masquerade requires the probe to look like it reached a real
// server, not like the connection was rejected).
type handshakeParser struct {
	ctx       context.Context
	transport adapter.Stream
	buf       []byte
	pos       int
}

// need ensures at least n unread bytes are buffered, reading more from the
// transport as required. Used only once the handshake is already committed
// past the password check (the request's endpoint section may legitimately
// span more than one TCP segment).
func (p *handshakeParser) need(n int) error {
	chunk := make([]byte, 4096)
	for len(p.buf)-p.pos < n {
		nn, err := p.transport.Recv(p.ctx, chunk)
		if nn > 0 {
			p.buf = append(p.buf, chunk[:nn]...)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *handshakeParser) read(n int) ([]byte, error) {
	if err := p.need(n); err != nil {
		return nil, err
	}
	b := p.buf[p.pos : p.pos+n]
	p.pos += n
	return b, nil
}

func (p *handshakeParser) reader() endpoint.Reader {
	return func(dst []byte) error {
		b, err := p.read(len(dst))
		if err != nil {
			return err
		}
		copy(dst, b)
		return nil
	}
}

// ReadRemote reads the Trojan request in one initial chunk (to masquerade
// as a real HTTPS server the way the official client expects) and parses:
//
//	hex(SHA224(password))[56] CRLF 0x01 endpoint-bytes CRLF
//
// Any divergence (wrong length, unknown password, malformed CR/LF, or a
// CMD other than CONNECT) returns the configured fallback endpoint with a
// nil error, and preserves every byte read so far for subsequent Recv
// calls to replay.
func (in *Ingress) ReadRemote(ctx context.Context) (endpoint.Endpoint, error) {
	initial := make([]byte, 4096)
	n, err := in.transport.Recv(ctx, initial)
	if err != nil && n == 0 {
		return endpoint.Endpoint{}, err
	}

	p := &handshakeParser{ctx: ctx, transport: in.transport, buf: initial[:n]}

	remote, perr := in.parseHandshake(p)
	switch {
	case perr == nil:
		if p.pos < len(p.buf) {
			in.received.Fill(p.buf[p.pos:])
		}
		return remote, nil
	case errors.Is(perr, errMismatch):
		in.received.Fill(p.buf)
		return in.fallback, nil
	default:
		return endpoint.Endpoint{}, perr
	}
}

func (in *Ingress) parseHandshake(p *handshakeParser) (endpoint.Endpoint, error) {
	if len(p.buf) <= pwdLen+2 {
		return endpoint.Endpoint{}, errMismatch
	}

	pwd := string(p.buf[:pwdLen])
	if _, ok := in.passwords[pwd]; !ok {
		return endpoint.Endpoint{}, errMismatch
	}
	p.pos = pwdLen

	tail, err := p.read(2)
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	if tail[0] != crlf[0] || tail[1] != crlf[1] {
		return endpoint.Endpoint{}, errMismatch
	}

	cmd, err := p.read(1)
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	if cmd[0] != cmdConnect {
		return endpoint.Endpoint{}, errMismatch
	}

	remote, err := endpoint.Parse(p.reader())
	if err != nil {
		if adapter.KindOf(err) == adapter.BadProto {
			return endpoint.Endpoint{}, errMismatch
		}
		return endpoint.Endpoint{}, err
	}

	end, err := p.read(2)
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	if end[0] != crlf[0] || end[1] != crlf[1] {
		return endpoint.Endpoint{}, errMismatch
	}

	return remote, nil
}

// ReadIV is always nil: Trojan carries no IV/salt, so there is nothing for
// the orchestrator's replay check to consult.
func (in *Ingress) ReadIV(context.Context) ([]byte, error) { return nil, nil }

// Confirm is a no-op: a real HTTPS server doesn't acknowledge handshakes,
// and neither does its masquerade.
func (in *Ingress) Confirm(context.Context) error { return nil }

// Disconnect is a no-op: handshake failure already resolved to a fallback
// destination in ReadRemote rather than to an error, so the orchestrator
// should rarely call this; any later failure just closes the TLS socket.
func (in *Ingress) Disconnect(context.Context, adapter.ErrorKind) {}

func (in *Ingress) Recv(ctx context.Context, buf []byte) (int, error) {
	if !in.received.Empty() {
		return in.received.Drain(buf), nil
	}
	return in.transport.Recv(ctx, buf)
}

func (in *Ingress) Send(ctx context.Context, buf []byte) error {
	return in.transport.Send(ctx, buf)
}

func (in *Ingress) Close() error { return in.transport.Close() }

func (in *Ingress) Readable() bool {
	return !in.received.Empty() || in.transport.Readable()
}

func (in *Ingress) Writable() bool { return in.transport.Writable() }

var _ adapter.Ingress = (*Ingress)(nil)

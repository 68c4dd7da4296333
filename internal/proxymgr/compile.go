package proxymgr

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/balancer"
	"github.com/pichi-router/pichi-go/internal/config"
	"github.com/pichi-router/pichi-go/internal/direct"
	"github.com/pichi-router/pichi-go/internal/endpoint"
	"github.com/pichi-router/pichi-go/internal/httpproxy"
	"github.com/pichi-router/pichi-go/internal/shadowsocks"
	"github.com/pichi-router/pichi-go/internal/socks5"
	"github.com/pichi-router/pichi-go/internal/sscrypto"
	"github.com/pichi-router/pichi-go/internal/trojan"
	"github.com/pichi-router/pichi-go/internal/tunnel"
)

// dialTimeout bounds an egress's dial to its own upstream host:port,
// mirroring direct.DefaultDialTimeout.
const dialTimeout = 10 * time.Second

// buildIngress constructs the protocol adapter.Ingress for an accepted
// connection already wrapped in its configured TLS/WS transport, per
// vo.Type. tunnelBalancer is the entry's persistent balancer
// (non-nil exactly when vo.Type == "tunnel"), shared across every
// connection accepted on this ingress rather than rebuilt per connection.
func buildIngress(vo config.IngressVO, transport adapter.Stream, tunnelBalancer *balancer.Balancer[endpoint.Endpoint]) (adapter.Ingress, error) {
	opts := vo.Options
	switch vo.Type {
	case "http":
		return httpproxy.NewIngress(transport, authenticatorFrom(opts.Credential)), nil

	case "socks5":
		return socks5.NewIngress(transport, socks5Authenticator(opts.Credential)), nil

	case "shadowsocks":
		method, ok := sscrypto.ParseMethod(opts.Method)
		if !ok {
			return nil, adapter.New(adapter.SemanticError, "unknown shadowsocks method: "+opts.Method)
		}
		return shadowsocks.NewIngress(transport, method, []byte(opts.Password)), nil

	case "trojan":
		fallback := trojan.DefaultFallback
		if opts.Remote != "" {
			fallback = parseHostPort(opts.Remote)
		}
		return trojan.NewIngress(transport, opts.Passwords, fallback), nil

	case "tunnel":
		return tunnel.NewIngress(transport, tunnelBalancer), nil

	default:
		return nil, adapter.New(adapter.SemanticError, "unknown ingress type: "+vo.Type)
	}
}

// buildEgress constructs an adapter.Egress for vo. Direct and reject never
// dial ahead of time (their own Connect does); every other protocol needs
// an already-open (and TLS/WS-wrapped) connection to its upstream host:port
// before the protocol handshake in Connect can run, so those dial lazily
// via a closure invoked from Connect.
func buildEgress(vo config.EgressVO, certs config.CertLoader) (adapter.Egress, error) {
	opts := vo.Options

	switch vo.Type {
	case "direct":
		return direct.New(), nil

	case "reject":
		delay := time.Duration(opts.DelayMillis) * time.Millisecond
		if opts.RandomDelay {
			return direct.NewRandomReject(delay), nil
		}
		return direct.NewFixedReject(delay), nil

	case "http":
		dial := dialFunc(vo, certs)
		return httpproxy.NewEgress(dial, httpCredentialFrom(opts.Credential)), nil

	case "socks5":
		transport, err := dialTransport(context.Background(), vo, certs)
		if err != nil {
			return nil, err
		}
		return socks5.NewEgress(transport, socks5CredentialFrom(opts.Credential)), nil

	case "shadowsocks":
		method, ok := sscrypto.ParseMethod(opts.Method)
		if !ok {
			return nil, adapter.New(adapter.SemanticError, "unknown shadowsocks method: "+opts.Method)
		}
		transport, err := dialTransport(context.Background(), vo, certs)
		if err != nil {
			return nil, err
		}
		return shadowsocks.NewEgress(transport, method, []byte(opts.Password)), nil

	case "trojan":
		transport, err := dialTransport(context.Background(), vo, certs)
		if err != nil {
			return nil, err
		}
		return trojan.NewEgress(transport, opts.Password), nil

	default:
		return nil, adapter.New(adapter.SemanticError, "unknown egress type: "+vo.Type)
	}
}

// dialFunc builds the redialable closure httpproxy.Egress needs, since HTTP
// relay fallback discards and reopens its connection mid-Connect.
func dialFunc(vo config.EgressVO, certs config.CertLoader) func(ctx context.Context) (adapter.Stream, error) {
	return func(ctx context.Context) (adapter.Stream, error) {
		return dialTransport(ctx, vo, certs)
	}
}

func dialTransport(ctx context.Context, vo config.EgressVO, certs config.CertLoader) (adapter.Stream, error) {
	addr := net.JoinHostPort(vo.Host, portString(vo.Port))
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, adapter.Wrap(adapter.ConnFailure, "egress dial failed", err)
	}
	transport, err := buildTransport(ctx, conn, vo.Options, certs, false)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return transport, nil
}

func authenticatorFrom(cred *config.CredentialVO) httpproxy.Authenticator {
	if cred == nil {
		return nil
	}
	return func(user, pass string) bool { return user == cred.User && pass == cred.Pass }
}

func socks5Authenticator(cred *config.CredentialVO) socks5.Authenticator {
	if cred == nil {
		return nil
	}
	return func(user, pass string) bool { return user == cred.User && pass == cred.Pass }
}

func httpCredentialFrom(cred *config.CredentialVO) *httpproxy.Credential {
	if cred == nil {
		return nil
	}
	return &httpproxy.Credential{User: cred.User, Pass: cred.Pass}
}

func socks5CredentialFrom(cred *config.CredentialVO) *socks5.Credential {
	if cred == nil {
		return nil
	}
	return &socks5.Credential{User: cred.User, Pass: cred.Pass}
}

func parseDestinations(raw []string) ([]endpoint.Endpoint, error) {
	if len(raw) == 0 {
		return nil, adapter.New(adapter.SemanticError, "tunnel ingress requires at least one destination")
	}
	out := make([]endpoint.Endpoint, 0, len(raw))
	for _, s := range raw {
		out = append(out, parseHostPort(s))
	}
	return out, nil
}

func parseHostPort(s string) endpoint.Endpoint {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return endpoint.New(s, "80")
	}
	return endpoint.New(host, port)
}

func portString(p uint16) string {
	return strconv.Itoa(int(p))
}

// Package proxymgr implements the ingress/egress managers: named,
// live-updatable collections of configured protocol endpoints, plus the
// VO-to-adapter wiring that turns a config.IngressVO or config.EgressVO
// into a running acceptor or a constructible egress.
package proxymgr

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"os"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/config"
	"github.com/pichi-router/pichi-go/internal/streamwrap"
)

// buildTransport layers the optional TLS and WebSocket decorators over a
// freshly accepted or dialed net.Conn, per opts. Order is TLS-under-WS
// only: TLS returns a *streamwrap.Plain that WS's Upgrade/Dial can then
// wrap; WS cannot itself be wrapped by TLS.
func buildTransport(ctx context.Context, conn net.Conn, opts config.ReadOptions, certs config.CertLoader, isServer bool) (adapter.Stream, error) {
	cur := streamwrap.NewPlain(conn)

	if opts.TLS != nil {
		cfg, err := tlsConfigFrom(opts.TLS, certs, isServer)
		if err != nil {
			return nil, err
		}
		if isServer {
			tp, err := streamwrap.ServerTLS(ctx, cur, cfg)
			if err != nil {
				return nil, err
			}
			cur = tp
		} else {
			tp, err := streamwrap.ClientTLS(ctx, cur, cfg)
			if err != nil {
				return nil, err
			}
			cur = tp
		}
	}

	if opts.WS != nil {
		wsCfg := streamwrap.WSConfig{Path: opts.WS.Path, Host: opts.WS.Host}
		if isServer {
			return streamwrap.UpgradeServer(cur, wsCfg)
		}
		return streamwrap.DialClient(ctx, cur, wsCfg)
	}

	return cur, nil
}

func tlsConfigFrom(opts *config.TLSOptionsVO, certs config.CertLoader, isServer bool) (streamwrap.TLSConfig, error) {
	cfg := streamwrap.TLSConfig{ServerName: opts.SNI, Insecure: opts.Insecure}

	if isServer {
		cert, err := certs.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return cfg, adapter.Wrap(adapter.Misc, "failed loading tls certificate", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
		return cfg, nil
	}

	if opts.CAFile != "" {
		pem, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return cfg, adapter.Wrap(adapter.Misc, "failed reading ca file", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return cfg, adapter.New(adapter.Misc, "ca file contains no usable certificates")
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

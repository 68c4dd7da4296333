package streamwrap

import (
	"context"
	"crypto/tls"
	"crypto/x509"

	"github.com/pichi-router/pichi-go/internal/adapter"
)

// TLSConfig carries an already-loaded TLS material set. Filesystem
// cert/key loading stays behind internal/config.CertLoader, so this
// decorator never touches disk itself and stays testable with in-memory
// certs.
type TLSConfig struct {
	// Certificates is the server's identity; required for ServerTLS.
	Certificates []tls.Certificate
	// ServerName overrides SNI on the client side.
	ServerName string
	// RootCAs overrides the system trust store on the client side.
	RootCAs *x509.CertPool
	// Insecure disables peer verification.
	Insecure bool
}

// ServerTLS performs the server side of a TLS handshake over conn and
// returns the resulting *tls.Conn wrapped in a Plain, which a WebSocket
// upgrade can then layer over in turn.
func ServerTLS(ctx context.Context, conn *Plain, cfg TLSConfig) (*Plain, error) {
	tlsConn := tls.Server(conn.Conn, &tls.Config{
		Certificates: cfg.Certificates,
		MinVersion:   tls.VersionTLS12,
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, adapter.Wrap(adapter.ConnFailure, "tls server handshake failed", err)
	}
	return NewPlain(tlsConn), nil
}

// ClientTLS performs the client side of a TLS handshake over conn,
// optionally overriding SNI/CA/verification per cfg.
func ClientTLS(ctx context.Context, conn *Plain, cfg TLSConfig) (*Plain, error) {
	tlsConn := tls.Client(conn.Conn, &tls.Config{
		ServerName:         cfg.ServerName,
		RootCAs:            cfg.RootCAs,
		InsecureSkipVerify: cfg.Insecure,
		MinVersion:         tls.VersionTLS12,
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, adapter.Wrap(adapter.ConnFailure, "tls client handshake failed", err)
	}
	return NewPlain(tlsConn), nil
}

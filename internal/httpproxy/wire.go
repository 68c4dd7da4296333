// Package httpproxy implements the HTTP protocol adapter: tunnel
// (CONNECT) and relay modes, Basic proxy authentication, header
// rewriting, and sticky body caching across the header/body boundary.
package httpproxy

import (
	"bufio"
	"context"
	"encoding/base64"
	"net"
	"net/http"
	"strings"

	"github.com/pichi-router/pichi-go/internal/adapter"
)

// Credential is the optional Basic-auth username/password either
// validated by the ingress or injected by the egress (RFC 4648 §10 /
// RFC 7617).
type Credential struct {
	User string
	Pass string
}

// streamReader adapts an adapter.Stream's Recv to io.Reader so the
// stdlib HTTP header parser can read off of it.
type streamReader struct {
	ctx context.Context
	s   adapter.Stream
}

func (r streamReader) Read(p []byte) (int, error) { return r.s.Recv(r.ctx, p) }

// bufferedBody returns whatever bytes br had already buffered beyond the
// header it just parsed, the "sticky" body bytes.
func bufferedBody(br *bufio.Reader) ([]byte, error) {
	n := br.Buffered()
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := br.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// encodeBasicAuth renders "Basic base64(user:pass)".
func encodeBasicAuth(cred *Credential) string {
	raw := cred.User + ":" + cred.Pass
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}

// decodeBasicAuth parses a Proxy-Authorization header value, returning
// BadAuthMethod on any malformed input.
func decodeBasicAuth(header string) (user, pass string, err error) {
	const prefix = "basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", adapter.New(adapter.BadAuthMethod, "missing or malformed Proxy-Authorization")
	}
	decoded, decErr := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if decErr != nil {
		return "", "", adapter.Wrap(adapter.BadAuthMethod, "bad base64 in Proxy-Authorization", decErr)
	}
	idx := strings.IndexByte(string(decoded), ':')
	if idx < 0 {
		return "", "", adapter.New(adapter.BadAuthMethod, "malformed basic auth payload")
	}
	return string(decoded[:idx]), string(decoded[idx+1:]), nil
}

// addCloseHeaders marks the message as non-persistent unless it is an
// Upgrade. The proxy never closes actively; it relies on close headers to
// end persistent connections.
func addCloseHeaders(h http.Header) {
	if h.Get("Upgrade") != "" {
		return
	}
	h.Set("Connection", "close")
	h.Set("Proxy-Connection", "close")
}

// suppressDefaultUserAgent keeps Request.Write from injecting its default
// User-Agent into relayed traffic when the client sent none.
func suppressDefaultUserAgent(req *http.Request) {
	if req.Header.Get("User-Agent") == "" {
		req.Header["User-Agent"] = nil
	}
}

// hostPort splits host:port, defaulting the port when absent.
func hostPort(authority, defaultPort string) (host, port string) {
	h, p, err := net.SplitHostPort(authority)
	if err != nil {
		return authority, defaultPort
	}
	if p == "" {
		p = defaultPort
	}
	return h, p
}

// Package trojan implements the Trojan ingress/egress adapter: a
// SHA-224-hex password handshake carried over a TLS-terminated
// (optionally WebSocket-framed) stream, with the masquerade-as-HTTPS
// fallback that is this protocol's central trick.
package trojan

import (
	"encoding/hex"

	"github.com/pichi-router/pichi-go/internal/cryptohash"
	"github.com/pichi-router/pichi-go/internal/endpoint"
)

// pwdLen is the length of hex(SHA224(password)): 28 raw bytes, 56 hex chars.
const pwdLen = 28 * 2

// crlf is the two-byte line terminator the Trojan request uses after the
// password and after the destination endpoint.
var crlf = [2]byte{'\r', '\n'}

const cmdConnect = 0x01

// HashPassword returns hex(SHA224(password)), the form the wire handshake
// and the configured password set both use.
func HashPassword(password string) string {
	return hex.EncodeToString(cryptohash.Sum(cryptohash.SHA224, []byte(password)))
}

// DefaultFallback is the masquerade destination used when an ingress isn't
// configured with one: a CONNECT-less plaintext HTTP server, so a probe
// that fails the password check lands somewhere innocuous.
var DefaultFallback = endpoint.New("localhost", "80")

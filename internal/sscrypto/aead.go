// AEAD cipher adapters: each Shadowsocks AEAD method resolves to a
// crypto/cipher.AEAD, built from the pre-shared key's HKDF-derived
// per-session subkey (see keyschedule.go SessionKey) and a per-session
// salt/nonce pair.
package sscrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

var errUnsupportedAEADMethod = errors.New("sscrypto: unsupported method for this adapter")

// NewAEAD builds the cipher.AEAD for an AEAD-category method, given the
// per-session subkey (already derived via SessionKey).
func NewAEAD(m Method, subkey []byte) (cipher.AEAD, error) {
	if len(subkey) != m.KeySize() {
		return nil, errInvalidStreamKeySize
	}

	switch m {
	case AES128GCM, AES192GCM, AES256GCM:
		block, err := aes.NewCipher(subkey)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)

	case ChaCha20IETFPoly1305:
		return chacha20poly1305.New(subkey)

	case XChaCha20IETFPoly1305:
		return chacha20poly1305.NewX(subkey)

	default:
		return nil, errUnsupportedAEADMethod
	}
}

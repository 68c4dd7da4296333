// Stream cipher adapters: each Shadowsocks stream method resolves to
// a crypto/cipher.Stream, sourced from the standard library or
// golang.org/x/crypto wherever an implementation exists there.
package sscrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rc4"
	"errors"

	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/chacha20"

	"github.com/pichi-router/pichi-go/internal/cryptohash"
)

var (
	errInvalidStreamKeySize = errors.New("sscrypto: invalid stream key size")
	errInvalidStreamIVSize  = errors.New("sscrypto: invalid stream iv size")
	errUnsupportedMethod    = errors.New("sscrypto: unsupported method for this adapter")
)

// NewStream builds the cipher.Stream for a stream-category method. encrypt
// selects CFB's encrypt/decrypt direction; it is ignored by the methods
// that use a symmetric counter-mode construction (CTR, RC4, ChaCha20,
// Salsa20), since XORKeyStream is its own inverse there.
func NewStream(m Method, key, iv []byte, encrypt bool) (cipher.Stream, error) {
	if len(key) != m.KeySize() {
		return nil, errInvalidStreamKeySize
	}
	if len(iv) != m.IVSize() {
		return nil, errInvalidStreamIVSize
	}

	switch m {
	case RC4MD5:
		subKey := rc4Md5Key(key, iv)
		c, err := rc4.NewCipher(subKey)
		if err != nil {
			return nil, err
		}
		return c, nil

	case BFCFB:
		block, err := blowfish.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return newCFBStream(block, iv, encrypt), nil

	case AES128CTR, AES192CTR, AES256CTR:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewCTR(block, iv), nil

	case AES128CFB, AES192CFB, AES256CFB:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return newCFBStream(block, iv, encrypt), nil

	case Camellia128CFB, Camellia192CFB, Camellia256CFB:
		block, err := newCamelliaCipher(key)
		if err != nil {
			return nil, err
		}
		return newCFBStream(block, iv, encrypt), nil

	case ChaCha20:
		return newChaCha20Legacy(key, iv)

	case Salsa20:
		return newSalsa20(key, iv)

	case ChaCha20IETF:
		return chacha20.NewUnauthenticatedCipher(key, iv)

	default:
		return nil, errUnsupportedMethod
	}
}

func newCFBStream(block cipher.Block, iv []byte, encrypt bool) cipher.Stream {
	if encrypt {
		return cipher.NewCFBEncrypter(block, iv)
	}
	return cipher.NewCFBDecrypter(block, iv)
}

// rc4Md5Key derives the rc4-md5 session key: MD5(key || iv), per the
// Shadowsocks rc4-md5 method.
func rc4Md5Key(key, iv []byte) []byte {
	buf := make([]byte, 0, len(key)+len(iv))
	buf = append(buf, key...)
	buf = append(buf, iv...)
	return cryptohash.Sum(cryptohash.MD5, buf)
}

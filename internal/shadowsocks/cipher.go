// Package shadowsocks implements the Shadowsocks ingress/egress adapter:
// it wraps internal/sscrypto's key schedule, stream ciphers and AEAD
// ciphers into the common adapter.Stream contract, one cipher state per
// direction per connection.
package shadowsocks

import (
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/buffer"
	"github.com/pichi-router/pichi-go/internal/sscrypto"
)

// encryptor is one direction's send-side cipher state: the IV/salt is
// generated once and emitted as the wire prefix exactly once.
type encryptor struct {
	method sscrypto.Method
	iv     []byte
	sent   bool

	stream cipher.Stream // stream methods
	aead   cipher.AEAD   // AEAD methods
	nonce  []byte        // AEAD methods
}

func newEncryptor(method sscrypto.Method, presharedKey []byte) (*encryptor, error) {
	iv := make([]byte, method.IVSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, adapter.Wrap(adapter.CryptoError, "iv/salt generation failed", err)
	}
	return buildEncryptor(method, presharedKey, iv)
}

func buildEncryptor(method sscrypto.Method, presharedKey, iv []byte) (*encryptor, error) {
	e := &encryptor{method: method, iv: iv}
	if method.IsAEAD() {
		subkey, err := sscrypto.SessionKey(method, presharedKey, iv)
		if err != nil {
			return nil, adapter.Wrap(adapter.CryptoError, "aead session key derivation failed", err)
		}
		aead, err := sscrypto.NewAEAD(method, subkey)
		if err != nil {
			return nil, adapter.Wrap(adapter.CryptoError, "aead construction failed", err)
		}
		e.aead = aead
		e.nonce = make([]byte, method.NonceSize())
		return e, nil
	}
	stream, err := sscrypto.NewStream(method, presharedKey, iv, true)
	if err != nil {
		return nil, adapter.Wrap(adapter.CryptoError, "stream cipher construction failed", err)
	}
	e.stream = stream
	return e, nil
}

// EncryptStream XORs plain into a fresh equal-length ciphertext buffer
// (stream methods only).
func (e *encryptor) EncryptStream(plain []byte) []byte {
	out := make([]byte, len(plain))
	e.stream.XORKeyStream(out, plain)
	return out
}

// EncryptFrame seals one AEAD frame: an encrypted 2-byte big-endian length
// plus tag, then the encrypted payload plus tag. plain must
// be at most buffer.MaxAEADPayload bytes.
func (e *encryptor) EncryptFrame(plain []byte) ([]byte, error) {
	if len(plain) > buffer.MaxAEADPayload {
		return nil, adapter.New(adapter.BufferOverflow, "aead frame payload exceeds 0x3FFF")
	}

	var lenBuf [2]byte
	buffer.PutUint16(lenBuf[:], uint16(len(plain)))
	lenFrame := e.aead.Seal(nil, e.nonce, lenBuf[:], nil)
	incrementNonce(e.nonce)

	payloadFrame := e.aead.Seal(nil, e.nonce, plain, nil)
	incrementNonce(e.nonce)

	out := make([]byte, 0, len(lenFrame)+len(payloadFrame))
	out = append(out, lenFrame...)
	out = append(out, payloadFrame...)
	return out, nil
}

// decryptor is one direction's recv-side cipher state: two-phase, holding
// only the key until SetIV is called exactly once.
type decryptor struct {
	method       sscrypto.Method
	presharedKey []byte
	ivSet        bool

	stream cipher.Stream
	aead   cipher.AEAD
	nonce  []byte
}

func newDecryptor(method sscrypto.Method, presharedKey []byte) *decryptor {
	return &decryptor{method: method, presharedKey: presharedKey}
}

// SetIV installs the peer's IV/salt and derives the cipher state from it.
// Calling it twice is a programmer error.
func (d *decryptor) SetIV(iv []byte) error {
	if d.ivSet {
		return adapter.New(adapter.Misc, "shadowsocks iv/salt already set")
	}
	if len(iv) != d.method.IVSize() {
		return adapter.New(adapter.BadProto, "bad shadowsocks iv/salt size")
	}
	if d.method.IsAEAD() {
		subkey, err := sscrypto.SessionKey(d.method, d.presharedKey, iv)
		if err != nil {
			return adapter.Wrap(adapter.CryptoError, "aead session key derivation failed", err)
		}
		aead, err := sscrypto.NewAEAD(d.method, subkey)
		if err != nil {
			return adapter.Wrap(adapter.CryptoError, "aead construction failed", err)
		}
		d.aead = aead
		d.nonce = make([]byte, d.method.NonceSize())
	} else {
		stream, err := sscrypto.NewStream(d.method, d.presharedKey, iv, false)
		if err != nil {
			return adapter.Wrap(adapter.CryptoError, "stream cipher construction failed", err)
		}
		d.stream = stream
	}
	d.ivSet = true
	return nil
}

// DecryptStream XORs ciphertext into a fresh equal-length plaintext buffer.
func (d *decryptor) DecryptStream(ciphertext []byte) []byte {
	out := make([]byte, len(ciphertext))
	d.stream.XORKeyStream(out, ciphertext)
	return out
}

// DecryptLenFrame opens an AEAD length frame and returns the decoded
// payload length.
func (d *decryptor) DecryptLenFrame(frame []byte) (int, error) {
	plain, err := d.aead.Open(nil, d.nonce, frame, nil)
	incrementNonce(d.nonce)
	if err != nil {
		return 0, adapter.Wrap(adapter.CryptoError, "aead length frame authentication failed", err)
	}
	return int(buffer.Uint16(plain)), nil
}

// DecryptPayloadFrame opens an AEAD payload frame.
func (d *decryptor) DecryptPayloadFrame(frame []byte) ([]byte, error) {
	plain, err := d.aead.Open(nil, d.nonce, frame, nil)
	incrementNonce(d.nonce)
	if err != nil {
		return nil, adapter.Wrap(adapter.CryptoError, "aead payload frame authentication failed", err)
	}
	return plain, nil
}

// incrementNonce increments nonce as a little-endian counter, mirroring
// libsodium's sodium_increment.
func incrementNonce(nonce []byte) {
	for i := range nonce {
		nonce[i]++
		if nonce[i] != 0 {
			return
		}
	}
}

// Package sscrypto implements the Shadowsocks crypto pipeline: the
// EVP_BytesToKey-style key schedule, the stream cipher adapters and the
// AEAD cipher adapters.
package sscrypto

import "fmt"

// Method is the closed enumeration of the 19 supported Shadowsocks
// methods.
type Method int

const (
	RC4MD5 Method = iota
	BFCFB

	AES128CTR
	AES192CTR
	AES256CTR

	AES128CFB
	AES192CFB
	AES256CFB

	Camellia128CFB
	Camellia192CFB
	Camellia256CFB

	ChaCha20
	Salsa20
	ChaCha20IETF

	AES128GCM
	AES192GCM
	AES256GCM

	ChaCha20IETFPoly1305
	XChaCha20IETFPoly1305
)

var methodNames = map[Method]string{
	RC4MD5:                "rc4-md5",
	BFCFB:                 "bf-cfb",
	AES128CTR:             "aes-128-ctr",
	AES192CTR:             "aes-192-ctr",
	AES256CTR:             "aes-256-ctr",
	AES128CFB:             "aes-128-cfb",
	AES192CFB:             "aes-192-cfb",
	AES256CFB:             "aes-256-cfb",
	Camellia128CFB:        "camellia-128-cfb",
	Camellia192CFB:        "camellia-192-cfb",
	Camellia256CFB:        "camellia-256-cfb",
	ChaCha20:              "chacha20",
	Salsa20:               "salsa20",
	ChaCha20IETF:          "chacha20-ietf",
	AES128GCM:             "aes-128-gcm",
	AES192GCM:             "aes-192-gcm",
	AES256GCM:             "aes-256-gcm",
	ChaCha20IETFPoly1305:  "chacha20-ietf-poly1305",
	XChaCha20IETFPoly1305: "xchacha20-ietf-poly1305",
}

func (m Method) String() string {
	if n, ok := methodNames[m]; ok {
		return n
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod resolves a Shadowsocks method name to its Method constant.
func ParseMethod(name string) (Method, bool) {
	for m, n := range methodNames {
		if n == name {
			return m, true
		}
	}
	return 0, false
}

// IsAEAD reports whether m is an AEAD method (vs. a stream method).
func (m Method) IsAEAD() bool {
	switch m {
	case AES128GCM, AES192GCM, AES256GCM, ChaCha20IETFPoly1305, XChaCha20IETFPoly1305:
		return true
	default:
		return false
	}
}

// KeySize returns the pre-shared key size in bytes for m.
func (m Method) KeySize() int {
	switch m {
	case RC4MD5, BFCFB, AES128CTR, AES128CFB, Camellia128CFB, AES128GCM:
		return 16
	case AES192CTR, AES192CFB, Camellia192CFB, AES192GCM:
		return 24
	case AES256CTR, AES256CFB, Camellia256CFB, AES256GCM,
		ChaCha20, Salsa20, ChaCha20IETF, ChaCha20IETFPoly1305, XChaCha20IETFPoly1305:
		return 32
	default:
		panic("sscrypto: unknown method")
	}
}

// IVSize returns the IV size (stream methods) or salt size (AEAD methods)
// in bytes for m.
func (m Method) IVSize() int {
	switch m {
	case ChaCha20IETF:
		return 12
	case BFCFB, ChaCha20, Salsa20:
		return 8
	}
	if m.IsAEAD() {
		return m.KeySize()
	}
	return 16
}

// NonceSize returns the AEAD nonce size in bytes for m. Valid only for AEAD
// methods.
func (m Method) NonceSize() int {
	if m == XChaCha20IETFPoly1305 {
		return 24
	}
	return 12
}

// TagSize returns the AEAD authentication tag size in bytes for m. Valid
// only for AEAD methods; always 16.
func (m Method) TagSize() int {
	return 16
}

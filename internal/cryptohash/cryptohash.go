// Package cryptohash provides the hash/HMAC/HKDF primitives shared by the
// Shadowsocks crypto pipeline and the Trojan password hash.
package cryptohash

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HashFunc names the supported hash algorithms.
type HashFunc int

const (
	MD5 HashFunc = iota
	SHA1
	SHA224
	SHA256
	SHA384
	SHA512
)

// New returns a fresh hash.Hash for f.
func New(f HashFunc) hash.Hash {
	switch f {
	case MD5:
		return md5.New()
	case SHA1:
		return sha1.New()
	case SHA224:
		return sha256.New224()
	case SHA256:
		return sha256.New()
	case SHA384:
		return sha512.New384()
	case SHA512:
		return sha512.New()
	default:
		panic("cryptohash: unknown hash func")
	}
}

// Sum computes New(f) over data in one call.
func Sum(f HashFunc, data []byte) []byte {
	h := New(f)
	h.Write(data)
	return h.Sum(nil)
}

// HMAC computes RFC 2104 HMAC(f, key, data).
func HMAC(f HashFunc, key, data []byte) []byte {
	mac := hmac.New(func() hash.Hash { return New(f) }, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// HKDFExtract implements RFC 5869 step 1 (HKDF-Extract).
func HKDFExtract(f HashFunc, salt, ikm []byte) []byte {
	return HMAC(f, salt, ikm)
}

// HKDFExpand implements RFC 5869 step 2 (HKDF-Expand), producing length
// bytes of output keying material from prk, tagged with info.
func HKDFExpand(f HashFunc, prk, info []byte, length int) ([]byte, error) {
	r := hkdf.Expand(func() hash.Hash { return New(f) }, prk, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// HKDF implements the combined RFC 5869 Extract-then-Expand, matching
// golang.org/x/crypto/hkdf.New's single-call convenience form.
func HKDF(f HashFunc, secret, salt, info []byte, length int) ([]byte, error) {
	r := hkdf.New(func() hash.Hash { return New(f) }, secret, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SSSubkeyInfo is the HKDF info string Shadowsocks AEAD uses to derive a
// per-session subkey from the pre-shared key and per-session salt.
var SSSubkeyInfo = []byte("ss-subkey")

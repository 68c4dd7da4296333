package sscrypto

import "github.com/pichi-router/pichi-go/internal/cryptohash"

// DeriveKey implements the OpenSSL EVP_BytesToKey MD5 chain Shadowsocks
// uses to turn a text password into an m.KeySize()-byte key: repeatedly
// hash the previous digest concatenated with password, starting from an
// empty digest, and concatenate digests until there are enough bytes.
func DeriveKey(m Method, password string) []byte {
	size := m.KeySize()
	pw := []byte(password)

	key := make([]byte, 0, size+cryptohash.New(cryptohash.MD5).Size())
	var prev []byte
	for len(key) < size {
		h := cryptohash.New(cryptohash.MD5)
		h.Write(prev)
		h.Write(pw)
		prev = h.Sum(nil)
		key = append(key, prev...)
	}
	return key[:size]
}

// SessionKey derives the per-session subkey from a pre-shared key and a
// per-session salt via HKDF-SHA1 with the fixed "ss-subkey" info string.
// Used by AEAD methods only; stream methods use the pre-shared key and
// salt directly as key/IV.
func SessionKey(m Method, presharedKey, salt []byte) ([]byte, error) {
	return cryptohash.HKDF(cryptohash.SHA1, presharedKey, salt, cryptohash.SSSubkeyInfo, m.KeySize())
}

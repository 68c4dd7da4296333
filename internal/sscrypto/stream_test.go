package sscrypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestStreamRoundTrip(t *testing.T) {
	methods := []Method{
		RC4MD5, BFCFB,
		AES128CTR, AES192CTR, AES256CTR,
		AES128CFB, AES192CFB, AES256CFB,
		ChaCha20, Salsa20, ChaCha20IETF,
	}
	plaintext := []byte("the quick brown fox jumps over the lazy dog, twice over for good measure")

	for _, m := range methods {
		t.Run(m.String(), func(t *testing.T) {
			key := DeriveKey(m, "correct horse battery staple")
			iv := bytes.Repeat([]byte{0x5a}, m.IVSize())

			enc, err := NewStream(m, key, iv, true)
			if err != nil {
				t.Fatalf("NewStream(encrypt): %v", err)
			}
			ciphertext := make([]byte, len(plaintext))
			enc.XORKeyStream(ciphertext, plaintext)

			dec, err := NewStream(m, key, iv, false)
			if err != nil {
				t.Fatalf("NewStream(decrypt): %v", err)
			}
			got := make([]byte, len(ciphertext))
			dec.XORKeyStream(got, ciphertext)
			if !bytes.Equal(got, plaintext) {
				t.Errorf("round trip mismatch for %v", m)
			}
		})
	}
}

func TestLegacyChaCha20Keystream(t *testing.T) {
	// djb reference vector: all-zero key and nonce, counter from zero.
	s, err := newChaCha20Legacy(make([]byte, 32), make([]byte, 8))
	if err != nil {
		t.Fatalf("newChaCha20Legacy: %v", err)
	}
	got := make([]byte, 64)
	s.XORKeyStream(got, make([]byte, 64))
	want := mustHex(t, "76b8e0ada0f13d90405d6ae55386bd28bdd219b8a08ded1aa836efcc8b770dc7da41597c5157488d7724e03fb8d84a376a43b8f41518a11cc387b669b2ee6586")
	if !bytes.Equal(got, want) {
		t.Errorf("keystream = %x, want %x", got, want)
	}
}

func TestSalsa20Keystream(t *testing.T) {
	// ECRYPT Salsa20/20 256-bit set 6 vector 0, first keystream block.
	key := mustHex(t, "0053a6f94c9ff24598eb3e91e4378add3083d6297ccf2275c81b6ec11467ba0d")
	nonce := mustHex(t, "0d74db42a91077de")
	s, err := newSalsa20(key, nonce)
	if err != nil {
		t.Fatalf("newSalsa20: %v", err)
	}
	got := make([]byte, 64)
	s.XORKeyStream(got, make([]byte, 64))
	want := mustHex(t, "f5fad53f79f9df58c4aea0d0ed9a9601f278112ca7180d565b420a48019670eaf24ce493a86263f677b46ace1924773d2bb25571e1aa8593758fc382b1280b71")
	if !bytes.Equal(got, want) {
		t.Errorf("keystream = %x, want %x", got, want)
	}
}

func TestStreamRejectsBadKeySize(t *testing.T) {
	_, err := NewStream(AES128CTR, make([]byte, 8), make([]byte, 16), true)
	if err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestStreamRejectsBadIVSize(t *testing.T) {
	_, err := NewStream(AES128CTR, make([]byte, 16), make([]byte, 4), true)
	if err == nil {
		t.Fatalf("expected error for short iv")
	}
}

func TestCamelliaKnownAnswer(t *testing.T) {
	// RFC 3713 appendix A test vectors, one per key size.
	pt := mustHex(t, "0123456789abcdeffedcba9876543210")
	cases := []struct {
		name string
		key  string
		want string
	}{
		{"128", "0123456789abcdeffedcba9876543210", "67673138549669730857065648eabe43"},
		{"192", "0123456789abcdeffedcba98765432100011223344556677", "b4993401b3e996f84ee5cee7d79b09b9"},
		{"256", "0123456789abcdeffedcba987654321000112233445566778899aabbccddeeff", "9acc237dff16d76c20ef7c919e3a7509"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := newCamelliaCipher(mustHex(t, tc.key))
			if err != nil {
				t.Fatalf("newCamelliaCipher: %v", err)
			}
			ct := make([]byte, 16)
			c.Encrypt(ct, pt)
			if got := hex.EncodeToString(ct); got != tc.want {
				t.Errorf("encrypt = %s, want %s", got, tc.want)
			}

			back := make([]byte, 16)
			c.Decrypt(back, ct)
			if !bytes.Equal(back, pt) {
				t.Errorf("decrypt(encrypt(pt)) = %x, want %x", back, pt)
			}
		})
	}
}

func TestCamelliaRejectsBadKeySize(t *testing.T) {
	if _, err := newCamelliaCipher(make([]byte, 20)); err == nil {
		t.Fatalf("expected error for 20-byte key")
	}
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

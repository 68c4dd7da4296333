package cryptohash

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestMD5Vector(t *testing.T) {
	// RFC 1321 test vector.
	got := Sum(MD5, []byte("abc"))
	want, _ := hex.DecodeString("900150983cd24fb0d6963f7d28e17f72")
	if !bytes.Equal(got, want) {
		t.Errorf("MD5(abc) = %x, want %x", got, want)
	}
}

func TestSHA1Vector(t *testing.T) {
	got := Sum(SHA1, []byte("abc"))
	want, _ := hex.DecodeString("a9993e364706816aba3e25717850c26c9cd0d89d")
	if !bytes.Equal(got, want) {
		t.Errorf("SHA1(abc) = %x, want %x", got, want)
	}
}

func TestSHA224Vector(t *testing.T) {
	// FIPS 180-4 test vector.
	got := Sum(SHA224, []byte("abc"))
	want, _ := hex.DecodeString("23097d223405d8228642a477bda255b32aadbce4bda0b3f7e36c9da7")
	if !bytes.Equal(got, want) {
		t.Errorf("SHA224(abc) = %x, want %x", got, want)
	}
}

func TestHMACSHA256Vector(t *testing.T) {
	// RFC 4231 test case 1.
	key := bytes.Repeat([]byte{0x0b}, 20)
	data := []byte("Hi There")
	got := HMAC(SHA256, key, data)
	want, _ := hex.DecodeString("b0344c61d8db38535ca8afceaf0bf12b881dc200c9833da726e9376c2e32cff7")
	if !bytes.Equal(got, want) {
		t.Errorf("HMAC-SHA256 = %x, want %x", got, want)
	}
}

func TestHKDFVector(t *testing.T) {
	// RFC 5869 A.1 test case 1.
	ikm, _ := hex.DecodeString("0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b")
	salt, _ := hex.DecodeString("000102030405060708090a0b0c")
	info, _ := hex.DecodeString("f0f1f2f3f4f5f6f7f8f9")

	okm, err := HKDF(SHA256, ikm, salt, info, 42)
	if err != nil {
		t.Fatalf("HKDF: %v", err)
	}
	want, _ := hex.DecodeString("3cb25f25faacd57a90434f64d0362f2a2d2d0a90cf1a5a4c5db02d56ecc4c5bf34007208d5b887185865")
	if !bytes.Equal(okm, want) {
		t.Errorf("HKDF = %x, want %x", okm, want)
	}
}

func TestHKDFMaxLength(t *testing.T) {
	for _, f := range []HashFunc{SHA1, SHA256, SHA512} {
		h := New(f)
		maxLen := 255 * h.Size()
		okm, err := HKDF(f, []byte("secret"), nil, []byte("info"), maxLen)
		if err != nil {
			t.Fatalf("HKDF max length for %v: %v", f, err)
		}
		if len(okm) != maxLen {
			t.Errorf("len(okm) = %d, want %d", len(okm), maxLen)
		}
	}
}

func TestSSSubkeyDerivation(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 32)
	salt := bytes.Repeat([]byte{0x02}, 32)
	subkey, err := HKDF(SHA1, key, salt, SSSubkeyInfo, 32)
	if err != nil {
		t.Fatalf("HKDF: %v", err)
	}
	if len(subkey) != 32 {
		t.Fatalf("len(subkey) = %d, want 32", len(subkey))
	}
	// Deterministic: same inputs yield same subkey.
	subkey2, _ := HKDF(SHA1, key, salt, SSSubkeyInfo, 32)
	if !bytes.Equal(subkey, subkey2) {
		t.Errorf("HKDF not deterministic")
	}
}

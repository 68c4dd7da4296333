package sscrypto

import (
	"bytes"
	"testing"
)

func TestAEADRoundTrip(t *testing.T) {
	methods := []Method{AES128GCM, AES192GCM, AES256GCM, ChaCha20IETFPoly1305, XChaCha20IETFPoly1305}
	plaintext := []byte("shadowsocks aead chunk payload")
	aad := []byte(nil)

	for _, m := range methods {
		t.Run(m.String(), func(t *testing.T) {
			psk := DeriveKey(m, "pre-shared-secret")
			salt := bytes.Repeat([]byte{0x7e}, m.IVSize())
			subkey, err := SessionKey(m, psk, salt)
			if err != nil {
				t.Fatalf("SessionKey: %v", err)
			}

			sender, err := NewAEAD(m, subkey)
			if err != nil {
				t.Fatalf("NewAEAD(sender): %v", err)
			}
			receiver, err := NewAEAD(m, subkey)
			if err != nil {
				t.Fatalf("NewAEAD(receiver): %v", err)
			}

			nonce := make([]byte, sender.NonceSize())
			sealed := sender.Seal(nil, nonce, plaintext, aad)

			opened, err := receiver.Open(nil, nonce, sealed, aad)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if !bytes.Equal(opened, plaintext) {
				t.Errorf("round trip mismatch for %v", m)
			}
		})
	}
}

func TestAEADRejectsTamperedCiphertext(t *testing.T) {
	m := AES256GCM
	psk := DeriveKey(m, "secret")
	salt := bytes.Repeat([]byte{0x01}, m.IVSize())
	subkey, _ := SessionKey(m, psk, salt)
	aead, err := NewAEAD(m, subkey)
	if err != nil {
		t.Fatalf("NewAEAD: %v", err)
	}
	nonce := make([]byte, aead.NonceSize())
	sealed := aead.Seal(nil, nonce, []byte("hello"), nil)
	sealed[0] ^= 0xff

	if _, err := aead.Open(nil, nonce, sealed, nil); err == nil {
		t.Fatalf("expected Open to fail on tampered ciphertext")
	}
}

func TestAEADRejectsBadSubkeySize(t *testing.T) {
	if _, err := NewAEAD(AES128GCM, make([]byte, 4)); err == nil {
		t.Fatalf("expected error for short subkey")
	}
}

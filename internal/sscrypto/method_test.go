package sscrypto

import "testing"

func TestSizesTable(t *testing.T) {
	cases := []struct {
		m       Method
		key     int
		iv      int
		aead    bool
		nonce   int
	}{
		{RC4MD5, 16, 16, false, 0},
		{BFCFB, 16, 8, false, 0},
		{AES128CTR, 16, 16, false, 0},
		{AES192CTR, 24, 16, false, 0},
		{AES256CTR, 32, 16, false, 0},
		{AES128CFB, 16, 16, false, 0},
		{AES192CFB, 24, 16, false, 0},
		{AES256CFB, 32, 16, false, 0},
		{Camellia128CFB, 16, 16, false, 0},
		{Camellia192CFB, 24, 16, false, 0},
		{Camellia256CFB, 32, 16, false, 0},
		{ChaCha20, 32, 8, false, 0},
		{Salsa20, 32, 8, false, 0},
		{ChaCha20IETF, 32, 12, false, 0},
		{AES128GCM, 16, 16, true, 12},
		{AES192GCM, 24, 24, true, 12},
		{AES256GCM, 32, 32, true, 12},
		{ChaCha20IETFPoly1305, 32, 32, true, 12},
		{XChaCha20IETFPoly1305, 32, 32, true, 24},
	}

	for _, tc := range cases {
		t.Run(tc.m.String(), func(t *testing.T) {
			if got := tc.m.KeySize(); got != tc.key {
				t.Errorf("KeySize() = %d, want %d", got, tc.key)
			}
			if got := tc.m.IVSize(); got != tc.iv {
				t.Errorf("IVSize() = %d, want %d", got, tc.iv)
			}
			if got := tc.m.IsAEAD(); got != tc.aead {
				t.Errorf("IsAEAD() = %v, want %v", got, tc.aead)
			}
			if tc.aead {
				if got := tc.m.NonceSize(); got != tc.nonce {
					t.Errorf("NonceSize() = %d, want %d", got, tc.nonce)
				}
				if got := tc.m.TagSize(); got != 16 {
					t.Errorf("TagSize() = %d, want 16", got)
				}
			}
		})
	}
}

func TestParseMethodRoundTrip(t *testing.T) {
	all := []Method{
		RC4MD5, BFCFB, AES128CTR, AES192CTR, AES256CTR, AES128CFB, AES192CFB, AES256CFB,
		Camellia128CFB, Camellia192CFB, Camellia256CFB, ChaCha20, Salsa20, ChaCha20IETF,
		AES128GCM, AES192GCM, AES256GCM, ChaCha20IETFPoly1305, XChaCha20IETFPoly1305,
	}
	for _, m := range all {
		got, ok := ParseMethod(m.String())
		if !ok || got != m {
			t.Errorf("ParseMethod(%q) = %v, %v, want %v, true", m.String(), got, ok, m)
		}
	}
}

func TestParseMethodUnknown(t *testing.T) {
	if _, ok := ParseMethod("not-a-method"); ok {
		t.Errorf("expected ok=false")
	}
}

package httpproxy

import (
	"testing"

	"github.com/pichi-router/pichi-go/internal/adapter"
)

func TestBasicAuthRoundTrip(t *testing.T) {
	cases := []Credential{
		{User: "foo", Pass: "bar"},
		{User: "user", Pass: "p:a:s:s"},
		{User: "", Pass: "only-pass"},
	}
	for _, cred := range cases {
		header := encodeBasicAuth(&cred)
		user, pass, err := decodeBasicAuth(header)
		if err != nil {
			t.Fatalf("decodeBasicAuth(%q): %v", header, err)
		}
		if user != cred.User || pass != cred.Pass {
			t.Errorf("round trip (%q,%q) -> (%q,%q)", cred.User, cred.Pass, user, pass)
		}
	}
}

func TestDecodeBasicAuthKnownValue(t *testing.T) {
	user, pass, err := decodeBasicAuth("Basic Zm9vOmJhcg==")
	if err != nil {
		t.Fatalf("decodeBasicAuth: %v", err)
	}
	if user != "foo" || pass != "bar" {
		t.Errorf("got (%q,%q), want (foo,bar)", user, pass)
	}
}

func TestDecodeBasicAuthRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"Bearer abcdef",
		"Basic !!!not-base64!!!",
		"Basic " + "bm8tY29sb24=", // "no-colon"
	}
	for _, header := range cases {
		if _, _, err := decodeBasicAuth(header); adapter.KindOf(err) != adapter.BadAuthMethod {
			t.Errorf("decodeBasicAuth(%q) kind = %v, want BadAuthMethod", header, adapter.KindOf(err))
		}
	}
}

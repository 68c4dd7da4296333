package config

import (
	"testing"

	"github.com/pichi-router/pichi-go/internal/adapter"
)

func TestIngressVOValidate(t *testing.T) {
	cases := []struct {
		name    string
		vo      IngressVO
		wantErr bool
	}{
		{"http ok", IngressVO{Name: "in", Type: "http", Bind: "127.0.0.1:8080"}, false},
		{"missing name", IngressVO{Type: "http", Bind: "127.0.0.1:8080"}, true},
		{"unknown type", IngressVO{Name: "in", Type: "ftp", Bind: "127.0.0.1:8080"}, true},
		{"bad bind", IngressVO{Name: "in", Type: "http", Bind: "no-port"}, true},
		{"shadowsocks ok", IngressVO{Name: "in", Type: "shadowsocks", Bind: "127.0.0.1:8388",
			Options: ReadOptions{Method: "aes-256-gcm", Password: "pw"}}, false},
		{"shadowsocks without method", IngressVO{Name: "in", Type: "shadowsocks", Bind: "127.0.0.1:8388",
			Options: ReadOptions{Password: "pw"}}, true},
		{"trojan without tls", IngressVO{Name: "in", Type: "trojan", Bind: "127.0.0.1:443",
			Options: ReadOptions{Passwords: []string{"pw"}}}, true},
		{"trojan ok", IngressVO{Name: "in", Type: "trojan", Bind: "127.0.0.1:443",
			Options: ReadOptions{Passwords: []string{"pw"}, TLS: &TLSOptionsVO{CertFile: "c", KeyFile: "k"}}}, false},
		{"trojan without passwords", IngressVO{Name: "in", Type: "trojan", Bind: "127.0.0.1:443",
			Options: ReadOptions{TLS: &TLSOptionsVO{CertFile: "c", KeyFile: "k"}}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.vo.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr && adapter.KindOf(err) != adapter.SemanticError {
				t.Errorf("kind = %v, want SemanticError", adapter.KindOf(err))
			}
		})
	}
}

func TestEgressVOValidate(t *testing.T) {
	cases := []struct {
		name    string
		vo      EgressVO
		wantErr bool
	}{
		{"direct needs no host", EgressVO{Name: "d", Type: "direct"}, false},
		{"reject needs no host", EgressVO{Name: "r", Type: "reject"}, false},
		{"socks5 without host", EgressVO{Name: "s", Type: "socks5"}, true},
		{"socks5 ok", EgressVO{Name: "s", Type: "socks5", Host: "proxy", Port: 1080}, false},
		{"trojan without tls", EgressVO{Name: "t", Type: "trojan", Host: "proxy", Port: 443,
			Options: ReadOptions{Password: "pw"}}, true},
		{"trojan ok", EgressVO{Name: "t", Type: "trojan", Host: "proxy", Port: 443,
			Options: ReadOptions{Password: "pw", TLS: &TLSOptionsVO{}}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.vo.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

package trojan

import (
	"context"
	"net"
	"testing"

	"github.com/pichi-router/pichi-go/internal/endpoint"
	"github.com/pichi-router/pichi-go/internal/streamwrap"
)

func TestHashPasswordLength(t *testing.T) {
	if got := len(HashPassword("secret")); got != pwdLen {
		t.Fatalf("got hash length %d, want %d", got, pwdLen)
	}
}

func TestTrojanHandshakeRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	ingress := NewIngress(streamwrap.NewPlain(serverConn), []string{"hunter2"}, endpoint.Endpoint{})
	egress := NewEgress(streamwrap.NewPlain(clientConn), "hunter2")

	ctx := context.Background()
	remote := endpoint.New("example.com", "443")

	done := make(chan error, 1)
	go func() { done <- egress.Connect(ctx, remote, nil) }()

	got, err := ingress.ReadRemote(ctx)
	if err != nil {
		t.Fatalf("ReadRemote: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got.Host != remote.Host || got.Port != remote.Port {
		t.Fatalf("got endpoint %+v, want %+v", got, remote)
	}

	payload := []byte("hello")
	go func() { egress.Send(ctx, payload) }()
	buf := make([]byte, len(payload))
	n, err := ingress.Recv(ctx, buf)
	if err != nil {
		t.Fatalf("ingress recv: %v", err)
	}
	if string(buf[:n]) != string(payload) {
		t.Fatalf("got %q, want %q", buf[:n], payload)
	}
}

func TestTrojanBadPasswordMasquerades(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	fallback := endpoint.New("1.2.3.4", "80")
	ingress := NewIngress(streamwrap.NewPlain(serverConn), []string{"hunter2"}, fallback)
	egress := NewEgress(streamwrap.NewPlain(clientConn), "wrong-password")

	ctx := context.Background()
	remote := endpoint.New("example.com", "443")

	go egress.Connect(ctx, remote, nil)

	got, err := ingress.ReadRemote(ctx)
	if err != nil {
		t.Fatalf("ReadRemote should never surface an error on mismatch, got: %v", err)
	}
	if got.Host != fallback.Host || got.Port != fallback.Port {
		t.Fatalf("got endpoint %+v, want fallback %+v", got, fallback)
	}

	// the entire bad preamble must still be replayable via Recv.
	buf := make([]byte, pwdLen+16)
	n, err := ingress.Recv(ctx, buf)
	if err != nil {
		t.Fatalf("Recv after fallback: %v", err)
	}
	if n == 0 {
		t.Fatalf("expected sticky preamble bytes to be replayed, got none")
	}
	if string(buf[:pwdLen]) != HashPassword("wrong-password") {
		t.Fatalf("replayed preamble does not start with the original hashed password")
	}
}

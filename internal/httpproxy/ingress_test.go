package httpproxy

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/streamwrap"
)

func TestTunnelModeRoundTrip(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	in := NewIngress(streamwrap.NewPlain(serverConn), nil)

	request := "CONNECT localhost:443 HTTP/1.1\r\nHost: localhost:443\r\n\r\nGET / HTTP/1.1\r\nHost: localhost\r\n\r\n"
	go func() {
		_, _ = clientConn.Write([]byte(request))
	}()

	remote, err := in.ReadRemote(ctx)
	if err != nil {
		t.Fatalf("ReadRemote: %v", err)
	}
	if remote.Host != "localhost" || remote.Port != "443" {
		t.Fatalf("got %+v", remote)
	}

	// net.Pipe writes block until the peer reads, so Confirm runs
	// concurrently with the client-side read of its response.
	confirmErr := make(chan error, 1)
	go func() { confirmErr <- in.Confirm(ctx) }()

	respBuf := make([]byte, 512)
	n, err := clientConn.Read(respBuf)
	if err != nil {
		t.Fatalf("read confirm: %v", err)
	}
	if err := <-confirmErr; err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !strings.HasPrefix(string(respBuf[:n]), "HTTP/1.1 200 Connection Established") {
		t.Fatalf("unexpected confirm: %q", respBuf[:n])
	}

	sticky := make([]byte, 512)
	n, err = in.Recv(ctx, sticky)
	if err != nil {
		t.Fatalf("Recv sticky: %v", err)
	}
	if !strings.HasPrefix(string(sticky[:n]), "GET / HTTP/1.1") {
		t.Fatalf("expected sticky GET request, got %q", sticky[:n])
	}
}

func TestRelayModeRewritesRequest(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	auth := func(user, pass string) bool { return user == "foo" && pass == "bar" }
	in := NewIngress(streamwrap.NewPlain(serverConn), auth)

	request := "GET http://example.com/ HTTP/1.1\r\nProxy-Authorization: Basic Zm9vOmJhcg==\r\nHost: example.com\r\n\r\n"
	go func() {
		_, _ = clientConn.Write([]byte(request))
	}()

	remote, err := in.ReadRemote(ctx)
	if err != nil {
		t.Fatalf("ReadRemote: %v", err)
	}
	if remote.Host != "example.com" || remote.Port != "80" {
		t.Fatalf("got %+v", remote)
	}

	rewritten := make([]byte, 512)
	n, err := in.Recv(ctx, rewritten)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	got := string(rewritten[:n])
	if !strings.HasPrefix(got, "GET / HTTP/1.1\r\n") {
		t.Fatalf("expected relative GET, got %q", got)
	}
	if !strings.Contains(got, "Host: example.com") {
		t.Fatalf("expected Host header, got %q", got)
	}
	if !strings.Contains(got, "Connection: close") || !strings.Contains(got, "Proxy-Connection: close") {
		t.Fatalf("expected close headers, got %q", got)
	}
	if strings.Contains(got, "Proxy-Authorization") {
		t.Fatalf("proxy-authorization should have been stripped: %q", got)
	}
}

func TestRelayModeRejectsBadCredentials(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	auth := func(user, pass string) bool { return false }
	in := NewIngress(streamwrap.NewPlain(serverConn), auth)

	request := "GET http://example.com/ HTTP/1.1\r\nProxy-Authorization: Basic Zm9vOmJhcg==\r\nHost: example.com\r\n\r\n"
	go func() {
		_, _ = clientConn.Write([]byte(request))
	}()

	_, err := in.ReadRemote(ctx)
	if adapter.KindOf(err) != adapter.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestDisconnectWritesStatusForKind(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	in := NewIngress(streamwrap.NewPlain(serverConn), nil)

	go in.Disconnect(ctx, adapter.BadAuthMethod)

	buf := make([]byte, 512)
	n, err := clientConn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(buf[:n]), "407") || !strings.Contains(string(buf[:n]), "Proxy-Authenticate: Basic") {
		t.Fatalf("unexpected disconnect response: %q", buf[:n])
	}
}

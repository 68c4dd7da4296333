package streamwrap

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestWebSocketRoundTrip(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	cfg := WSConfig{Path: "/ws", Host: "example.com"}

	serverCh := make(chan *WS, 1)
	errCh := make(chan error, 1)
	go func() {
		ws, err := UpgradeServer(NewPlain(serverConn), cfg)
		if err != nil {
			errCh <- err
			return
		}
		serverCh <- ws
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := DialClient(ctx, NewPlain(clientConn), cfg)
	if err != nil {
		t.Fatalf("DialClient: %v", err)
	}

	var server *WS
	select {
	case server = <-serverCh:
	case err := <-errCh:
		t.Fatalf("UpgradeServer: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for server upgrade")
	}

	// net.Pipe writes block until the peer reads, so Send runs
	// concurrently with server.Recv.
	payload := []byte("hello over websocket")
	sendErr := make(chan error, 1)
	go func() { sendErr <- client.Send(ctx, payload) }()
	buf := make([]byte, len(payload))
	n, err := server.Recv(ctx, buf)
	if err != nil {
		t.Fatalf("server.Recv: %v", err)
	}
	if err := <-sendErr; err != nil {
		t.Fatalf("client.Send: %v", err)
	}
	if string(buf[:n]) != string(payload) {
		t.Fatalf("got %q, want %q", buf[:n], payload)
	}
}

func TestWebSocketRecvSplitsOversizedMessageAcrossCallerBuffers(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	cfg := WSConfig{Host: "example.com"}
	serverCh := make(chan *WS, 1)
	go func() {
		ws, _ := UpgradeServer(NewPlain(serverConn), cfg)
		serverCh <- ws
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := DialClient(ctx, NewPlain(clientConn), cfg)
	if err != nil {
		t.Fatalf("DialClient: %v", err)
	}
	server := <-serverCh

	payload := []byte("0123456789")
	sendErr := make(chan error, 1)
	go func() { sendErr <- client.Send(ctx, payload) }()

	first := make([]byte, 4)
	n, err := server.Recv(ctx, first)
	if err != nil || n != 4 {
		t.Fatalf("first Recv: n=%d err=%v", n, err)
	}
	if err := <-sendErr; err != nil {
		t.Fatalf("Send: %v", err)
	}
	second := make([]byte, 6)
	n, err = server.Recv(ctx, second)
	if err != nil || n != 6 {
		t.Fatalf("second Recv: n=%d err=%v", n, err)
	}
	got := string(first) + string(second)
	if got != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

package socks5

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/endpoint"
	"github.com/pichi-router/pichi-go/internal/streamwrap"
)

func TestEgressRoundTripAgainstIngress(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	ingress := NewIngress(streamwrap.NewPlain(serverConn), nil)
	egress := NewEgress(streamwrap.NewPlain(clientConn), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	remote := endpoint.New("example.com", "443")
	done := make(chan error, 1)
	go func() {
		_, err := ingress.ReadRemote(ctx)
		if err != nil {
			done <- err
			return
		}
		done <- ingress.Confirm(ctx)
	}()

	if err := egress.Connect(ctx, remote, nil); err != nil {
		t.Fatalf("egress.Connect: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("ingress side: %v", err)
	}
}

func TestEgressRoundTripWithAuth(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	auth := func(user, pass string) bool { return user == "alice" && pass == "secret" }
	ingress := NewIngress(streamwrap.NewPlain(serverConn), auth)
	egress := NewEgress(streamwrap.NewPlain(clientConn), &Credential{User: "alice", Pass: "secret"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	remote := endpoint.New("10.0.0.1", "80")
	done := make(chan error, 1)
	go func() {
		_, err := ingress.ReadRemote(ctx)
		if err != nil {
			done <- err
			return
		}
		done <- ingress.Confirm(ctx)
	}()

	if err := egress.Connect(ctx, remote, nil); err != nil {
		t.Fatalf("egress.Connect: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("ingress side: %v", err)
	}
}

func TestEgressRejectedByBadCredentials(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	auth := func(user, pass string) bool { return false }
	ingress := NewIngress(streamwrap.NewPlain(serverConn), auth)
	egress := NewEgress(streamwrap.NewPlain(clientConn), &Credential{User: "x", Pass: "y"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		if _, err := ingress.ReadRemote(ctx); err != nil {
			ingress.Disconnect(ctx, adapter.KindOf(err))
		}
	}()

	err := egress.Connect(ctx, endpoint.New("example.com", "80"), nil)
	if err == nil {
		t.Fatalf("expected Connect to fail on bad credentials")
	}
}

package tunnel

import (
	"context"
	"net"
	"testing"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/balancer"
	"github.com/pichi-router/pichi-go/internal/endpoint"
	"github.com/pichi-router/pichi-go/internal/streamwrap"
)

// newPipeIngress builds an Ingress over a throwaway net.Pipe, the shape
// IngressManager.serve constructs one per accepted connection: a fresh
// Ingress every time, sharing whatever Balancer the caller passes in.
func newPipeIngress(t *testing.T, b *balancer.Balancer[endpoint.Endpoint]) *Ingress {
	t.Helper()
	conn, _ := net.Pipe()
	t.Cleanup(func() { conn.Close() })
	return NewIngress(streamwrap.NewPlain(conn), b)
}

func TestTunnelIngressRoundRobinAcrossConnections(t *testing.T) {
	dests := []endpoint.Endpoint{
		endpoint.New("10.0.0.1", "80"),
		endpoint.New("10.0.0.2", "80"),
	}
	b, err := balancer.New(balancer.RoundRobin, dests)
	if err != nil {
		t.Fatalf("balancer.New: %v", err)
	}

	ctx := context.Background()

	// Each connection gets its own Ingress, as IngressManager.serve does
	// per accept, but all of them share b -- the fix for the defect where
	// a fresh Balancer per connection always returned destinations[0].
	first, err := newPipeIngress(t, b).ReadRemote(ctx)
	if err != nil {
		t.Fatalf("ReadRemote: %v", err)
	}
	if first.Host != dests[0].Host {
		t.Fatalf("got %q, want %q", first.Host, dests[0].Host)
	}

	second, err := newPipeIngress(t, b).ReadRemote(ctx)
	if err != nil {
		t.Fatalf("ReadRemote: %v", err)
	}
	if second.Host != dests[1].Host {
		t.Fatalf("got %q, want %q", second.Host, dests[1].Host)
	}

	third, err := newPipeIngress(t, b).ReadRemote(ctx)
	if err != nil {
		t.Fatalf("ReadRemote: %v", err)
	}
	if third.Host != dests[0].Host {
		t.Fatalf("round robin should wrap back to %q, got %q", dests[0].Host, third.Host)
	}
}

func TestTunnelIngressLeastConnPrefersReleasedConnections(t *testing.T) {
	dests := []endpoint.Endpoint{
		endpoint.New("10.0.0.1", "80"),
		endpoint.New("10.0.0.2", "80"),
	}
	b, err := balancer.New(balancer.LeastConn, dests)
	if err != nil {
		t.Fatalf("balancer.New: %v", err)
	}

	ctx := context.Background()

	first := newPipeIngress(t, b)
	dst, err := first.ReadRemote(ctx)
	if err != nil {
		t.Fatalf("ReadRemote: %v", err)
	}
	if dst.Host != dests[0].Host {
		t.Fatalf("got %q, want %q", dst.Host, dests[0].Host)
	}

	second := newPipeIngress(t, b)
	dst, err = second.ReadRemote(ctx)
	if err != nil {
		t.Fatalf("ReadRemote: %v", err)
	}
	if dst.Host != dests[1].Host {
		t.Fatalf("least-conn should move on to the idle destination, got %q", dst.Host)
	}

	// Closing the first connection releases its balancer handle, so a
	// third connection should prefer dests[0] again over
	// dests[1], which still has an outstanding handle from second.
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	third := newPipeIngress(t, b)
	dst, err = third.ReadRemote(ctx)
	if err != nil {
		t.Fatalf("ReadRemote: %v", err)
	}
	if dst.Host != dests[0].Host {
		t.Fatalf("got %q, want %q after releasing its only handle", dst.Host, dests[0].Host)
	}
}

func TestTunnelIngressReleasesHandleExactlyOnceAcrossDisconnectAndClose(t *testing.T) {
	dests := []endpoint.Endpoint{endpoint.New("10.0.0.1", "80")}
	b, err := balancer.New(balancer.LeastConn, dests)
	if err != nil {
		t.Fatalf("balancer.New: %v", err)
	}

	in := newPipeIngress(t, b)
	if _, err := in.ReadRemote(context.Background()); err != nil {
		t.Fatalf("ReadRemote: %v", err)
	}

	// An error path calls Disconnect and then session.Handle's deferred
	// Close still runs; a success path only runs Close. Either order must
	// release the handle exactly once.
	in.Disconnect(context.Background(), adapter.Ok)
	if err := in.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again := newPipeIngress(t, b)
	if _, err := again.ReadRemote(context.Background()); err != nil {
		t.Fatalf("ReadRemote: %v", err)
	}
}

func TestTunnelIngressRejectsEmptyDestinations(t *testing.T) {
	if _, err := balancer.New[endpoint.Endpoint](balancer.Random, nil); err == nil {
		t.Fatalf("expected error constructing a balancer with no destinations")
	}
}

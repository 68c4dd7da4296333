// Package session implements the per-connection orchestrator: it drives
// one accepted connection through IV replay defence, destination parsing,
// optional DNS resolution, routing, self-connect loop prevention, egress
// construction, and bidirectional bridging, converting any failure along
// the way into a protocol-appropriate ingress.Disconnect call.
package session

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/direct"
	"github.com/pichi-router/pichi-go/internal/endpoint"
	"github.com/pichi-router/pichi-go/internal/replay"
	"github.com/pichi-router/pichi-go/internal/router"
)

// replayRejectDelay bounds the random delay a duplicated-IV connection is
// made to wait before being rejected, so a probing client can't time the
// difference between "replayed" and "merely slow".
const replayRejectDelay = 3 * time.Second

// EgressFactory resolves a routed egress name to a constructed, not-yet-
// connected adapter.Egress. Implemented by internal/proxymgr's
// EgressManager; kept as an interface here so session has no import-time
// dependency on the manager's configuration/VO machinery.
type EgressFactory interface {
	MakeEgress(name string) (adapter.Egress, error)
}

// Resolver is the DNS collaborator session consults when the router needs
// resolved IPs to match on. *net.Resolver satisfies
// this directly.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Session drives one accepted connection's full lifecycle.
type Session struct {
	Log         *slog.Logger
	Router      *router.Router
	Replay      *replay.Cache
	Resolver    Resolver
	Egresses    EgressFactory
	IngressName string
	IngressType string
	// LocalAddr is this listener's own host:port, consulted for
	// self-connect loop prevention.
	LocalAddr string
}

// New builds a Session. log may be nil, defaulting to slog.Default().
func New(log *slog.Logger, r *router.Router, rc *replay.Cache, resolver Resolver, egresses EgressFactory, ingressName, ingressType, localAddr string) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		Log:         log.With("ingress", ingressName),
		Router:      r,
		Replay:      rc,
		Resolver:    resolver,
		Egresses:    egresses,
		IngressName: ingressName,
		IngressType: ingressType,
		LocalAddr:   localAddr,
	}
}

// Handle runs the full per-connection lifecycle over an already-
// constructed ingress; constructing the ingress from the accepted socket
// is the caller's responsibility (see internal/proxymgr).
func (s *Session) Handle(ctx context.Context, ingress adapter.Ingress) {
	defer ingress.Close()

	iv, err := ingress.ReadIV(ctx)
	if err != nil {
		ingress.Disconnect(ctx, adapter.KindOf(err))
		return
	}

	if s.Replay.IsDuplicated(iv) {
		s.Log.Warn("rejecting duplicated shadowsocks iv")
		s.rejectAndDisconnect(ctx, ingress, direct.NewRandomReject(replayRejectDelay))
		return
	}

	remote, err := ingress.ReadRemote(ctx)
	if err != nil {
		ingress.Disconnect(ctx, adapter.KindOf(err))
		return
	}

	var resolved []endpoint.Endpoint
	if s.Router.NeedResolving() {
		resolved = s.resolve(ctx, remote)
	}

	if s.isSelfConnect(remote, resolved) {
		s.Log.Warn("rejecting self-connect", "remote", remote.String())
		s.rejectAndDisconnect(ctx, ingress, direct.NewFixedReject(0))
		return
	}

	egressName, ruleName := s.Router.RouteWithRule(router.MatchContext{
		Remote:      remote,
		IngressName: s.IngressName,
		IngressType: s.IngressType,
		Resolved:    resolved,
	})

	egress, err := s.Egresses.MakeEgress(egressName)
	if err != nil {
		ingress.Disconnect(ctx, adapter.KindOf(err))
		return
	}

	if err := egress.Connect(ctx, remote, resolved); err != nil {
		egress.Close()
		ingress.Disconnect(ctx, adapter.KindOf(err))
		return
	}
	defer egress.Close()

	if err := ingress.Confirm(ctx); err != nil {
		return
	}

	s.Log.Info("routed connection",
		"remote", remote.String(),
		"egress", egressName,
		"rule", ruleName,
	)

	bridge(ctx, s.Log, ingress, egress)
}

// rejectAndDisconnect drives a reject-pseudo-egress's always-failing
// Connect and converts the resulting error into an ingress disconnect.
// Since the reject egress can never actually connect, "bridge through a
// reject egress" collapses to the ordinary error-path teardown.
func (s *Session) rejectAndDisconnect(ctx context.Context, ingress adapter.Ingress, reject *direct.RejectEgress) {
	err := reject.Connect(ctx, endpoint.Endpoint{}, nil)
	ingress.Disconnect(ctx, adapter.KindOf(err))
}

// resolve performs DNS resolution for remote.Host, returning an empty
// slice (not an error) on failure so the router can still match on
// non-IP-consuming matchers.
func (s *Session) resolve(ctx context.Context, remote endpoint.Endpoint) []endpoint.Endpoint {
	if remote.Type != endpoint.DomainName {
		return []endpoint.Endpoint{remote}
	}
	addrs, err := s.Resolver.LookupIPAddr(ctx, remote.Host)
	if err != nil {
		return nil
	}
	resolved := make([]endpoint.Endpoint, 0, len(addrs))
	for _, a := range addrs {
		resolved = append(resolved, endpoint.New(a.IP.String(), remote.Port))
	}
	return resolved
}

// isSelfConnect reports whether remote or any resolved address matches
// this listener's own address.
func (s *Session) isSelfConnect(remote endpoint.Endpoint, resolved []endpoint.Endpoint) bool {
	if s.LocalAddr == "" {
		return false
	}
	if remote.String() == s.LocalAddr {
		return true
	}
	for _, e := range resolved {
		if e.String() == s.LocalAddr {
			return true
		}
	}
	return false
}

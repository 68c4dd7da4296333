package proxymgr

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/balancer"
	"github.com/pichi-router/pichi-go/internal/config"
	"github.com/pichi-router/pichi-go/internal/endpoint"
	"github.com/pichi-router/pichi-go/internal/session"
)

// SessionFactory builds the per-ingress Session that processes every
// connection accepted on that ingress. ingressName/ingressType are baked
// into the routing MatchContext the resulting Session produces, and
// localAddr (the listener's own bind address) backs self-connect loop
// prevention.
type SessionFactory func(ingressName, ingressType, localAddr string) *session.Session

// ingressEntry is one live listener plus the configuration it was built
// from; UpdateIngress and EraseIngress close its listener when it is
// replaced or removed. UpdateIngress does not compare configurations:
// every call binds a fresh listener.
type ingressEntry struct {
	vo       config.IngressVO
	listener net.Listener
	cancel   context.CancelFunc
	sess     *session.Session

	// balancer is non-nil only for vo.Type == "tunnel". It is built once
	// here and shared by reference across every connection accepted on
	// this entry, so RoundRobin/LeastConn state persists across
	// connections instead of resetting on each accept.
	balancer *balancer.Balancer[endpoint.Endpoint]
}

// IngressManager owns the set of named, live ingress listeners: a
// sync.RWMutex-guarded map of named resources, updated and erased one
// entry at a time without disturbing the others.
type IngressManager struct {
	log     *slog.Logger
	certs   config.CertLoader
	newSess SessionFactory

	mu      sync.RWMutex
	entries map[string]*ingressEntry
}

// NewIngressManager builds an empty IngressManager. newSess builds the
// Session each accepted connection on a given ingress is handed to; certs
// resolves TLS material for ingresses configured with options.tls.
func NewIngressManager(log *slog.Logger, certs config.CertLoader, newSess SessionFactory) *IngressManager {
	return &IngressManager{
		log:     log,
		certs:   certs,
		newSess: newSess,
		entries: make(map[string]*ingressEntry),
	}
}

// UpdateIngress binds a new listener for vo and replaces any existing entry
// under the same name. The old listener, if any, is closed after the new
// one is already accepting; its accept loop then exits on the now-expected
// "use of closed network connection" error.
func (m *IngressManager) UpdateIngress(vo config.IngressVO) error {
	if err := vo.Validate(); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", vo.Bind)
	if err != nil {
		return adapter.Wrap(adapter.ConnFailure, "failed to bind ingress listener", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	entry := &ingressEntry{vo: vo, listener: listener, cancel: cancel, sess: m.newSess(vo.Name, vo.Type, vo.Bind)}

	if vo.Type == "tunnel" {
		destinations, derr := parseDestinations(vo.Options.Destinations)
		if derr != nil {
			cancel()
			listener.Close()
			return derr
		}
		b, berr := balancer.New(balancer.Parse(vo.Options.Balance), destinations)
		if berr != nil {
			cancel()
			listener.Close()
			return berr
		}
		entry.balancer = b
	}

	m.mu.Lock()
	old := m.entries[vo.Name]
	m.entries[vo.Name] = entry
	m.mu.Unlock()

	go m.acceptLoop(ctx, entry)

	if old != nil {
		old.cancel()
		old.listener.Close()
	}
	return nil
}

// EraseIngress stops and removes the named ingress. Erasing an unknown
// name is a no-op.
func (m *IngressManager) EraseIngress(name string) error {
	m.mu.Lock()
	entry, ok := m.entries[name]
	if ok {
		delete(m.entries, name)
	}
	m.mu.Unlock()

	if ok {
		entry.cancel()
		entry.listener.Close()
	}
	return nil
}

func (m *IngressManager) acceptLoop(ctx context.Context, entry *ingressEntry) {
	for {
		conn, err := entry.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return // replaced or erased: expected teardown
			}
			m.log.Error("ingress accept failed", "ingress", entry.vo.Name, "error", err)
			// An unexpected accept failure removes the entry; a concurrent
			// UpdateIngress may already have replaced it with a live one,
			// which must stay registered.
			m.mu.Lock()
			if m.entries[entry.vo.Name] == entry {
				delete(m.entries, entry.vo.Name)
			}
			m.mu.Unlock()
			return
		}
		go m.serve(entry, conn)
	}
}

func (m *IngressManager) serve(entry *ingressEntry, conn net.Conn) {
	ctx := context.Background()

	transport, err := buildTransport(ctx, conn, entry.vo.Options, m.certs, true)
	if err != nil {
		m.log.Warn("ingress transport setup failed", "ingress", entry.vo.Name, "error", err)
		conn.Close()
		return
	}

	ingress, err := buildIngress(entry.vo, transport, entry.balancer)
	if err != nil {
		m.log.Warn("ingress construction failed", "ingress", entry.vo.Name, "error", err)
		transport.Close()
		return
	}

	entry.sess.Handle(ctx, ingress)
}

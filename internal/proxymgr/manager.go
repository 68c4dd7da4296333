package proxymgr

import (
	"log/slog"
	"net"

	"github.com/pichi-router/pichi-go/internal/config"
	"github.com/pichi-router/pichi-go/internal/replay"
	"github.com/pichi-router/pichi-go/internal/router"
	"github.com/pichi-router/pichi-go/internal/session"
)

// Managers bundles the three named collections (IngressManager,
// EgressManager, RuleManager) plus the collaborators a Session needs to
// build, so cmd/pichi-proxy has a single entry point to wire at startup.
type Managers struct {
	Ingress *IngressManager
	Egress  *EgressManager
	Rules   *RuleManager
	Router  *router.Router
}

// New builds the full manager set over a fresh router with the given
// default egress name, geo collaborator (nil for NoopGeoMatcher) and
// cert loader (nil for config.DefaultCertLoader).
func New(log *slog.Logger, defaultEgress string, geo router.GeoMatcher, certs config.CertLoader) *Managers {
	if log == nil {
		log = slog.Default()
	}
	if certs == nil {
		certs = config.DefaultCertLoader{}
	}

	r := router.New(defaultEgress)
	egressMgr := NewEgressManager(certs, r)
	rc := replay.New(log)

	sessionFactory := func(ingressName, ingressType, localAddr string) *session.Session {
		return session.New(log, r, rc, net.DefaultResolver, egressMgr, ingressName, ingressType, localAddr)
	}
	ingressMgr := NewIngressManager(log, certs, sessionFactory)

	return &Managers{
		Ingress: ingressMgr,
		Egress:  egressMgr,
		Rules:   NewRuleManager(r, geo),
		Router:  r,
	}
}

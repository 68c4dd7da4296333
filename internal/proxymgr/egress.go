package proxymgr

import (
	"sync"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/config"
	"github.com/pichi-router/pichi-go/internal/router"
	"github.com/pichi-router/pichi-go/internal/session"
)

// EgressManager owns the set of named egress configurations and implements
// session.EgressFactory: each MakeEgress call constructs a fresh adapter
// instance from the stored config.EgressVO, since dialing (and, for
// protocols like Shadowsocks/Trojan, the handshake) happens per
// connection.
type EgressManager struct {
	certs  config.CertLoader
	router *router.Router

	mu  sync.RWMutex
	vos map[string]config.EgressVO
}

// NewEgressManager builds an empty EgressManager. router is consulted by
// EraseEgress to refuse erasing an egress the live route table still
// references.
func NewEgressManager(certs config.CertLoader, r *router.Router) *EgressManager {
	return &EgressManager{certs: certs, router: r, vos: make(map[string]config.EgressVO)}
}

// UpdateEgress validates and stores (or replaces) a named egress
// configuration. No live resource is held, so replacement is just a map
// write: in-flight connections already holding a constructed adapter are
// unaffected.
func (m *EgressManager) UpdateEgress(vo config.EgressVO) error {
	if err := vo.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vos[vo.Name] = vo
	return nil
}

// EraseEgress removes a named egress configuration, refusing when the live
// route table still references it by name.
func (m *EgressManager) EraseEgress(name string) error {
	if m.router.IsUsed(name) {
		return adapter.New(adapter.ResInUse, "egress is referenced by the active route")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vos, name)
	return nil
}

// MakeEgress implements session.EgressFactory.
func (m *EgressManager) MakeEgress(name string) (adapter.Egress, error) {
	m.mu.RLock()
	vo, ok := m.vos[name]
	m.mu.RUnlock()
	if !ok {
		return nil, adapter.New(adapter.SemanticError, "unknown egress: "+name)
	}
	return buildEgress(vo, m.certs)
}

var _ session.EgressFactory = (*EgressManager)(nil)

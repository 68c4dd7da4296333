package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pichi-router/pichi-go/internal/config"
	"github.com/pichi-router/pichi-go/internal/proxymgr"
	"github.com/pichi-router/pichi-go/internal/router"
)

func routerMatchContext(ingressType string) router.MatchContext {
	return router.MatchContext{IngressType: ingressType}
}

func TestBootstrapRegistersDirectEvenWithEmptyConfig(t *testing.T) {
	mgrs := proxymgr.New(nil, "direct", nil, nil)
	cfg := &config.Config{Route: config.RouteVO{Default: "direct"}}

	require.NoError(t, bootstrap(mgrs, cfg))

	_, err := mgrs.Egress.MakeEgress("direct")
	require.NoError(t, err)
}

func TestBootstrapWiresRulesBeforeRoute(t *testing.T) {
	mgrs := proxymgr.New(nil, "direct", nil, nil)
	cfg := &config.Config{
		Egresses: []config.EgressVO{{Name: "proxy1", Type: "direct"}},
		Rules:    []config.RuleVO{{Name: "r1", IngressType: []string{"http"}}},
		Route: config.RouteVO{
			Default: "direct",
			Route:   []config.RouteEntryVO{{Rule: []string{"r1"}, Egress: "proxy1"}},
		},
	}

	require.NoError(t, bootstrap(mgrs, cfg))

	got := mgrs.Router.Route(routerMatchContext("http"))
	require.Equal(t, "proxy1", got)
}

func TestBootstrapAcceptsUnknownRuleReference(t *testing.T) {
	mgrs := proxymgr.New(nil, "direct", nil, nil)
	cfg := &config.Config{
		Route: config.RouteVO{
			Default: "direct",
			Route:   []config.RouteEntryVO{{Rule: []string{"missing"}, Egress: "direct"}},
		},
	}

	require.NoError(t, bootstrap(mgrs, cfg))

	got := mgrs.Router.Route(routerMatchContext("http"))
	require.Equal(t, "direct", got, "a route entry naming an unknown rule never matches, so routing falls through to default")
}

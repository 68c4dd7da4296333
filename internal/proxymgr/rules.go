package proxymgr

import (
	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/config"
	"github.com/pichi-router/pichi-go/internal/router"
)

// RuleManager compiles config.RuleVO/config.RouteVO into the live
// router.Router state. It is a thin compiling wrapper: router.Router
// itself holds no notion of configuration VOs, so this is where that
// boundary is crossed.
type RuleManager struct {
	router *router.Router
	geo    router.GeoMatcher
}

// NewRuleManager builds a RuleManager over an existing router, using geo
// for any rule with a populated Country matcher.
func NewRuleManager(r *router.Router, geo router.GeoMatcher) *RuleManager {
	if geo == nil {
		geo = router.NoopGeoMatcher{}
	}
	return &RuleManager{router: r, geo: geo}
}

// UpdateRule compiles vo into a router.Rule (one matcher per populated VO
// field, OR'd together) and installs it.
func (m *RuleManager) UpdateRule(vo config.RuleVO) error {
	if err := vo.Validate(); err != nil {
		return err
	}
	rule, err := compileRule(vo, m.geo)
	if err != nil {
		return err
	}
	m.router.AddRule(rule)
	return nil
}

// EraseRule removes a named rule, refusing when the live route table still
// references it (delegates to router.Router.EraseRule).
func (m *RuleManager) EraseRule(name string) error {
	return m.router.EraseRule(name)
}

// UpdateRoute compiles vo's priority-ordered (rule names -> egress name)
// entries and installs them as the live route table.
func (m *RuleManager) UpdateRoute(vo config.RouteVO) error {
	if err := vo.Validate(); err != nil {
		return err
	}
	entries := make([]router.Entry, 0, len(vo.Route))
	for _, e := range vo.Route {
		entries = append(entries, router.Entry{RuleNames: e.Rule, EgressName: e.Egress})
	}
	m.router.UpdateRoute(vo.Default, entries)
	return nil
}

func compileRule(vo config.RuleVO, geo router.GeoMatcher) (*router.Rule, error) {
	rule := &router.Rule{Name: vo.Name}

	for _, cidr := range vo.Range {
		matcher, err := router.NewCIDRMatcher(cidr)
		if err != nil {
			return nil, adapter.Wrap(adapter.SemanticError, "invalid range in rule "+vo.Name, err)
		}
		rule.Matchers = append(rule.Matchers, matcher)
	}
	for _, name := range vo.IngressName {
		rule.Matchers = append(rule.Matchers, router.NewIngressNameMatcher(name))
	}
	for _, typ := range vo.IngressType {
		rule.Matchers = append(rule.Matchers, router.NewIngressTypeMatcher(typ))
	}
	for _, pattern := range vo.Pattern {
		matcher, err := router.NewHostRegexMatcher(pattern)
		if err != nil {
			return nil, adapter.Wrap(adapter.SemanticError, "invalid pattern in rule "+vo.Name, err)
		}
		rule.Matchers = append(rule.Matchers, matcher)
	}
	for _, domain := range vo.Domain {
		matcher, err := router.NewDomainSuffixMatcher(domain)
		if err != nil {
			return nil, adapter.Wrap(adapter.SemanticError, "invalid domain in rule "+vo.Name, err)
		}
		rule.Matchers = append(rule.Matchers, matcher)
	}
	for _, country := range vo.Country {
		rule.Matchers = append(rule.Matchers, router.NewCountryMatcher(geo, country))
	}

	if len(rule.Matchers) == 0 {
		return nil, adapter.New(adapter.SemanticError, "rule "+vo.Name+" has no matchers")
	}
	return rule, nil
}

// Package router implements the routing engine: a named collection of
// rules, each a disjunction ("any of these matchers hold") of
// address/ingress/country matchers, plus a route table mapping rule
// references to an egress name with a default fallback.
//
// Routing is a pure function of the compiled state, so repeated calls
// with identical inputs always pick the same egress.
package router

import (
	"net"
	"regexp"
	"strings"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/endpoint"
)

// GeoMatcher is the injected MaxMind country-DB collaborator.
// NoopGeoMatcher below satisfies it for tests and geo-less deployments.
type GeoMatcher interface {
	Match(ip net.IP, isoCode string) bool
}

// NoopGeoMatcher always reports no match; the default when no MaxMind DB
// is configured.
type NoopGeoMatcher struct{}

func (NoopGeoMatcher) Match(net.IP, string) bool { return false }

// MatchContext is everything a matcher may consult about one connection.
type MatchContext struct {
	Remote      endpoint.Endpoint
	IngressName string
	IngressType string
	Resolved    []endpoint.Endpoint
}

// Matcher is one test inside a Rule; Rule.Match is true iff any of its
// Matchers return true. A rule describes "any of these conditions hold",
// never a conjunction.
type Matcher interface {
	Match(ctx MatchContext) bool
	// NeedsResolving reports whether this matcher consumes resolved IPs.
	NeedsResolving() bool
}

// cidrMatcher matches when ctx.Resolved contains an address of the same
// family as net that is also a member of net.
type cidrMatcher struct {
	network *net.IPNet
}

// NewCIDRMatcher parses cidr (either family) into a Matcher.
func NewCIDRMatcher(cidr string) (Matcher, error) {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, adapter.Wrap(adapter.Misc, "invalid CIDR", err)
	}
	return &cidrMatcher{network: network}, nil
}

func (m *cidrMatcher) NeedsResolving() bool { return true }

func (m *cidrMatcher) Match(ctx MatchContext) bool {
	want4 := m.network.IP.To4() != nil
	for _, e := range ctx.Resolved {
		ip := net.ParseIP(e.Host)
		if ip == nil {
			continue
		}
		is4 := ip.To4() != nil
		if is4 != want4 {
			continue
		}
		if m.network.Contains(ip) {
			return true
		}
	}
	return false
}

// ingressNameMatcher matches the ingress the connection arrived on by
// exact name.
type ingressNameMatcher struct{ name string }

func NewIngressNameMatcher(name string) Matcher { return &ingressNameMatcher{name: name} }

func (m *ingressNameMatcher) NeedsResolving() bool       { return false }
func (m *ingressNameMatcher) Match(ctx MatchContext) bool { return ctx.IngressName == m.name }

// ingressTypeMatcher matches the ingress protocol type (e.g. "http",
// "socks5").
type ingressTypeMatcher struct{ typ string }

func NewIngressTypeMatcher(typ string) Matcher { return &ingressTypeMatcher{typ: typ} }

func (m *ingressTypeMatcher) NeedsResolving() bool       { return false }
func (m *ingressTypeMatcher) Match(ctx MatchContext) bool { return ctx.IngressType == m.typ }

// hostRegexMatcher matches ctx.Remote.Host against a compiled regexp.
type hostRegexMatcher struct{ re *regexp.Regexp }

// NewHostRegexMatcher compiles pattern as a host regex matcher.
func NewHostRegexMatcher(pattern string) (Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, adapter.Wrap(adapter.Misc, "invalid host regex", err)
	}
	return &hostRegexMatcher{re: re}, nil
}

func (m *hostRegexMatcher) NeedsResolving() bool       { return false }
func (m *hostRegexMatcher) Match(ctx MatchContext) bool { return m.re.MatchString(ctx.Remote.Host) }

// domainSuffixMatcher matches ctx.Remote.Host by case-insensitive suffix,
// per MatchDomain below.
type domainSuffixMatcher struct{ suffix string }

// NewDomainSuffixMatcher builds a suffix matcher. suffix must not start
// with '.'; lowercased at construction time since matching
// is case-insensitive.
func NewDomainSuffixMatcher(suffix string) (Matcher, error) {
	if strings.HasPrefix(suffix, ".") {
		return nil, adapter.New(adapter.Misc, "domain suffix must not start with '.'")
	}
	return &domainSuffixMatcher{suffix: strings.ToLower(suffix)}, nil
}

func (m *domainSuffixMatcher) NeedsResolving() bool { return false }

func (m *domainSuffixMatcher) Match(ctx MatchContext) bool {
	// An IP-typed endpoint never matches a domain rule, even when its
	// textual host happens to end in the configured suffix.
	if ctx.Remote.Type != endpoint.DomainName {
		return false
	}
	ok, _ := MatchDomain(ctx.Remote.Host, m.suffix)
	return ok
}

// MatchDomain reports whether sub matches dom: case-insensitive
// equality, or sub ends with "."+dom. A sub beginning with '.' is
// rejected with adapter.Misc.
func MatchDomain(sub, dom string) (bool, error) {
	if strings.HasPrefix(sub, ".") {
		return false, adapter.New(adapter.Misc, "subject must not start with '.'")
	}
	sub = strings.ToLower(sub)
	dom = strings.ToLower(dom)
	if sub == dom {
		return true, nil
	}
	return strings.HasSuffix(sub, "."+dom), nil
}

// countryMatcher matches when any resolved address reports isoCode via
// the injected GeoMatcher.
type countryMatcher struct {
	geo     GeoMatcher
	isoCode string
}

// NewCountryMatcher builds a country matcher delegating to geo.
func NewCountryMatcher(geo GeoMatcher, isoCode string) Matcher {
	return &countryMatcher{geo: geo, isoCode: isoCode}
}

func (m *countryMatcher) NeedsResolving() bool { return true }

func (m *countryMatcher) Match(ctx MatchContext) bool {
	for _, e := range ctx.Resolved {
		ip := net.ParseIP(e.Host)
		if ip == nil {
			continue
		}
		if m.geo.Match(ip, m.isoCode) {
			return true
		}
	}
	return false
}

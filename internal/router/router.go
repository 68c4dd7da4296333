package router

import (
	"sync"

	"github.com/pichi-router/pichi-go/internal/adapter"
)

// Rule is a named, ordered list of Matchers. Rule.Match is true iff any
// matcher matches.
type Rule struct {
	Name     string
	Matchers []Matcher
}

// Match evaluates the rule's matchers in configured order, short-circuiting
// on the first true (order affects nothing observable; the result is OR).
func (r *Rule) Match(ctx MatchContext) bool {
	for _, m := range r.Matchers {
		if m.Match(ctx) {
			return true
		}
	}
	return false
}

func (r *Rule) needsResolving() bool {
	for _, m := range r.Matchers {
		if m.NeedsResolving() {
			return true
		}
	}
	return false
}

// Entry is one tuple of the active route table: if any of RuleNames
// matches, Route() returns EgressName.
type Entry struct {
	RuleNames  []string
	EgressName string
}

// Router holds the live rule set and route table and is safe for
// concurrent use.
type Router struct {
	mu      sync.RWMutex
	rules   map[string]*Rule
	entries []Entry
	dflt    string
}

// New builds a Router with an empty rule set and a default egress name.
func New(defaultEgress string) *Router {
	return &Router{
		rules: make(map[string]*Rule),
		dflt:  defaultEgress,
	}
}

// AddRule inserts or replaces a compiled rule.
func (r *Router) AddRule(rule *Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.Name] = rule
}

// EraseRule removes rule by name. Fails with adapter.ResInUse if any
// currently active route entry references it.
func (r *Router) EraseRule(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		for _, n := range e.RuleNames {
			if n == name {
				return adapter.New(adapter.ResInUse, "rule is referenced by the active route")
			}
		}
	}
	delete(r.rules, name)
	return nil
}

// UpdateRoute replaces the active route table wholesale: entries in
// priority order plus a new default egress name.
func (r *Router) UpdateRoute(defaultEgress string, entries []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dflt = defaultEgress
	r.entries = entries
}

// DefaultRuleName labels the fallback decision in logs and RouteWithRule
// results when no configured rule matched.
const DefaultRuleName = "default"

// Route picks the egress for one connection: the first route entry with
// a matching rule wins; otherwise the default egress name. Pure function
// of state and inputs.
func (r *Router) Route(ctx MatchContext) string {
	egress, _ := r.RouteWithRule(ctx)
	return egress
}

// RouteWithRule is Route plus the name of the rule that decided it, or
// DefaultRuleName when the default egress was chosen.
func (r *Router) RouteWithRule(ctx MatchContext) (egressName, ruleName string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if name, ok := r.matchingRule(e.RuleNames, ctx); ok {
			return e.EgressName, name
		}
	}
	return r.dflt, DefaultRuleName
}

func (r *Router) matchingRule(ruleNames []string, ctx MatchContext) (string, bool) {
	for _, name := range ruleNames {
		rule, ok := r.rules[name]
		if !ok {
			continue
		}
		if rule.Match(ctx) {
			return name, true
		}
	}
	return "", false
}

// NeedResolving reports whether DNS resolution is worth attempting before
// calling Route: true iff some rule referenced by the live route table
// uses a matcher that consumes resolved IPs.
func (r *Router) NeedResolving() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		for _, name := range e.RuleNames {
			if rule, ok := r.rules[name]; ok && rule.needsResolving() {
				return true
			}
		}
	}
	return false
}

// IsUsed reports whether egressName is referenced by the live route table,
// either as the default or inside any entry.
func (r *Router) IsUsed(egressName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.dflt == egressName {
		return true
	}
	for _, e := range r.entries {
		if e.EgressName == egressName {
			return true
		}
	}
	return false
}

// Package balancer implements the load-balancing strategies the Tunnel
// ingress uses to pick one element from a list of equally-valid
// candidates.
package balancer

import (
	"math/rand"
	"sync"

	"github.com/pichi-router/pichi-go/internal/adapter"
)

// Strategy is the closed enumeration of balancing strategies.
type Strategy string

const (
	Random     Strategy = "random"
	RoundRobin Strategy = "round_robin"
	LeastConn  Strategy = "least_conn"

	DefaultStrategy = Random
)

// IsValid reports whether s is one of the known strategies.
func (s Strategy) IsValid() bool {
	switch s {
	case Random, RoundRobin, LeastConn:
		return true
	default:
		return false
	}
}

// Parse resolves s to a Strategy, falling back to DefaultStrategy for empty
// or unrecognized input.
func Parse(s string) Strategy {
	strategy := Strategy(s)
	if strategy.IsValid() {
		return strategy
	}
	return DefaultStrategy
}

// Balancer selects one element of a fixed, non-empty candidate list. It
// is safe for concurrent use: Select/Release share a mutex.
type Balancer[T any] struct {
	strategy Strategy

	mu      sync.Mutex
	items   []T
	cursor  int
	useCnt  []int
	tracked map[int]int // item index -> in-flight handle count, for Release bookkeeping
}

// New builds a Balancer over items (len(items) must be >= 1) using
// strategy.
func New[T any](strategy Strategy, items []T) (*Balancer[T], error) {
	if len(items) == 0 {
		return nil, adapter.New(adapter.Misc, "balancer requires at least one item")
	}
	if !strategy.IsValid() {
		strategy = DefaultStrategy
	}
	return &Balancer[T]{
		strategy: strategy,
		items:    items,
		useCnt:   make([]int, len(items)),
		tracked:  make(map[int]int),
	}, nil
}

// Handle identifies a previously Select-ed item so Release can find it
// again; it is opaque to callers.
type Handle struct {
	index int
}

// Select returns the next item per the configured strategy, along with a
// Handle to pass to Release once the caller is done with it.
func (b *Balancer[T]) Select() (T, Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var idx int
	switch b.strategy {
	case RoundRobin:
		idx = b.cursor
		b.cursor = (b.cursor + 1) % len(b.items)
	case LeastConn:
		idx = 0
		for i, n := range b.useCnt {
			if n < b.useCnt[idx] {
				idx = i
			}
		}
	default: // Random
		idx = rand.Intn(len(b.items))
	}

	b.useCnt[idx]++
	b.tracked[idx]++
	return b.items[idx], Handle{index: idx}
}

// Release decrements the use-counter an earlier Select incremented.
// Releasing a Handle this Balancer never issued fails with adapter.Misc.
func (b *Balancer[T]) Release(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h.index < 0 || h.index >= len(b.items) || b.tracked[h.index] == 0 {
		return adapter.New(adapter.Misc, "release of untracked balancer handle")
	}
	b.tracked[h.index]--
	if b.useCnt[h.index] > 0 {
		b.useCnt[h.index]--
	}
	return nil
}

// Len reports the number of candidate items.
func (b *Balancer[T]) Len() int {
	return len(b.items)
}

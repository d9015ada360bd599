package container

import (
	"sort"
	"sync"
)

// Fallback is consulted when no provider is registered for a key. It returns
// true after registering one, so the lookup can be retried.
type Fallback func(c *Container, key Key) (bool, error)

// registry maps keys to providers. It is shared by a container and its forks.
type registry struct {
	mu        sync.RWMutex
	providers map[Key]*Provider
	tags      map[string][]Key
	fallbacks []Fallback
}

func newRegistry() *registry {
	return &registry{
		providers: make(map[Key]*Provider),
		tags:      make(map[string][]Key),
	}
}

// set installs p for key and returns the provider it replaced, if any.
func (r *registry) set(key Key, p *Provider) *Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.providers[key]
	r.providers[key] = p
	return old
}

func (r *registry) lookup(key Key) (*Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[key]
	return p, ok
}

func (r *registry) remove(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, key)
}

func (r *registry) keys() []Key {
	r.mu.RLock()
	out := make([]Key, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (r *registry) tag(tag string, keys []Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[tag] = append(r.tags[tag], keys...)
}

func (r *registry) tagged(tag string) []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Key(nil), r.tags[tag]...)
}

func (r *registry) addFallback(fb Fallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, fb)
}

func (r *registry) fallbackList() []Fallback {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Fallback(nil), r.fallbacks...)
}

package container

import (
	"time"
)

// Scope names a lifetime boundary.
type Scope string

const (
	// AppScope instances live as long as the container and are destroyed by Cleanup.
	AppScope Scope = "app"

	// RequestScope instances live for one EnterScope activation.
	RequestScope Scope = "request"

	// TransientScope instances are built on every resolve. Those built while a
	// scope is active are destroyed with it.
	TransientScope Scope = "transient"
)

// ScopeInfo describes the active scope of a container.
type ScopeInfo struct {
	Name Scope
	// ID is unique per activation.
	ID      string
	Started time.Time

	// Keys lists cached and tracked instances in creation order.
	Keys []Key
}

// activeScope is the single non-APP scope a container may have open.
type activeScope struct {
	name    Scope
	id      string
	started time.Time
	cache   *scopeCache
}

func (s *activeScope) info() ScopeInfo {
	return ScopeInfo{Name: s.name, ID: s.id, Started: s.started, Keys: s.cache.keys()}
}

// scopeEntry remembers the provider that produced an instance so teardown
// runs that provider's destroy hook even after the key was overridden.
type scopeEntry struct {
	key      Key
	instance any
	provider *Provider
	indexed  bool
}

// scopeCache holds instances in insertion order of first resolution.
type scopeCache struct {
	entries []scopeEntry
	index   map[Key]int
}

func newScopeCache() *scopeCache {
	return &scopeCache{index: make(map[Key]int)}
}

func (s *scopeCache) get(key Key) (any, bool) {
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.entries[i].instance, true
}

// put stores an instance. A second write for the same key keeps the original
// position and replaces the instance (last write wins).
func (s *scopeCache) put(key Key, instance any, p *Provider) {
	e := scopeEntry{key: key, instance: instance, provider: p, indexed: true}
	if i, ok := s.index[key]; ok {
		s.entries[i] = e
		return
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, e)
}

// track records an instance for teardown without making it resolvable.
func (s *scopeCache) track(key Key, instance any, p *Provider) {
	s.entries = append(s.entries, scopeEntry{key: key, instance: instance, provider: p})
}

func (s *scopeCache) remove(key Key) (scopeEntry, bool) {
	i, ok := s.index[key]
	if !ok {
		return scopeEntry{}, false
	}
	e := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, key)
	for j := i; j < len(s.entries); j++ {
		if s.entries[j].indexed {
			s.index[s.entries[j].key] = j
		}
	}
	return e, true
}

// drain empties the cache and returns what it held.
func (s *scopeCache) drain() []scopeEntry {
	out := s.entries
	s.entries = nil
	s.index = make(map[Key]int)
	return out
}

func (s *scopeCache) keys() []Key {
	out := make([]Key, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.key)
	}
	return out
}

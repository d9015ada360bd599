package container

import "sync"

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider bundles related registrations.
//
// Register binds keys into the container and must not resolve anything.
// Boot is called after every provider has been registered, so resolving is
// safe there.
//
//	type DatabaseProvider struct{ container.BaseProvider }
//
//	func (p *DatabaseProvider) Register(c *container.Container) error {
//	    return c.Register(container.KeyOf[*Database](),
//	        container.WithProvider(NewDatabase),
//	        container.WithScope(container.RequestScope),
//	        container.WithInitHook("Connect"),
//	        container.WithDestroyHook("Close"))
//	}
type ServiceProvider interface {
	Register(c *Container) error
	Boot(c *Container) error

	// Provides lists the keys a deferred provider registers.
	Provides() []Key

	// IsDeferred reports whether Register should wait until one of the
	// Provides() keys is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable no-op implementation of Boot, Provides and
// IsDeferred.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []Key         { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── Providers ─────────────────────────────────────────────────────────────────

// Providers registers and boots ServiceProviders, loading deferred ones the
// first time one of their keys is resolved.
type Providers struct {
	c *Container

	mu         sync.Mutex
	eager      []ServiceProvider
	deferred   map[Key]ServiceProvider
	loads      map[ServiceProvider]*deferredLoad
	registered map[ServiceProvider]bool
	booted     bool
}

// deferredLoad runs a deferred provider's Register once. Callers resolving
// one of its keys meanwhile wait for it to finish.
type deferredLoad struct {
	once sync.Once
	err  error
}

// NewProviders creates a Providers bound to c.
func NewProviders(c *Container) *Providers {
	r := &Providers{
		c:          c,
		deferred:   make(map[Key]ServiceProvider),
		loads:      make(map[ServiceProvider]*deferredLoad),
		registered: make(map[ServiceProvider]bool),
	}
	c.OnMissing(r.load)
	return r
}

// Register adds a provider and calls its Register unless it is deferred.
// A provider registered after Boot is booted immediately.
func (r *Providers) Register(p ServiceProvider) error {
	r.mu.Lock()
	if r.registered[p] {
		r.mu.Unlock()
		return nil
	}
	r.registered[p] = true

	if p.IsDeferred() {
		for _, key := range p.Provides() {
			r.deferred[key] = p
		}
		r.mu.Unlock()
		return nil
	}
	booted := r.booted
	r.mu.Unlock()

	if err := p.Register(r.c); err != nil {
		return err
	}

	r.mu.Lock()
	r.eager = append(r.eager, p)
	r.mu.Unlock()

	if booted {
		return p.Boot(r.c)
	}
	return nil
}

// Boot calls Boot on every eager provider, once.
func (r *Providers) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	eager := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, p := range eager {
		if err := p.Boot(r.c); err != nil {
			return err
		}
	}
	return nil
}

// Booted reports whether Boot has been called.
func (r *Providers) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// List returns the eager providers in registration order.
func (r *Providers) List() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}

// load is the container fallback that registers a deferred provider on demand.
// The provider's keys stay deferred until Register has returned, so forks
// resolving them concurrently block instead of auto-wiring the type.
func (r *Providers) load(c *Container, key Key) (bool, error) {
	r.mu.Lock()
	p, ok := r.deferred[key]
	if !ok {
		r.mu.Unlock()
		return false, nil
	}
	l := r.loads[p]
	if l == nil {
		l = &deferredLoad{}
		r.loads[p] = l
	}
	r.mu.Unlock()

	l.once.Do(func() { l.err = r.registerDeferred(c, p) })
	if l.err != nil {
		return false, l.err
	}
	return true, nil
}

// registerDeferred registers p, drops its deferred keys and boots it when the
// registry has already booted. A failed Register keeps the keys deferred and
// every later load returns the same error.
func (r *Providers) registerDeferred(c *Container, p ServiceProvider) error {
	if err := p.Register(c); err != nil {
		return err
	}

	r.mu.Lock()
	for _, k := range p.Provides() {
		delete(r.deferred, k)
	}
	delete(r.loads, p)
	booted := r.booted
	r.mu.Unlock()

	if booted {
		return p.Boot(c)
	}
	return nil
}

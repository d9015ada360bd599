package container

import (
	"errors"
	"fmt"
	"reflect"
)

// frame is one entry of the resolution stack.
type frame struct {
	key   Key
	scope Scope
}

// resolve is the resolution state machine shared by Resolve and ResolveAsync.
func (c *Container) resolve(rc *call, key Key) (any, error) {
	if key.IsZero() {
		return nil, &ResolutionError{Key: key, Reason: "zero key", Path: c.path()}
	}

	// 1. active scope cache
	if c.active != nil {
		if inst, ok := c.active.cache.get(key); ok {
			return inst, nil
		}
	}

	// 2. APP cache
	if inst, ok := c.core.appInstance(key); ok {
		return inst, nil
	}

	// 3. provider lookup
	p, err := c.providerFor(key)
	if err != nil {
		return nil, err
	}

	// 4. scope compatibility
	if err := c.checkScope(key, p); err != nil {
		return nil, err
	}

	// 5. cycle check
	for _, f := range c.stack {
		if f.key == key {
			chain := append(c.path(), key)
			return nil, &CircularDependencyError{Chain: chain}
		}
	}

	// 6. produce
	inst, err := c.produce(rc, key, p)
	if err != nil {
		return nil, err
	}

	// 7. cache store
	c.store(key, p, inst)
	return inst, nil
}

// providerFor returns the registered provider, consults fallbacks, and finally
// synthesizes one for unregistered constructible types.
func (c *Container) providerFor(key Key) (*Provider, error) {
	if p, ok := c.core.registry.lookup(key); ok {
		return p, nil
	}
	for _, fb := range c.core.registry.fallbackList() {
		ok, err := fb(c, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if p, ok := c.core.registry.lookup(key); ok {
			return p, nil
		}
	}
	if key.name == "" && constructible(key.typ) {
		return &Provider{build: autowireBuild(key.typ), scope: RequestScope, synthesized: true}, nil
	}
	return nil, &ResolutionError{Key: key, Reason: "no provider registered", Path: c.path()}
}

// checkScope allows APP providers everywhere, scoped providers only inside a
// matching active scope or while an APP provider's graph is being built.
func (c *Container) checkScope(key Key, p *Provider) error {
	switch {
	case p.scope == AppScope, p.scope == TransientScope, p.synthesized:
		return nil
	case c.active != nil && c.active.name == p.scope:
		return nil
	}
	for _, f := range c.stack {
		if f.scope == AppScope {
			return nil
		}
	}
	var active Scope
	if c.active != nil {
		active = c.active.name
	}
	return &ScopeError{Key: key, Required: p.scope, Active: active}
}

// produce pushes key, runs the provider and pops key on every exit path.
// Errors that did not come from the container are wrapped in a ProviderError.
func (c *Container) produce(rc *call, key Key, p *Provider) (inst any, err error) {
	depth := len(c.stack)
	c.stack = append(c.stack, frame{key: key, scope: p.scope})
	defer func() {
		c.stack = c.stack[:depth]
		if r := recover(); r != nil {
			inst, err = nil, &ProviderError{Key: key, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	inst, err = p.produce(rc)
	if err != nil && !errors.Is(err, ErrDependency) {
		err = &ProviderError{Key: key, Err: err}
	}
	return inst, err
}

// store caches inst under the provider's scope. Transient instances are only
// tracked for teardown by the active scope. A scoped instance built for an app
// graph with no matching scope active is not cached; if it has a destroy hook
// it is tracked by the app cache so Cleanup tears it down.
func (c *Container) store(key Key, p *Provider, inst any) {
	switch {
	case p.scope == AppScope:
		c.core.putAppInstance(key, inst, p)
	case p.scope == TransientScope:
		if c.active != nil {
			c.active.cache.track(key, inst, p)
		}
	case c.active != nil && c.active.name == p.scope:
		c.active.cache.put(key, inst, p)
	case p.destroyHook != "":
		c.core.trackAppInstance(key, inst, p)
	}
}

// construct auto-wires t. Every exported field is a constructor parameter
// resolved by its declared type; `inject:"Name"` resolves a Named key and
// `inject:"-"` skips the field.
func (c *Container) construct(rc *call, t reflect.Type) (any, error) {
	st, ptr := t, false
	if t.Kind() == reflect.Pointer {
		st, ptr = t.Elem(), true
	}

	v := reflect.New(st)
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("inject")
		if tag == "-" {
			continue
		}
		if untyped(field.Type) {
			return nil, &ConfigurationError{
				Subject: st.String() + "." + field.Name,
				Reason:  "parameter lacks a type declaration",
			}
		}

		dep, err := c.resolveValue(rc, Key{typ: field.Type, name: tag})
		if err != nil {
			return nil, err
		}
		v.Elem().Field(i).Set(dep)
	}

	if ptr {
		return v.Interface(), nil
	}
	return v.Elem().Interface(), nil
}

// resolveValue resolves key and converts the instance to a value assignable
// to key's type.
func (c *Container) resolveValue(rc *call, key Key) (reflect.Value, error) {
	dep, err := c.resolve(rc, key)
	if err != nil {
		return reflect.Value{}, err
	}
	if dep == nil {
		return reflect.Zero(key.typ), nil
	}
	dv := reflect.ValueOf(dep)
	if !dv.Type().AssignableTo(key.typ) {
		return reflect.Value{}, &ResolutionError{
			Key:    key,
			Reason: "provider returned " + dv.Type().String(),
			Path:   c.path(),
		}
	}
	return dv, nil
}

// path returns a copy of the keys currently on the stack.
func (c *Container) path() []Key {
	if len(c.stack) == 0 {
		return nil
	}
	out := make([]Key, len(c.stack))
	for i, f := range c.stack {
		out[i] = f.key
	}
	return out
}

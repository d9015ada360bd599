package container

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ── Container ─────────────────────────────────────────────────────────────────

// core is the state a container shares with its forks.
type core struct {
	registry *registry

	appMu sync.Mutex
	app   *scopeCache

	pluginMu sync.RWMutex
	plugins  []Plugin

	logger *zap.Logger
}

// Container is the dependency-injection container.
//
// It supports:
//   - Register / OverrideProvider with app or named scopes
//   - Resolve (blocking) and ResolveAsync (awaits pending factories and hooks)
//   - auto-wiring of unregistered struct types
//   - EnterScope / EnterScopeAsync with guaranteed teardown
//   - init and destroy hooks, Cleanup for the app scope
//   - Tags, plugins, deferred service providers
//
// The registry and app instances are safe for concurrent use. The active scope
// and the resolution stack belong to one unit of work: give each concurrent
// unit its own container with Fork.
type Container struct {
	core   *core
	active *activeScope
	stack  []frame
}

// Option configures a Container.
type Option func(*core)

// WithLogger sets the logger used for scope and hook events.
func WithLogger(l *zap.Logger) Option {
	return func(c *core) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPlugins installs resolution plugins.
func WithPlugins(plugins ...Plugin) Option {
	return func(c *core) { c.plugins = append(c.plugins, plugins...) }
}

// New creates an empty container.
func New(opts ...Option) *Container {
	co := &core{
		registry: newRegistry(),
		app:      newScopeCache(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(co)
	}
	return &Container{core: co}
}

// Fork returns a container sharing this one's registry, plugins and app
// instances, with its own scope and resolution stack.
//
//	reqContainer := app.Fork()
//	err := reqContainer.EnterScopeAsync(ctx, container.RequestScope, handle)
func (c *Container) Fork() *Container {
	return &Container{core: c.core}
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger { return c.core.logger }

// ── Registration ──────────────────────────────────────────────────────────────

// Register binds key to a provider, replacing any previous one.
//
// With neither WithImplementation nor WithProvider the key binds to its own
// type, which must then be a struct or pointer to struct. Supplying both is a
// configuration error. The scope defaults to AppScope.
//
//	c.Register(container.KeyOf[*ServiceB]())
//	c.Register(container.KeyOf[*ServiceA](), container.WithScope(container.RequestScope))
//	c.Register(container.KeyOf[Repository](),
//	    container.WithImplementation(reflect.TypeFor[*SQLRepository]()))
//	c.Register(container.KeyOf[*DB](),
//	    container.WithProvider(func() (*DB, error) { return Open(dsn) }),
//	    container.WithScope(container.RequestScope),
//	    container.WithInitHook("Connect"),
//	    container.WithDestroyHook("Close"))
func (c *Container) Register(key Key, opts ...RegisterOption) error {
	if key.IsZero() {
		return &ConfigurationError{Subject: key.String(), Reason: "zero key"}
	}

	r := registration{scope: AppScope}
	for _, opt := range opts {
		opt(&r)
	}
	if r.implementation != nil && r.provider != nil {
		return &ConfigurationError{Subject: key.String(), Reason: "both implementation and provider supplied"}
	}
	if r.scope == "" {
		return &ConfigurationError{Subject: key.String(), Reason: "empty scope"}
	}

	var (
		b   build
		err error
	)
	switch {
	case r.provider != nil:
		b, err = c.providerBuild(key, r.provider)
	case r.implementation != nil:
		b, err = buildFor(key.String(), r.implementation)
	default:
		if !constructible(key.typ) {
			return &ConfigurationError{Subject: key.String(), Reason: "no implementation or provider for a type that cannot be auto-wired"}
		}
		b = autowireBuild(key.typ)
	}
	if err != nil {
		return err
	}

	c.install(key, &Provider{
		build:       b,
		scope:       r.scope,
		initHook:    r.initHook,
		destroyHook: r.destroyHook,
	})
	return nil
}

// OverrideProvider replaces the provider for key unconditionally, dropping any
// hooks of the previous registration. The scope defaults to RequestScope.
// Intended for substituting dependencies in tests.
//
//	c.OverrideProvider(container.KeyOf[Mailer](), func() Mailer { return &fakeMailer{} })
func (c *Container) OverrideProvider(key Key, provider any, scope ...Scope) error {
	s := RequestScope
	if len(scope) > 0 {
		s = scope[0]
	}
	if key.IsZero() {
		return &ConfigurationError{Subject: key.String(), Reason: "zero key"}
	}
	if s == "" {
		return &ConfigurationError{Subject: key.String(), Reason: "empty scope"}
	}
	b, err := c.providerBuild(key, provider)
	if err != nil {
		return err
	}
	c.install(key, &Provider{build: b, scope: s})
	return nil
}

func (c *Container) providerBuild(key Key, fn any) (build, error) {
	if fn == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
		return nil, &ConfigurationError{Subject: key.String(), Reason: fmt.Sprintf("provider must be a function, got %T", fn)}
	}
	return buildFor(key.String(), fn)
}

// install stores p and evicts an app instance built by the previous provider,
// running that provider's destroy hook.
func (c *Container) install(key Key, p *Provider) {
	if old := c.core.registry.set(key, p); old != nil {
		c.core.logger.Debug("provider replaced", zap.Stringer("key", key), zap.String("scope", string(p.scope)))
	}

	entry, ok := c.core.removeAppInstance(key)
	if !ok {
		return
	}
	if err := c.teardown(context.Background(), []scopeEntry{entry}, false); err != nil {
		c.core.logger.Warn("destroying replaced instance failed", zap.Stringer("key", key), zap.Error(err))
	}
}

// Inject registers T as a self-binding and returns its key; the Go rendition of
// a registration decorator, meant for package init or bootstrap code.
//
//	var userServiceKey = container.MustInject[*UserService](app, container.WithScope(container.RequestScope))
func Inject[T any](c *Container, opts ...RegisterOption) (Key, error) {
	key := KeyOf[T]()
	return key, c.Register(key, opts...)
}

// MustInject is Inject that panics on error.
func MustInject[T any](c *Container, opts ...RegisterOption) Key {
	key, err := Inject[T](c, opts...)
	if err != nil {
		panic(err)
	}
	return key
}

// Forget removes the provider for key and any app instance it built, without
// running destroy hooks.
func (c *Container) Forget(key Key) {
	c.core.registry.remove(key)
	c.core.removeAppInstance(key)
}

// OnMissing adds a fallback consulted when a key has no provider.
func (c *Container) OnMissing(fb Fallback) {
	c.core.registry.addFallback(fb)
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates keys with a named group.
//
//	c.Tag("reports", container.KeyOf[*CPUReport](), container.KeyOf[*MemoryReport]())
func (c *Container) Tag(tag string, keys ...Key) {
	c.core.registry.tag(tag, keys)
}

// Tagged resolves every key of a tag, in tagging order.
func (c *Container) Tagged(tag string) ([]any, error) {
	keys := c.core.registry.tagged(tag)
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		inst, err := c.Resolve(k)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Resolve returns the instance for key on the blocking path. A factory or hook
// whose *Future is still pending fails with ErrAsyncRequired.
func (c *Container) Resolve(key Key) (any, error) {
	return c.resolveTop(&call{ctx: context.Background(), c: c}, key)
}

// ResolveAsync returns the instance for key, awaiting pending factory and hook
// results. ctx bounds the waiting only; it does not cancel running factories.
func (c *Container) ResolveAsync(ctx context.Context, key Key) (any, error) {
	return c.resolveTop(&call{ctx: ctx, c: c, async: true}, key)
}

// resolveTop runs plugins around outermost calls. Calls made from inside a
// factory join the resolution already in progress.
func (c *Container) resolveTop(rc *call, key Key) (any, error) {
	if len(c.stack) > 0 {
		return c.resolve(rc, key)
	}

	plugins := c.core.pluginList()
	for _, p := range plugins {
		p.PreResolve(key)
	}
	start := time.Now()
	inst, err := c.resolve(rc, key)
	elapsed := time.Since(start)
	for _, p := range plugins {
		if tp, ok := p.(timedPostResolver); ok {
			tp.postResolveTimed(key, inst, err, elapsed)
			continue
		}
		p.PostResolve(key, inst, err)
	}
	return inst, err
}

// Resolve resolves T from the container.
//
//	svc, err := container.Resolve[*UserService](c)
func Resolve[T any](c *Container) (T, error) {
	return ResolveKey[T](c, KeyOf[T]())
}

// ResolveKey resolves key and asserts the instance to T.
//
//	db, err := container.ResolveKey[*Database](c, container.Named[*Database]("PrimaryDatabase"))
func ResolveKey[T any](c *Container, key Key) (T, error) {
	inst, err := c.Resolve(key)
	if err != nil {
		var zero T
		return zero, err
	}
	return assertAs[T](key, inst)
}

// ResolveAsync resolves T on the suspending path.
func ResolveAsync[T any](ctx context.Context, c *Container) (T, error) {
	return ResolveKeyAsync[T](ctx, c, KeyOf[T]())
}

// ResolveKeyAsync resolves key on the suspending path and asserts it to T.
func ResolveKeyAsync[T any](ctx context.Context, c *Container, key Key) (T, error) {
	inst, err := c.ResolveAsync(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return assertAs[T](key, inst)
}

// MustResolve is Resolve that panics on error.
//
//	// Instead of: db, err := container.Resolve[*gorm.DB](c)
//	// Write:      db := container.MustResolve[*gorm.DB](c)
func MustResolve[T any](c *Container) T {
	v, err := Resolve[T](c)
	if err != nil {
		panic(err)
	}
	return v
}

func assertAs[T any](key Key, inst any) (T, error) {
	var zero T
	if inst == nil {
		return zero, nil
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, &ResolutionError{Key: key, Reason: fmt.Sprintf("resolved to %T, not %T", inst, zero)}
	}
	return typed, nil
}

// ── Scopes ────────────────────────────────────────────────────────────────────

// EnterScope activates scope name, runs fn, and tears the scope down on every
// exit path, including a panic in fn. Scopes do not nest.
//
// The returned error joins fn's error with any destroy-hook failures.
//
//	err := c.EnterScope(container.RequestScope, func() error {
//	    svc, err := container.Resolve[*ServiceA](c)
//	    ...
//	})
func (c *Container) EnterScope(name Scope, fn func() error) error {
	return c.enterScope(context.Background(), name, false, func(context.Context) error {
		if fn == nil {
			return nil
		}
		return fn()
	})
}

// EnterScopeAsync is EnterScope for the suspending path: destroy hooks
// returning a *Future are awaited. Teardown is not cut short when ctx is
// cancelled.
func (c *Container) EnterScopeAsync(ctx context.Context, name Scope, fn func(ctx context.Context) error) error {
	return c.enterScope(ctx, name, true, func(ctx context.Context) error {
		if fn == nil {
			return nil
		}
		return fn(ctx)
	})
}

func (c *Container) enterScope(ctx context.Context, name Scope, async bool, fn func(context.Context) error) (err error) {
	if name == "" || name == AppScope {
		return &ScopeError{Required: name, Active: c.activeName(), Reason: "only non-app scopes can be entered"}
	}
	if c.active != nil {
		return &ScopeError{Required: name, Active: c.active.name, Reason: "scopes cannot be nested"}
	}

	s := &activeScope{name: name, id: uuid.NewString(), started: time.Now(), cache: newScopeCache()}
	c.active = s
	log := c.core.logger.With(zap.String("scope", string(name)), zap.String("scope_id", s.id))
	log.Debug("scope entered")

	defer func() {
		entries := s.cache.drain()
		terr := c.teardown(context.WithoutCancel(ctx), entries, async)
		c.active = nil
		log.Debug("scope exited",
			zap.Int("instances", len(entries)),
			zap.Duration("elapsed", time.Since(s.started)),
			zap.Error(terr))
		err = multierr.Append(err, terr)
	}()

	return fn(ctx)
}

// Cleanup tears down the app scope: destroy hooks run in resolution order and
// every app instance is discarded.
func (c *Container) Cleanup() error {
	return c.teardown(context.Background(), c.core.drainApp(), false)
}

// CleanupAsync is Cleanup for the suspending path.
func (c *Container) CleanupAsync(ctx context.Context) error {
	return c.teardown(ctx, c.core.drainApp(), true)
}

// teardown runs destroy hooks in order. A failing hook does not stop the
// remaining ones; all failures are returned together.
func (c *Container) teardown(ctx context.Context, entries []scopeEntry, async bool) error {
	rc := &call{ctx: ctx, c: c, async: async}
	var errs error
	for _, e := range entries {
		if e.provider == nil || e.provider.destroyHook == "" {
			continue
		}
		if err := runHook(rc, e); err != nil {
			c.core.logger.Warn("destroy hook failed",
				zap.Stringer("key", e.key),
				zap.String("hook", e.provider.destroyHook),
				zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func runHook(rc *call, e scopeEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ProviderError{Key: e.key, Hook: e.provider.destroyHook, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := callHook(rc, e.instance, e.provider.destroyHook); err != nil {
		return &ProviderError{Key: e.key, Hook: e.provider.destroyHook, Err: err}
	}
	return nil
}

// ── Introspection ─────────────────────────────────────────────────────────────

// Bound reports whether key has a provider or an app instance.
func (c *Container) Bound(key Key) bool {
	if _, ok := c.core.registry.lookup(key); ok {
		return true
	}
	_, ok := c.core.appInstance(key)
	return ok
}

// Resolved reports whether an instance of key is cached in the app scope or
// the active scope.
func (c *Container) Resolved(key Key) bool {
	if _, ok := c.core.appInstance(key); ok {
		return true
	}
	if c.active != nil {
		_, ok := c.active.cache.get(key)
		return ok
	}
	return false
}

// Keys returns every registered key, sorted by name (for debugging).
func (c *Container) Keys() []Key {
	return c.core.registry.keys()
}

// ActiveScope describes the open scope, if any.
func (c *Container) ActiveScope() (ScopeInfo, bool) {
	if c.active == nil {
		return ScopeInfo{}, false
	}
	return c.active.info(), true
}

// Depth returns the number of keys currently being resolved.
func (c *Container) Depth() int { return len(c.stack) }

func (c *Container) activeName() Scope {
	if c.active == nil {
		return ""
	}
	return c.active.name
}

// ── App cache ─────────────────────────────────────────────────────────────────

func (co *core) appInstance(key Key) (any, bool) {
	co.appMu.Lock()
	defer co.appMu.Unlock()
	return co.app.get(key)
}

func (co *core) putAppInstance(key Key, inst any, p *Provider) {
	co.appMu.Lock()
	defer co.appMu.Unlock()
	co.app.put(key, inst, p)
}

func (co *core) trackAppInstance(key Key, inst any, p *Provider) {
	co.appMu.Lock()
	defer co.appMu.Unlock()
	co.app.track(key, inst, p)
}

func (co *core) removeAppInstance(key Key) (scopeEntry, bool) {
	co.appMu.Lock()
	defer co.appMu.Unlock()
	return co.app.remove(key)
}

func (co *core) drainApp() []scopeEntry {
	co.appMu.Lock()
	defer co.appMu.Unlock()
	return co.app.drain()
}

// Package container provides a scoped dependency-injection container.
//
// # Overview
//
// A Container maps keys to providers, resolves object graphs on demand,
// caches instances per scope, and runs init/destroy hooks around
// construction and teardown.
//
// # Keys
//
//	container.KeyOf[*UserService]()                  // a Go type
//	container.Named[*Database]("PrimaryDatabase")    // an opaque alias over a type
//	container.KeyFor((*Repository)(nil))             // an interface type
//
// # Registration
//
//	c := container.New(container.WithLogger(logger))
//
//	// Self-binding, app scope (one instance per container)
//	c.Register(container.KeyOf[*ServiceB]())
//
//	// Request scope (one instance per EnterScope activation)
//	c.Register(container.KeyOf[*ServiceA](), container.WithScope(container.RequestScope))
//
//	// Factory with lifecycle hooks
//	c.Register(container.KeyOf[*Database](),
//	    container.WithProvider(func() *Database { return NewDatabase(dsn) }),
//	    container.WithScope(container.RequestScope),
//	    container.WithInitHook("Connect"),
//	    container.WithDestroyHook("Close"))
//
//	// Test substitution
//	c.OverrideProvider(container.KeyOf[Mailer](), func() Mailer { return &fakeMailer{} })
//
// # Resolving
//
//	svc, err := container.Resolve[*ServiceA](c)
//	db, err := container.ResolveAsync[*Database](ctx, c)  // awaits *Future results
//
// Unregistered struct types are auto-wired: each exported field is resolved by
// its type. A field typed any has no type declaration and fails with a
// ConfigurationError. Tag a field `inject:"-"` to skip it, or `inject:"Name"`
// to resolve container.Named[T]("Name").
//
// # Scopes
//
//	err := c.EnterScope(container.RequestScope, func() error {
//	    a, err := container.Resolve[*ServiceA](c)
//	    ...
//	})  // destroy hooks of request instances have run here
//
//	defer c.Cleanup()  // destroy hooks of app instances
//
// One scope may be active per container. Concurrent units of work each use a
// Fork, which shares providers and app instances.
//
// # Errors
//
// Every error matches ErrDependency with errors.Is, and one of
// ErrConfiguration, ErrResolution, ErrCircularDependency, ErrScope or
// ErrProvider. Use errors.As with *CircularDependencyError to read the chain.
//
// # Service Providers
//
//	providers := container.NewProviders(c)
//	providers.Register(&DatabaseProvider{})
//	providers.Boot()
package container

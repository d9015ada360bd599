package container

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
)

// ── Factories ─────────────────────────────────────────────────────────────────

// Factory builds an instance. c is the resolving container, so a factory may
// resolve further keys itself; ctx is the resolution context (Background on
// the blocking path).
//
//	c.Register(container.KeyOf[*Mailer](), container.WithProvider(
//	    func(ctx context.Context, c *container.Container) (any, error) {
//	        cfg, err := container.Resolve[*config.Config](c)
//	        if err != nil {
//	            return nil, err
//	        }
//	        return mail.NewSMTP(cfg.Mail), nil
//	    }))
type Factory func(ctx context.Context, c *Container) (any, error)

// call carries the state of one resolution through factories and hooks.
type call struct {
	ctx   context.Context
	c     *Container
	async bool
}

// build is the internal form every factory is normalised into.
type build func(rc *call) (any, error)

// ── Provider ──────────────────────────────────────────────────────────────────

// Provider is the registered recipe for a key: a factory, the scope its
// instances live in, and optional init/destroy hook method names.
//
// A Provider never changes after creation; overriding a key installs a new one.
type Provider struct {
	build       build
	scope       Scope
	initHook    string
	destroyHook string

	// synthesized marks providers created for unregistered constructible types.
	synthesized bool
}

func (p *Provider) Scope() Scope        { return p.scope }
func (p *Provider) InitHook() string    { return p.initHook }
func (p *Provider) DestroyHook() string { return p.destroyHook }

// produce runs the factory, settles a pending result and runs the init hook.
// The returned instance is fully initialised.
func (p *Provider) produce(rc *call) (any, error) {
	instance, err := p.build(rc)
	if err != nil {
		return nil, err
	}
	if instance, err = settle(rc, instance); err != nil {
		return nil, err
	}
	if p.initHook != "" {
		if err := callHook(rc, instance, p.initHook); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

// ── Registration options ──────────────────────────────────────────────────────

type registration struct {
	implementation any
	provider       any
	scope          Scope
	initHook       string
	destroyHook    string
}

// RegisterOption configures a single Register call.
type RegisterOption func(*registration)

// WithImplementation binds the key to impl: a reflect.Type to auto-wire, a
// function to invoke with resolved arguments, or a plain value returned as is.
func WithImplementation(impl any) RegisterOption {
	return func(r *registration) { r.implementation = impl }
}

// WithProvider binds the key to a factory function. fn is a Factory or any
// function returning (T) or (T, error); its parameters are resolved by type.
func WithProvider(fn any) RegisterOption {
	return func(r *registration) { r.provider = fn }
}

// WithScope sets the scope instances are cached in. Defaults to AppScope.
func WithScope(s Scope) RegisterOption {
	return func(r *registration) { r.scope = s }
}

// WithInitHook names a method called right after construction.
func WithInitHook(method string) RegisterOption {
	return func(r *registration) { r.initHook = method }
}

// WithDestroyHook names a method called when the instance's scope is torn down.
func WithDestroyHook(method string) RegisterOption {
	return func(r *registration) { r.destroyHook = method }
}

// ── Factory construction ──────────────────────────────────────────────────────

var (
	contextType   = reflect.TypeFor[context.Context]()
	containerType = reflect.TypeFor[*Container]()
	errorType     = reflect.TypeFor[error]()
)

// buildFor turns an implementation into a build function: types are
// auto-wired, functions invoked, anything else returned verbatim.
func buildFor(subject string, impl any) (build, error) {
	switch v := impl.(type) {
	case Factory:
		return factoryBuild(v), nil
	case func(context.Context, *Container) (any, error):
		return factoryBuild(v), nil
	case reflect.Type:
		if !constructible(v) {
			return nil, &ConfigurationError{Subject: subject, Reason: "implementation type " + v.String() + " is not a struct or pointer to struct"}
		}
		return autowireBuild(v), nil
	}

	rv := reflect.ValueOf(impl)
	if rv.Kind() == reflect.Func {
		return funcBuild(subject, rv)
	}
	return func(*call) (any, error) { return impl, nil }, nil
}

func factoryBuild(f Factory) build {
	return func(rc *call) (any, error) { return f(rc.ctx, rc.c) }
}

func autowireBuild(t reflect.Type) build {
	return func(rc *call) (any, error) { return rc.c.construct(rc, t) }
}

// funcBuild validates fn's signature and returns a build that resolves each
// parameter by its declared type, in order.
func funcBuild(subject string, fn reflect.Value) (build, error) {
	if fn.IsNil() {
		return nil, &ConfigurationError{Subject: subject, Reason: "nil function"}
	}
	t := fn.Type()
	if t.IsVariadic() {
		return nil, &ConfigurationError{Subject: subject, Reason: "variadic functions cannot be invoked by the container"}
	}
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return nil, &ConfigurationError{Subject: subject, Reason: "function must return (T) or (T, error)"}
	}

	name := funcName(fn)
	return func(rc *call) (any, error) {
		args := make([]reflect.Value, t.NumIn())
		for i := range args {
			pt := t.In(i)
			switch {
			case pt == contextType:
				args[i] = reflect.ValueOf(&rc.ctx).Elem()
			case pt == containerType:
				args[i] = reflect.ValueOf(rc.c)
			case untyped(pt):
				return nil, &ConfigurationError{
					Subject: fmt.Sprintf("%s parameter %d", name, i),
					Reason:  "parameter lacks a type declaration",
				}
			default:
				v, err := rc.c.resolveValue(rc, TypeKey(pt))
				if err != nil {
					return nil, err
				}
				args[i] = v
			}
		}

		out := fn.Call(args)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}, nil
}

// callHook invokes the named method on instance if it exists. Hooks take no
// arguments or a context.Context, and may return an error and/or a *Future.
func callHook(rc *call, instance any, name string) error {
	if instance == nil {
		return nil
	}
	m := reflect.ValueOf(instance).MethodByName(name)
	if !m.IsValid() {
		return nil
	}

	t := m.Type()
	var args []reflect.Value
	switch {
	case t.NumIn() == 0:
	case t.NumIn() == 1 && t.In(0) == contextType:
		args = []reflect.Value{reflect.ValueOf(&rc.ctx).Elem()}
	default:
		return &ConfigurationError{
			Subject: fmt.Sprintf("%T.%s", instance, name),
			Reason:  "hook must take no arguments or a single context.Context",
		}
	}

	for _, out := range m.Call(args) {
		switch v := out.Interface().(type) {
		case *Future:
			if _, err := settle(rc, v); err != nil {
				return err
			}
		case error:
			return v
		}
	}
	return nil
}

func funcName(fn reflect.Value) string {
	if f := runtime.FuncForPC(fn.Pointer()); f != nil {
		return f.Name()
	}
	return fn.Type().String()
}

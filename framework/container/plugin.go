package container

import "time"

// Plugin observes top-level resolutions. PreResolve runs before the resolver
// touches any cache; PostResolve runs with the outcome, err included.
//
// Resolutions started from inside a factory are part of the outer call and do
// not reach plugins on their own.
type Plugin interface {
	PreResolve(key Key)
	PostResolve(key Key, instance any, err error)
}

// PluginFuncs adapts plain functions to Plugin. Nil fields are skipped.
type PluginFuncs struct {
	Pre  func(key Key)
	Post func(key Key, instance any, err error)
}

func (p PluginFuncs) PreResolve(key Key) {
	if p.Pre != nil {
		p.Pre(key)
	}
}

func (p PluginFuncs) PostResolve(key Key, instance any, err error) {
	if p.Post != nil {
		p.Post(key, instance, err)
	}
}

// Use installs plugins on the container and every fork sharing its registry.
func (c *Container) Use(plugins ...Plugin) {
	c.core.pluginMu.Lock()
	defer c.core.pluginMu.Unlock()
	c.core.plugins = append(c.core.plugins, plugins...)
}

// AfterResolving registers a callback fired after every successful top-level
// resolution.
//
//	c.AfterResolving(func(key container.Key, instance any) {
//	    log.Printf("resolved %s", key)
//	})
func (c *Container) AfterResolving(cb func(key Key, instance any)) {
	c.Use(PluginFuncs{Post: func(key Key, instance any, err error) {
		if err == nil {
			cb(key, instance)
		}
	}})
}

func (co *core) pluginList() []Plugin {
	co.pluginMu.RLock()
	defer co.pluginMu.RUnlock()
	return append([]Plugin(nil), co.plugins...)
}

// Timed returns a Plugin that reports each top-level resolution with its
// duration. The duration is measured by the resolving call itself, so
// concurrent resolutions of one key on different forks stay apart.
//
//	c.Use(container.Timed(func(key container.Key, _ any, err error, elapsed time.Duration) {
//	    log.Printf("%s resolved in %s (err=%v)", key, elapsed, err)
//	}))
func Timed(report func(key Key, instance any, err error, elapsed time.Duration)) Plugin {
	return &timedPlugin{report: report}
}

// timedPostResolver receives PostResolve together with the elapsed time of
// the resolution.
type timedPostResolver interface {
	postResolveTimed(key Key, instance any, err error, elapsed time.Duration)
}

type timedPlugin struct {
	report func(Key, any, error, time.Duration)
}

func (p *timedPlugin) PreResolve(Key) {}

// PostResolve reports a zero duration when called outside the container.
func (p *timedPlugin) PostResolve(key Key, instance any, err error) {
	p.report(key, instance, err, 0)
}

func (p *timedPlugin) postResolveTimed(key Key, instance any, err error, elapsed time.Duration) {
	p.report(key, instance, err, elapsed)
}

package providers

import (
	"go.uber.org/zap"

	"github.com/km-arc/go-autodi/framework/config"
	"github.com/km-arc/go-autodi/framework/container"
	"github.com/km-arc/go-autodi/framework/metrics"
	"github.com/km-arc/go-autodi/framework/routing"
)

// ── CoreServiceProvider ───────────────────────────────────────────────────────

// CoreServiceProvider binds the objects the application builds before the
// container exists.
//
// Bound keys (app scope):
//   - *config.Config
//   - *zap.Logger
type CoreServiceProvider struct {
	container.BaseProvider
	Config *config.Config
	Logger *zap.Logger
}

func (p *CoreServiceProvider) Register(c *container.Container) error {
	if err := c.Register(container.KeyOf[*config.Config](), container.WithImplementation(p.Config)); err != nil {
		return err
	}
	return c.Register(container.KeyOf[*zap.Logger](), container.WithImplementation(p.Logger))
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router. Every request handled by
// it runs inside a request scope of the resolving container.
//
// Bound keys (app scope):
//   - *routing.Router
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(c *container.Container) error {
	return c.Register(container.KeyOf[*routing.Router](), container.WithProvider(
		func(logger *zap.Logger, c *container.Container) *routing.Router {
			return routing.New(routing.WithLogger(logger), routing.WithContainer(c))
		}))
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider records resolution metrics and serves them at Path.
//
// Bound keys (app scope):
//   - *metrics.Collector
type MetricsServiceProvider struct {
	container.BaseProvider
	Namespace string // default: "autodi"
	Path      string // default: "/metrics"
}

func (p *MetricsServiceProvider) Register(c *container.Container) error {
	ns := p.Namespace
	if ns == "" {
		ns = "autodi"
	}
	collector := metrics.NewCollector(ns)
	c.Use(collector.Plugin())
	return c.Register(container.KeyOf[*metrics.Collector](), container.WithImplementation(collector))
}

func (p *MetricsServiceProvider) Boot(c *container.Container) error {
	path := p.Path
	if path == "" {
		path = "/metrics"
	}
	router, err := container.Resolve[*routing.Router](c)
	if err != nil {
		return err
	}
	collector, err := container.Resolve[*metrics.Collector](c)
	if err != nil {
		return err
	}
	router.Handle(path, collector.Handler())
	return nil
}

// ── DependencyFileProvider ────────────────────────────────────────────────────

// DependencyFileProvider applies the dependency file named by DI_FILE at boot.
// Catalog declares the identifiers the file may use.
type DependencyFileProvider struct {
	container.BaseProvider
	Catalog *config.Catalog
}

func (p *DependencyFileProvider) Register(_ *container.Container) error { return nil }

func (p *DependencyFileProvider) Boot(c *container.Container) error {
	cfg, err := container.Resolve[*config.Config](c)
	if err != nil {
		return err
	}
	if cfg.DI.File == "" {
		return nil
	}
	return config.LoadDependencies(c, cfg.DI.File, p.Catalog)
}

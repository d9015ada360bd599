package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/km-arc/go-autodi/framework/config"
	"github.com/km-arc/go-autodi/framework/container"
	gohttp "github.com/km-arc/go-autodi/framework/http"
	"github.com/km-arc/go-autodi/framework/logging"
	"github.com/km-arc/go-autodi/framework/providers"
	"github.com/km-arc/go-autodi/framework/routing"
)

const shutdownTimeout = 10 * time.Second

// Application is the top-level application container.
// It embeds the Container so user code can call app.Resolve and
// app.EnterScope directly; registrations go through service providers or
// app.Container.Register.
type Application struct {
	*container.Container
	Providers *container.Providers

	// Catalog declares the identifiers the dependency file (DI_FILE) may use.
	Catalog *config.Catalog
}

// New loads configuration, builds the logger and registers the framework
// providers.
//
//	application, err := app.New()
//	application.Register(&UserServiceProvider{})
//	err = application.Run(ctx)
func New(envFiles ...string) (*Application, error) {
	cfg := config.Load(envFiles...)
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	c := container.New(container.WithLogger(logger))
	if cfg.App.Debug {
		c.Use(logging.Plugin(logger))
	}

	app := &Application{
		Container: c,
		Providers: container.NewProviders(c),
		Catalog:   config.NewCatalog(),
	}

	for _, p := range []container.ServiceProvider{
		&providers.CoreServiceProvider{Config: cfg, Logger: logger},
		&providers.RoutingServiceProvider{},
		&providers.MetricsServiceProvider{},
		&providers.DependencyFileProvider{Catalog: app.Catalog},
	} {
		if err := app.Providers.Register(p); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot runs the Boot() phase on all providers.
func (a *Application) Boot() error {
	return a.Providers.Boot()
}

// Config resolves *config.Config from the container.
func (a *Application) Config() *config.Config {
	return container.MustResolve[*config.Config](a.Container)
}

// Router resolves *routing.Router from the container.
func (a *Application) Router() *routing.Router {
	return container.MustResolve[*routing.Router](a.Container)
}

// Handler boots the application if needed and returns the router.
func (a *Application) Handler() (http.Handler, error) {
	if !a.Providers.Booted() {
		if err := a.Boot(); err != nil {
			return nil, err
		}
	}
	return a.Router(), nil
}

// Run boots the application and serves HTTP on APP_PORT until ctx is done,
// then shuts the server down and tears down the app scope.
func (a *Application) Run(ctx context.Context) error {
	handler, err := a.Handler()
	if err != nil {
		return err
	}
	cfg := a.Config()
	logger := a.Logger()

	if cfg.DI.File != "" && cfg.DI.Watch {
		go func() {
			if err := config.WatchDependencies(ctx, a.Container, cfg.DI.File, a.Catalog, logger); err != nil {
				logger.Warn("dependency file watcher stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("server started",
		zap.String("app", cfg.App.Name),
		zap.String("addr", srv.Addr),
		zap.String("env", cfg.App.Env))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return multierr.Append(err, a.CleanupAsync(context.WithoutCancel(ctx)))
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	logger.Info("server stopping")
	err = srv.Shutdown(shutdownCtx)
	return multierr.Append(err, a.CleanupAsync(shutdownCtx))
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config().App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config().App.Debug }

// Controller is an embeddable base for HTTP controllers.
type Controller struct{}

func (c *Controller) Request(r *http.Request) *gohttp.Request {
	return gohttp.NewRequest(r)
}
func (c *Controller) Response(w http.ResponseWriter) *gohttp.Response {
	return gohttp.NewResponse(w)
}

package app

import (
	"net/http"
	"reflect"

	framework "github.com/km-arc/go-autodi/framework/app"
	"github.com/km-arc/go-autodi/framework/config"
	"github.com/km-arc/go-autodi/framework/container"
	gohttp "github.com/km-arc/go-autodi/framework/http"
	"github.com/km-arc/go-autodi/framework/routing"
)

// Catalog declares the identifiers dependencies.yaml may use.
func Catalog(cat *config.Catalog) {
	cat.Key("app.Greeter", container.KeyOf[Greeter]()).
		Implementation("app.EnglishGreeter", reflect.TypeFor[*EnglishGreeter]())
}

// ServiceProvider registers the demo services and routes.
type ServiceProvider struct {
	container.BaseProvider
}

// Register binds the demo services. Greeter defaults to EnglishGreeter; the
// dependency file, loaded at boot, may rebind it.
func (p *ServiceProvider) Register(c *container.Container) error {
	if err := c.Register(container.KeyOf[Greeter](), container.WithImplementation(reflect.TypeFor[*EnglishGreeter]())); err != nil {
		return err
	}
	if err := c.Register(container.KeyOf[*ServiceB](), container.WithProvider(NewServiceB)); err != nil {
		return err
	}
	if err := c.Register(container.KeyOf[*ServiceA](), container.WithScope(container.RequestScope)); err != nil {
		return err
	}
	return c.Register(container.KeyOf[*DatabaseConnection](),
		container.WithProvider(NewDatabaseConnection),
		container.WithScope(container.RequestScope),
		container.WithInitHook("Connect"),
		container.WithDestroyHook("Close"))
}

func (p *ServiceProvider) Boot(c *container.Container) error {
	router, err := container.Resolve[*routing.Router](c)
	if err != nil {
		return err
	}
	h := &Handler{}
	router.Prefix("/api", func(api *routing.Router) {
		api.Get("/welcome/{name}", h.Welcome)
		api.Post("/query", h.Query)
	})
	return nil
}

// Handler serves the demo routes.
type Handler struct {
	framework.Controller
}

func (h *Handler) Welcome(w http.ResponseWriter, r *http.Request) {
	res := h.Response(w)
	a, err := gohttp.Resolve[*ServiceA](r)
	if err != nil {
		res.DependencyError(err)
		return
	}
	res.Success(map[string]any{"message": a.Welcome(routing.Param(r, "name"))})
}

func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	req, res := h.Request(r), h.Response(w)

	var input struct {
		SQL string `json:"sql" validate:"required,max=200"`
	}
	if err := req.Bind(&input); err != nil {
		res.ValidationError(err)
		return
	}

	db, err := gohttp.Resolve[*DatabaseConnection](r)
	if err != nil {
		res.DependencyError(err)
		return
	}
	out, err := db.Query(input.SQL)
	if err != nil {
		res.ServerError(err.Error())
		return
	}
	res.Success(map[string]any{"result": out})
}

package app_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/km-arc/go-autodi/app"
	"github.com/km-arc/go-autodi/framework/config"
	"github.com/km-arc/go-autodi/framework/container"
	"github.com/km-arc/go-autodi/framework/providers"
	"github.com/km-arc/go-autodi/framework/routing"
)

func newRouter(t *testing.T) (*container.Container, *routing.Router) {
	t.Helper()
	return bootRouter(t, "../dependencies.yaml", config.NewCatalog())
}

// bootRouter boots the demo providers, then applies the dependency file the
// way the application kernel does. An empty path skips the file.
func bootRouter(t *testing.T, path string, cat *config.Catalog) (*container.Container, *routing.Router) {
	t.Helper()
	c := container.New()

	reg := container.NewProviders(c)
	for _, p := range []container.ServiceProvider{
		&providers.CoreServiceProvider{Config: &config.Config{}, Logger: zap.NewNop()},
		&providers.RoutingServiceProvider{},
		&app.ServiceProvider{},
	} {
		require.NoError(t, reg.Register(p))
	}
	require.NoError(t, reg.Boot())

	if path != "" {
		app.Catalog(cat)
		require.NoError(t, config.LoadDependencies(c, path, cat))
	}
	return c, container.MustResolve[*routing.Router](c)
}

func call(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	return rec
}

func TestWelcome_SharesSingletonAcrossRequests(t *testing.T) {
	_, router := newRouter(t)

	first := call(router, http.MethodGet, "/api/welcome/Ada", "")
	second := call(router, http.MethodGet, "/api/welcome/Ada", "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, `{"data":{"message":"Hello, Ada (visit #1)"}}`, first.Body.String())
	assert.JSONEq(t, `{"data":{"message":"Hello, Ada (visit #2)"}}`, second.Body.String())
}

func TestQuery_ConnectsAndClosesPerRequest(t *testing.T) {
	c, router := newRouter(t)

	var conns []*app.DatabaseConnection
	c.AfterResolving(func(key container.Key, instance any) {
		if db, ok := instance.(*app.DatabaseConnection); ok {
			conns = append(conns, db)
		}
	})
	// handlers resolve through the request fork, which shares plugins
	rec := call(router, http.MethodPost, "/api/query", `{"sql":"SELECT 1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"result":"result for \"SELECT 1\""}}`, rec.Body.String())
	require.Len(t, conns, 1)
	assert.False(t, conns[0].Connected())
}

func TestQuery_ValidationFailure(t *testing.T) {
	_, router := newRouter(t)

	rec := call(router, http.MethodPost, "/api/query", `{"sql":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestWelcome_DefaultGreeterWithoutDependencyFile(t *testing.T) {
	_, router := bootRouter(t, "", nil)

	rec := call(router, http.MethodGet, "/api/welcome/Ada", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"message":"Hello, Ada (visit #1)"}}`, rec.Body.String())
}

type shoutingGreeter struct{}

func (*shoutingGreeter) Greet(name string) string { return "HELLO, " + strings.ToUpper(name) }

func TestWelcome_DependencyFileRebindsGreeter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dependencies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dependencies:
  app.Greeter:
    implementation: test.ShoutingGreeter
`), 0o644))
	cat := config.NewCatalog().Implementation("test.ShoutingGreeter", reflect.TypeFor[*shoutingGreeter]())
	_, router := bootRouter(t, path, cat)

	rec := call(router, http.MethodGet, "/api/welcome/Ada", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"message":"HELLO, ADA (visit #1)"}}`, rec.Body.String())
}

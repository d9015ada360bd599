package config_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/km-arc/go-autodi/framework/config"
	"github.com/km-arc/go-autodi/framework/container"
)

// ── fixtures ─────────────────────────────────────────────────────────────────

type Greeter interface{ Greet() string }

type englishGreeter struct{}

func (*englishGreeter) Greet() string { return "hello" }

type Clock struct{ started, stopped int }

func (c *Clock) Start() { c.started++ }
func (c *Clock) Stop()  { c.stopped++ }

type GreetingService struct{ Greeter Greeter }

func catalog() *config.Catalog {
	return config.NewCatalog().
		Key("greeter", container.KeyOf[Greeter]()).
		Key("clock", container.KeyOf[*Clock]()).
		Key("greeting.service", container.KeyOf[*GreetingService]()).
		Implementation("english", reflect.TypeFor[*englishGreeter]())
}

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "dependencies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// recorder is a Registrar that remembers registration order.
type recorder struct {
	mu   sync.Mutex
	keys []container.Key
}

func (r *recorder) Register(key container.Key, _ ...container.RegisterOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

// ── LoadDependencies ─────────────────────────────────────────────────────────

func TestLoadDependencies_RegistersEntries(t *testing.T) {
	c := container.New()
	require.NoError(t, config.LoadDependencies(c, "testdata/dependencies.yaml", catalog()))

	svc, err := container.Resolve[*GreetingService](c)
	require.NoError(t, err)
	assert.Equal(t, "hello", svc.Greeter.Greet())

	var clock *Clock
	require.NoError(t, c.EnterScope(container.RequestScope, func() error {
		var err error
		clock, err = container.Resolve[*Clock](c)
		return err
	}))
	assert.Equal(t, 1, clock.started)
	assert.Equal(t, 1, clock.stopped)

	_, err = c.Resolve(container.KeyOf[*Clock]())
	assert.ErrorIs(t, err, container.ErrScope)
}

func TestLoadDependencies_FileOrder(t *testing.T) {
	r := &recorder{}
	require.NoError(t, config.LoadDependencies(r, "testdata/dependencies.yaml", catalog()))

	assert.Equal(t, []container.Key{
		container.KeyOf[Greeter](),
		container.KeyOf[*Clock](),
		container.KeyOf[*GreetingService](),
	}, r.keys)
}

func TestLoadDependencies_NoDependenciesSection(t *testing.T) {
	r := &recorder{}
	path := writeFile(t, t.TempDir(), "other: true\n")

	require.NoError(t, config.LoadDependencies(r, path, catalog()))
	assert.Empty(t, r.keys)

	require.NoError(t, config.LoadDependencies(r, writeFile(t, t.TempDir(), ""), catalog()))
	require.NoError(t, config.LoadDependencies(r, writeFile(t, t.TempDir(), "dependencies:\n"), catalog()))
	assert.Empty(t, r.keys)
}

func TestLoadDependencies_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		subject string
		reason  string
	}{
		{"malformed yaml", "dependencies: [", "dependencies", "malformed YAML"},
		{"not a mapping", "dependencies:\n  - greeter\n", "dependencies", "must be a mapping"},
		{"unknown identifier", "dependencies:\n  nope:\n", "dependencies.nope", "unknown identifier"},
		{"unknown implementation", "dependencies:\n  greeter:\n    implementation: french\n", "dependencies.greeter", `unknown implementation "french"`},
		{"invalid scope", "dependencies:\n  clock:\n    scope: per-request\n", "dependencies.clock", "invalid entry"},
		{"invalid hook", "dependencies:\n  clock:\n    destroy_hook: Stop()\n", "dependencies.clock", "invalid entry"},
		{"entry not a mapping", "dependencies:\n  clock: [1, 2]\n", "dependencies.clock", "invalid entry"},
		{"registration failure", "dependencies:\n  greeter:\n", "dependencies.greeter", "registration failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.body)

			err := config.LoadDependencies(container.New(), path, catalog())

			var cfg *container.ConfigurationError
			require.ErrorAs(t, err, &cfg)
			assert.Equal(t, tt.subject, cfg.Subject)
			assert.Contains(t, cfg.Reason, tt.reason)
			assert.ErrorIs(t, err, container.ErrDependency)
		})
	}
}

func TestLoadDependencies_MissingFile(t *testing.T) {
	err := config.LoadDependencies(container.New(), "testdata/missing.yaml", catalog())

	var cfg *container.ConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.Equal(t, "testdata/missing.yaml", cfg.Subject)
	assert.Equal(t, "dependency file not found", cfg.Reason)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDependencies_EarlierEntriesStayRegistered(t *testing.T) {
	c := container.New()
	path := writeFile(t, t.TempDir(), "dependencies:\n  clock:\n  nope:\n")

	require.Error(t, config.LoadDependencies(c, path, catalog()))
	assert.True(t, c.Bound(container.KeyOf[*Clock]()))
}

func TestParseDependencies_DecodesFields(t *testing.T) {
	deps, err := config.ParseDependencies([]byte(`
dependencies:
  clock:
    implementation: system
    scope: request
    init_hook: Start
    destroy_hook: Stop
`))
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, config.Dependency{
		ID:             "clock",
		Implementation: "system",
		Scope:          "request",
		InitHook:       "Start",
		DestroyHook:    "Stop",
	}, deps[0])
}

// ── WatchDependencies ────────────────────────────────────────────────────────

func TestWatchDependencies_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dependencies:\n  clock:\n")
	c := container.New()
	require.NoError(t, config.LoadDependencies(c, path, catalog()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- config.WatchDependencies(ctx, c, path, catalog(), zaptest.NewLogger(t)) }()

	// let the watcher subscribe before the write
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "dependencies:\n  clock:\n  greeter:\n    implementation: english\n")

	assert.Eventually(t, func() bool {
		return c.Bound(container.KeyOf[Greeter]())
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

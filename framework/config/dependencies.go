package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-autodi/framework/container"
)

// Registrar is the part of the container the dependency file writes to.
type Registrar interface {
	Register(key container.Key, opts ...container.RegisterOption) error
}

// ── Catalog ──────────────────────────────────────────────────────────────────

// Catalog maps the identifiers used in a dependency file to keys and
// implementations. Go cannot import a type by name at runtime, so every
// identifier the file may mention is declared up front.
//
//	cat := config.NewCatalog().
//	    Key("app.Repository", container.KeyOf[app.Repository]()).
//	    Implementation("app.SQLRepository", reflect.TypeFor[*app.SQLRepository]())
type Catalog struct {
	mu    sync.RWMutex
	keys  map[string]container.Key
	impls map[string]any
}

func NewCatalog() *Catalog {
	return &Catalog{
		keys:  make(map[string]container.Key),
		impls: make(map[string]any),
	}
}

// Key declares a key identifier.
func (c *Catalog) Key(id string, key container.Key) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[id] = key
	return c
}

// Implementation declares an implementation identifier. impl is anything
// container.WithImplementation accepts.
func (c *Catalog) Implementation(id string, impl any) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.impls[id] = impl
	return c
}

func (c *Catalog) lookupKey(id string) (container.Key, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.keys[id]
	return k, ok
}

func (c *Catalog) lookupImpl(id string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	impl, ok := c.impls[id]
	return impl, ok
}

// ── Dependency file ──────────────────────────────────────────────────────────

// Dependency is one entry of the dependencies mapping.
//
//	dependencies:
//	  app.Repository:
//	    implementation: app.SQLRepository
//	    scope: request
//	    init_hook: Connect
//	    destroy_hook: Close
type Dependency struct {
	ID             string `yaml:"-"`
	Implementation string `yaml:"implementation"`
	Scope          string `yaml:"scope" validate:"omitempty,alphanum"`
	InitHook       string `yaml:"init_hook" validate:"omitempty,alphanum"`
	DestroyHook    string `yaml:"destroy_hook" validate:"omitempty,alphanum"`
}

var validate = validator.New()

// ParseDependencies decodes a dependency document, keeping entry order. A
// document without a dependencies mapping yields no entries.
func ParseDependencies(data []byte) ([]Dependency, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &container.ConfigurationError{Subject: "dependencies", Reason: "malformed YAML", Err: err}
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, nil
	}

	root := doc.Content[0]
	var deps *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "dependencies" {
			deps = root.Content[i+1]
			break
		}
	}
	if deps == nil || deps.Tag == "!!null" {
		return nil, nil
	}
	if deps.Kind != yaml.MappingNode {
		return nil, &container.ConfigurationError{Subject: "dependencies", Reason: "must be a mapping"}
	}

	out := make([]Dependency, 0, len(deps.Content)/2)
	for i := 0; i+1 < len(deps.Content); i += 2 {
		id := deps.Content[i].Value
		d := Dependency{ID: id}
		if v := deps.Content[i+1]; v.Tag != "!!null" {
			if err := v.Decode(&d); err != nil {
				return nil, entryError(id, "invalid entry", err)
			}
			d.ID = id
		}
		if err := validate.Struct(d); err != nil {
			return nil, entryError(id, "invalid entry", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// LoadDependencies registers every entry of the dependency file at path, in
// file order. Any failure is a *container.ConfigurationError naming the file
// or the offending entry; entries before it stay registered.
func LoadDependencies(reg Registrar, path string, catalog *Catalog) error {
	data, err := os.ReadFile(path)
	if err != nil {
		reason := "cannot read dependency file"
		if errors.Is(err, fs.ErrNotExist) {
			reason = "dependency file not found"
		}
		return &container.ConfigurationError{Subject: path, Reason: reason, Err: err}
	}

	deps, err := ParseDependencies(data)
	if err != nil {
		return err
	}
	for _, d := range deps {
		if err := apply(reg, d, catalog); err != nil {
			return err
		}
	}
	return nil
}

func apply(reg Registrar, d Dependency, catalog *Catalog) error {
	key, ok := catalog.lookupKey(d.ID)
	if !ok {
		return entryError(d.ID, "unknown identifier", nil)
	}

	var opts []container.RegisterOption
	if d.Implementation != "" {
		impl, ok := catalog.lookupImpl(d.Implementation)
		if !ok {
			return entryError(d.ID, fmt.Sprintf("unknown implementation %q", d.Implementation), nil)
		}
		opts = append(opts, container.WithImplementation(impl))
	}
	if d.Scope != "" {
		opts = append(opts, container.WithScope(container.Scope(d.Scope)))
	}
	if d.InitHook != "" {
		opts = append(opts, container.WithInitHook(d.InitHook))
	}
	if d.DestroyHook != "" {
		opts = append(opts, container.WithDestroyHook(d.DestroyHook))
	}

	if err := reg.Register(key, opts...); err != nil {
		return entryError(d.ID, "registration failed", err)
	}
	return nil
}

func entryError(id, reason string, err error) error {
	return &container.ConfigurationError{Subject: "dependencies." + id, Reason: reason, Err: err}
}

package container_test

import (
	"context"
	"errors"

	"github.com/km-arc/go-autodi/framework/container"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type ServiceB struct{ id int }

type ServiceA struct {
	B *ServiceB
}

type CycleA struct{ B *CycleB }
type CycleB struct{ A *CycleA }

type LoopX struct{ Y *LoopY }
type LoopY struct{ Z *LoopZ }
type LoopZ struct{ X *LoopX }

type Leaf struct{ n int }

type Middle struct{ Leaf *Leaf }

type Top struct {
	Middle *Middle
	Leaf   *Leaf
	Label  string `inject:"-"`
	note   string
}

type Untyped struct {
	Leaf *Leaf
	Dep  any
}

type Empty struct{}

type Greeter interface{ Greet() string }

type englishGreeter struct{}

func (*englishGreeter) Greet() string { return "hello" }

type NeedsGreeter struct{ Greeter Greeter }

// Session is a request resource with a synchronous destroy hook.
type Session struct {
	opened int
	closes int
}

func (s *Session) Open()  { s.opened++ }
func (s *Session) Close() { s.closes++ }

// Holder is an app-scoped service depending on a request-scoped one.
type Holder struct{ Session *Session }

// Flaky fails its destroy hook.
type Flaky struct{ attempts int }

var errFlaky = errors.New("flaky close")

func (f *Flaky) Close() error {
	f.attempts++
	return errFlaky
}

// Database connects and disconnects asynchronously. A nil gate completes
// immediately; otherwise the hooks wait for the gate to close.
type Database struct {
	DSN       string `inject:"-"`
	gate      chan struct{}
	connected bool
	closed    bool
}

func (d *Database) Connect(ctx context.Context) *container.Future {
	return container.Go(ctx, func(ctx context.Context) (any, error) {
		if d.gate != nil {
			<-d.gate
		}
		d.connected = true
		return nil, nil
	})
}

func (d *Database) Disconnect(ctx context.Context) *container.Future {
	return container.Go(ctx, func(ctx context.Context) (any, error) {
		if d.gate != nil {
			<-d.gate
		}
		d.closed = true
		return nil, nil
	})
}

type Replicated struct {
	Primary *Database `inject:"primary"`
	Replica *Database `inject:"replica"`
}

// Recorder appends its name to a shared log when destroyed.
type Recorder struct {
	name string
	log  *[]string
}

func (r *Recorder) Close() { *r.log = append(*r.log, r.name) }

func recorder(name string, log *[]string) func() *Recorder {
	return func() *Recorder { return &Recorder{name: name, log: log} }
}

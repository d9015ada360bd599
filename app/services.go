// Package app holds the demo services wired by main.go.
package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/km-arc/go-autodi/framework/container"
)

// Greeter is bound to EnglishGreeter unless the dependency file rebinds it.
type Greeter interface {
	Greet(name string) string
}

type EnglishGreeter struct{}

func (*EnglishGreeter) Greet(name string) string { return "Hello, " + name }

// ServiceB is an application singleton.
type ServiceB struct {
	started time.Time
	calls   atomic.Int64
}

func NewServiceB() *ServiceB { return &ServiceB{started: time.Now()} }

// Count returns how many times the singleton has been used.
func (b *ServiceB) Count() int64 { return b.calls.Add(1) }

// ServiceA is built once per request and shares the ServiceB singleton.
type ServiceA struct {
	B       *ServiceB
	Greeter Greeter
}

func (a *ServiceA) Welcome(name string) string {
	return fmt.Sprintf("%s (visit #%d)", a.Greeter.Greet(name), a.B.Count())
}

// DatabaseConnection connects when resolved and closes with its scope.
type DatabaseConnection struct {
	name      string
	connected atomic.Bool
}

func NewDatabaseConnection() *DatabaseConnection {
	return &DatabaseConnection{name: "demo"}
}

func (db *DatabaseConnection) Connect(ctx context.Context) *container.Future {
	return container.Go(ctx, func(ctx context.Context) (any, error) {
		select {
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		db.connected.Store(true)
		return nil, nil
	})
}

func (db *DatabaseConnection) Close(ctx context.Context) *container.Future {
	return container.Go(ctx, func(context.Context) (any, error) {
		db.connected.Store(false)
		return nil, nil
	})
}

func (db *DatabaseConnection) Connected() bool { return db.connected.Load() }

// Query fails unless the connection is open.
func (db *DatabaseConnection) Query(sql string) (string, error) {
	if !db.connected.Load() {
		return "", fmt.Errorf("database %s is not connected", db.name)
	}
	return fmt.Sprintf("result for %q", sql), nil
}

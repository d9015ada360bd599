package container

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrDependency matches every error produced by the container.
	ErrDependency = errors.New("container: dependency error")

	// ErrConfiguration matches *ConfigurationError.
	ErrConfiguration = errors.New("container: configuration error")

	// ErrResolution matches *ResolutionError.
	ErrResolution = errors.New("container: resolution error")

	// ErrCircularDependency matches *CircularDependencyError.
	ErrCircularDependency = errors.New("container: circular dependency")

	// ErrScope matches *ScopeError.
	ErrScope = errors.New("container: scope error")

	// ErrProvider matches *ProviderError.
	ErrProvider = errors.New("container: provider error")

	// ErrAsyncRequired is the cause of a ProviderError when the blocking path
	// meets a factory or hook whose result is still pending.
	ErrAsyncRequired = errors.New("container: pending result requires ResolveAsync")
)

// ConfigurationError reports conflicting or missing registration arguments,
// or a constructor parameter without a concrete type declaration.
type ConfigurationError struct {
	// Subject names what was being configured: a key, a struct field, a
	// function parameter or a dependency-file entry.
	Subject string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	// Example: container: configuration error for "*app.Service": both implementation and provider supplied
	msg := "container: configuration error for " + strconv.Quote(e.Subject) + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrDependency || target == ErrConfiguration
}

// ResolutionError is returned when no provider exists for a key, or when a
// resolved value cannot be used where it was requested.
type ResolutionError struct {
	Key    Key
	Reason string

	// Path holds the keys that were being resolved when the failure happened,
	// outermost first.
	Path []Key
}

func (e *ResolutionError) Error() string {
	// Example: container: cannot resolve "*app.Repo": no provider registered (while resolving *app.Service)
	msg := "container: cannot resolve " + strconv.Quote(e.Key.String()) + ": " + e.Reason
	if len(e.Path) > 0 {
		msg += " (while resolving " + joinKeys(e.Path) + ")"
	}
	return msg
}

func (e *ResolutionError) Is(target error) bool {
	return target == ErrDependency || target == ErrResolution
}

// CircularDependencyError carries the full chain from the first key entered
// to the key that re-entered the resolution stack.
type CircularDependencyError struct {
	Chain []Key
}

func (e *CircularDependencyError) Error() string {
	// Example: container: circular dependency: *app.A -> *app.B -> *app.A
	return "container: circular dependency: " + joinKeys(e.Chain)
}

func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrDependency || target == ErrCircularDependency
}

// ScopeError reports a nested scope entry, or a provider whose scope does not
// match the active one.
type ScopeError struct {
	// Key is zero for scope entry failures.
	Key      Key
	Required Scope
	Active   Scope
	Reason   string
}

func (e *ScopeError) Error() string {
	active := "none"
	if e.Active != "" {
		active = strconv.Quote(string(e.Active))
	}
	if e.Key.IsZero() {
		// Example: container: cannot enter scope "request": scope "request" is already active
		return "container: cannot enter scope " + strconv.Quote(string(e.Required)) + ": " + e.Reason + " (active: " + active + ")"
	}
	// Example: container: "*app.Session" requires scope "request" but active scope is none
	return "container: " + strconv.Quote(e.Key.String()) + " requires scope " +
		strconv.Quote(string(e.Required)) + " but active scope is " + active
}

func (e *ScopeError) Is(target error) bool {
	return target == ErrDependency || target == ErrScope
}

// ProviderError wraps a failure raised by a factory or a lifecycle hook.
type ProviderError struct {
	Key Key

	// Hook is empty when the factory itself failed.
	Hook string
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Hook != "" {
		// Example: container: hook "Close" of "*app.DB" failed: connection reset
		return "container: hook " + strconv.Quote(e.Hook) + " of " + strconv.Quote(e.Key.String()) + " failed: " + errString(e.Err)
	}
	// Example: container: provider for "*app.DB" failed: dial tcp: refused
	return "container: provider for " + strconv.Quote(e.Key.String()) + " failed: " + errString(e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool {
	return target == ErrDependency || target == ErrProvider
}

func joinKeys(keys []Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, " -> ")
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

// Kind names the error kind of err: "configuration", "resolution",
// "circular_dependency", "scope" or "provider". It returns "" for errors that
// did not come from the container.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCircularDependency):
		return "circular_dependency"
	case errors.Is(err, ErrScope):
		return "scope"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrProvider):
		return "provider"
	case errors.Is(err, ErrResolution):
		return "resolution"
	}
	return ""
}

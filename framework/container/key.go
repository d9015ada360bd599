package container

import (
	"reflect"
)

// Key identifies a dependency. Two keys are equal when they carry the same Go
// type and the same alias name, so a Key is safe to use as a map key.
//
// Scope is a property of the registered provider, never of the key.
type Key struct {
	typ  reflect.Type
	name string
}

// KeyOf returns the key for type T.
//
//	c.Register(container.KeyOf[*UserService]())
func KeyOf[T any]() Key {
	return Key{typ: reflect.TypeFor[T]()}
}

// Named returns an opaque alias over T. Named keys are distinct from KeyOf[T]
// and from each other, which lets one Go type back several dependencies.
//
//	primary := container.Named[*Database]("PrimaryDatabase")
//	replica := container.Named[*Database]("ReplicaDatabase")
func Named[T any](name string) Key {
	return Key{typ: reflect.TypeFor[T](), name: name}
}

// TypeKey returns the key for t.
func TypeKey(t reflect.Type) Key {
	return Key{typ: t}
}

// KeyFor returns the key for the dynamic type of v. A nil pointer to an
// interface yields the interface type itself.
//
//	key := container.KeyFor((*UserRepository)(nil))  // key of the UserRepository interface
func KeyFor(v any) Key {
	t := reflect.TypeOf(v)
	if t == nil {
		return Key{}
	}
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Interface {
		t = t.Elem()
	}
	return Key{typ: t}
}

// Type returns the Go type behind the key.
func (k Key) Type() reflect.Type { return k.typ }

// Name returns the alias name, empty for plain type keys.
func (k Key) Name() string { return k.name }

// IsZero reports whether k was never initialised.
func (k Key) IsZero() bool { return k.typ == nil }

func (k Key) String() string {
	switch {
	case k.typ == nil:
		return "<zero key>"
	case k.name != "":
		return k.name + " (" + k.typ.String() + ")"
	default:
		return k.typ.String()
	}
}

// constructible reports whether t can be instantiated by auto-wiring: a struct
// or a pointer to a struct.
func constructible(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// untyped reports whether t carries no type information (any / interface{}).
func untyped(t reflect.Type) bool {
	return t.Kind() == reflect.Interface && t.NumMethod() == 0
}

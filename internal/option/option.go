// Package option provides a small generic functional-options
// mechanism shared by EncodeOptions and DecodeOptions in package bson.
package option

// Option configures a target of type T.
type Option[T any] interface {
	Apply(T)
}

type funcOption[T any] struct {
	fn func(T)
}

func (f *funcOption[T]) Apply(target T) { f.fn(target) }

// New wraps fn as an Option.
func New[T any](fn func(T)) Option[T] {
	return &funcOption[T]{fn: fn}
}

// Apply runs every option against target, in order.
func Apply[T any](target T, opts ...Option[T]) {
	for _, opt := range opts {
		opt.Apply(target)
	}
}

package engine

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned, wrapped, when no loader knows a template path.
var ErrNotFound = errors.New("engine: template not found")

// TypeError reports a template, or the outcome of invoking it, that has no
// renderable shape.
type TypeError struct {
	Path string
	Type string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("engine: template %q: Template was of type %s, must be a string, promise, or function.", e.Path, e.Type)
}

// PanicError wraps a panic raised while a template function ran.
type PanicError struct {
	Path  string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("engine: template %q panicked: %v", e.Path, e.Value)
}

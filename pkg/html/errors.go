package html

import "fmt"

// UnsupportedValueError is returned by strict renders when a slot holds a
// value that has no string form.
type UnsupportedValueError struct {
	Kind  Kind
	Value any
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("html: unsupported interpolation of kind %s (%T)", e.Kind, e.Value)
}

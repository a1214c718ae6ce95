package convert

import (
	"errors"
	"fmt"
	"reflect"
)

var ErrNoConverter = errors.New("no converter accepts the type")

// ConversionError reports text that could not become the requested type.
type ConversionError struct {
	Value string
	Type  reflect.Type
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %q to %s: %v", e.Value, typeName(e.Type), e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

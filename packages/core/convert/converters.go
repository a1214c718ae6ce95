package convert

import (
	"errors"
	"reflect"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"golang.org/x/text/language"
)

const (
	DefaultDateLayout    = "2006-01-02"
	DefaultListDelimiter = ","
)

// ParameterConverter turns step parameter text into a value of a target type.
type ParameterConverter interface {
	Accept(t reflect.Type) bool
	Convert(value string, t reflect.Type) (any, error)
}

// nested converters convert elements through the registry that calls them.
type nested interface {
	acceptIn(c *Converters, t reflect.Type) bool
	convertIn(c *Converters, value string, t reflect.Type) (any, error)
}

type settings struct {
	locale        language.Tag
	dateLayout    string
	listDelimiter string
	transformers  *model.TableTransformers
}

type Option func(*settings)

func WithLocale(tag language.Tag) Option {
	return func(s *settings) {
		s.locale = tag
	}
}

func WithDateLayout(layout string) Option {
	return func(s *settings) {
		if layout != "" {
			s.dateLayout = layout
		}
	}
}

func WithListDelimiter(delimiter string) Option {
	return func(s *settings) {
		if delimiter != "" {
			s.listDelimiter = delimiter
		}
	}
}

func WithTableTransformers(t *model.TableTransformers) Option {
	return func(s *settings) {
		s.transformers = t
	}
}

// Converters is an immutable, ordered converter registry. The most recently
// added converter is tried first, so user converters shadow the built-ins.
type Converters struct {
	converters []ParameterConverter
	settings   settings
}

// New returns a registry holding the built-in converters.
func New(opts ...Option) *Converters {
	s := settings{
		locale:        language.English,
		dateLayout:    DefaultDateLayout,
		listDelimiter: DefaultListDelimiter,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.transformers == nil {
		s.transformers = model.NewTableTransformers()
	}

	c := &Converters{settings: s}
	// ascending precedence
	c.converters = []ParameterConverter{
		stringConverter{},
		newNumberConverter(s.locale),
		boolConverter{},
		textUnmarshalerConverter{},
		durationConverter{},
		timeConverter{layout: s.dateLayout},
		jsonConverter{},
		tableConverter{transformers: s.transformers},
		tableRowsConverter{transformers: s.transformers},
		sliceConverter{delimiter: s.listDelimiter},
		setConverter{delimiter: s.listDelimiter},
	}
	return c
}

// With returns a new registry with converters added on top, the last one
// taking precedence. The receiver is unchanged.
func (c *Converters) With(converters ...ParameterConverter) *Converters {
	out := &Converters{
		converters: make([]ParameterConverter, 0, len(c.converters)+len(converters)),
		settings:   c.settings,
	}
	out.converters = append(out.converters, c.converters...)
	out.converters = append(out.converters, converters...)
	return out
}

func (c *Converters) find(t reflect.Type) ParameterConverter {
	for i := len(c.converters) - 1; i >= 0; i-- {
		conv := c.converters[i]
		if n, ok := conv.(nested); ok {
			if n.acceptIn(c, t) {
				return conv
			}
			continue
		}
		if conv.Accept(t) {
			return conv
		}
	}
	return nil
}

// Accepts reports whether some converter handles t.
func (c *Converters) Accepts(t reflect.Type) bool {
	return c.find(t) != nil
}

// Convert converts value to t. Failures are always *ConversionError.
func (c *Converters) Convert(value string, t reflect.Type) (any, error) {
	conv := c.find(t)
	if conv == nil {
		return nil, &ConversionError{Value: value, Type: t, Err: ErrNoConverter}
	}

	var out any
	var err error
	if n, ok := conv.(nested); ok {
		out, err = n.convertIn(c, value, t)
	} else {
		out, err = conv.Convert(value, t)
	}
	if err != nil {
		var convErr *ConversionError
		if errors.As(err, &convErr) {
			return nil, err
		}
		return nil, &ConversionError{Value: value, Type: t, Err: err}
	}
	return out, nil
}

// Len returns the number of registered converters.
func (c *Converters) Len() int {
	return len(c.converters)
}

// Transformers returns the table transformers used by the table converters.
func (c *Converters) Transformers() *model.TableTransformers {
	return c.settings.transformers
}

// Func adapts a typed function into a converter for exactly type T.
func Func[T any](fn func(value string) (T, error)) ParameterConverter {
	return funcConverter[T]{fn: fn, target: reflect.TypeOf((*T)(nil)).Elem()}
}

type funcConverter[T any] struct {
	fn     func(string) (T, error)
	target reflect.Type
}

func (f funcConverter[T]) Accept(t reflect.Type) bool {
	return t == f.target
}

func (f funcConverter[T]) Convert(value string, _ reflect.Type) (any, error) {
	return f.fn(value)
}

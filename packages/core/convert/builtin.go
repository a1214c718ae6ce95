package convert

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	timeType            = reflect.TypeOf(time.Time{})
	gjsonType           = reflect.TypeOf(gjson.Result{})
	tableType           = reflect.TypeOf(model.ExamplesTable{})
	tablePtrType        = reflect.TypeOf(&model.ExamplesTable{})
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	stringMapType       = reflect.TypeOf(map[string]string{})
)

type stringConverter struct{}

func (stringConverter) Accept(t reflect.Type) bool {
	return t.Kind() == reflect.String || (t.Kind() == reflect.Interface && t.NumMethod() == 0)
}

func (stringConverter) Convert(value string, t reflect.Type) (any, error) {
	if t.Kind() == reflect.Interface {
		return value, nil
	}
	return reflect.ValueOf(value).Convert(t).Interface(), nil
}

// numberConverter parses integers and floats using the grouping and decimal
// separators of a locale.
type numberConverter struct {
	group   string
	decimal string
}

func newNumberConverter(tag language.Tag) numberConverter {
	// "1234.5" rendered by the locale exposes both separators
	s := message.NewPrinter(tag).Sprintf("%.1f", 1234.5)
	nc := numberConverter{group: ",", decimal: "."}
	if i1, i2 := strings.Index(s, "1"), strings.Index(s, "2"); i1 >= 0 && i2 > i1 {
		nc.group = s[i1+1 : i2]
	}
	if i4, i5 := strings.LastIndex(s, "4"), strings.LastIndex(s, "5"); i4 >= 0 && i5 > i4 {
		nc.decimal = s[i4+1 : i5]
	}
	return nc
}

func (numberConverter) Accept(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (n numberConverter) normalize(value string) string {
	value = strings.TrimSpace(value)
	if n.group != "" {
		value = strings.ReplaceAll(value, n.group, "")
	}
	if n.decimal != "" && n.decimal != "." {
		value = strings.ReplaceAll(value, n.decimal, ".")
	}
	return value
}

func (n numberConverter) Convert(value string, t reflect.Type) (any, error) {
	text := n.normalize(value)
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(text, 10, t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(text, 10, t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetUint(u)
	default:
		f, err := strconv.ParseFloat(text, t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetFloat(f)
	}
	return v.Interface(), nil
}

type boolConverter struct{}

func (boolConverter) Accept(t reflect.Type) bool {
	return t.Kind() == reflect.Bool
}

func (boolConverter) Convert(value string, t reflect.Type) (any, error) {
	var b bool
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "on", "1", "t", "y":
		b = true
	case "false", "no", "off", "0", "f", "n":
		b = false
	default:
		return nil, fmt.Errorf("not a boolean")
	}
	return reflect.ValueOf(b).Convert(t).Interface(), nil
}

type durationConverter struct{}

func (durationConverter) Accept(t reflect.Type) bool {
	return t == durationType
}

func (durationConverter) Convert(value string, _ reflect.Type) (any, error) {
	return time.ParseDuration(strings.TrimSpace(value))
}

type timeConverter struct {
	layout string
}

func (timeConverter) Accept(t reflect.Type) bool {
	return t == timeType
}

func (c timeConverter) Convert(value string, _ reflect.Type) (any, error) {
	return time.Parse(c.layout, strings.TrimSpace(value))
}

type textUnmarshalerConverter struct{}

func (textUnmarshalerConverter) Accept(t reflect.Type) bool {
	return t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(textUnmarshalerType)
}

func (textUnmarshalerConverter) Convert(value string, t reflect.Type) (any, error) {
	ptr := reflect.New(t)
	if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(value)); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

type jsonConverter struct{}

func (jsonConverter) Accept(t reflect.Type) bool {
	return t == gjsonType
}

func (jsonConverter) Convert(value string, _ reflect.Type) (any, error) {
	if !gjson.Valid(value) {
		return nil, fmt.Errorf("invalid JSON")
	}
	return gjson.Parse(value), nil
}

type tableConverter struct {
	transformers *model.TableTransformers
}

func (tableConverter) Accept(t reflect.Type) bool {
	return t == tableType || t == tablePtrType
}

func (c tableConverter) Convert(value string, t reflect.Type) (any, error) {
	table, err := model.ParseExamplesTable(value, c.transformers)
	if err != nil {
		return nil, err
	}
	if t == tableType {
		return *table, nil
	}
	return table, nil
}

// tableRowsConverter decodes a table into a slice of structs or of
// map[string]string, one element per row.
type tableRowsConverter struct {
	transformers *model.TableTransformers
}

func (tableRowsConverter) Accept(t reflect.Type) bool {
	if t.Kind() != reflect.Slice {
		return false
	}
	elem := t.Elem()
	if elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	return (elem.Kind() == reflect.Struct && elem != timeType && elem != gjsonType) || elem == stringMapType
}

func (c tableRowsConverter) Convert(value string, t reflect.Type) (any, error) {
	table, err := model.ParseExamplesTable(value, c.transformers)
	if err != nil {
		return nil, err
	}
	out := reflect.New(t)
	if err := table.RowsAs(out.Interface()); err != nil {
		return nil, err
	}
	return out.Elem().Interface(), nil
}

// sliceConverter splits ordered collections on a delimiter and converts each
// element through the calling registry.
type sliceConverter struct {
	delimiter string
}

func (sliceConverter) Accept(t reflect.Type) bool {
	return t.Kind() == reflect.Slice
}

func (s sliceConverter) Convert(value string, t reflect.Type) (any, error) {
	return s.convertIn(New(), value, t)
}

func (sliceConverter) acceptIn(c *Converters, t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8 && c.Accepts(t.Elem())
}

func (s sliceConverter) convertIn(c *Converters, value string, t reflect.Type) (any, error) {
	parts := splitList(value, s.delimiter)
	out := reflect.MakeSlice(t, 0, len(parts))
	for _, part := range parts {
		elem, err := c.Convert(part, t.Elem())
		if err != nil {
			return nil, err
		}
		out = reflect.Append(out, reflect.ValueOf(elem))
	}
	return out.Interface(), nil
}

// setConverter fills map[T]struct{} and map[T]bool from a delimited list.
type setConverter struct {
	delimiter string
}

func isSetType(t reflect.Type) bool {
	if t.Kind() != reflect.Map {
		return false
	}
	elem := t.Elem()
	return elem.Kind() == reflect.Bool || (elem.Kind() == reflect.Struct && elem.NumField() == 0)
}

func (setConverter) Accept(t reflect.Type) bool {
	return isSetType(t)
}

func (s setConverter) Convert(value string, t reflect.Type) (any, error) {
	return s.convertIn(New(), value, t)
}

func (setConverter) acceptIn(c *Converters, t reflect.Type) bool {
	return isSetType(t) && c.Accepts(t.Key())
}

func (s setConverter) convertIn(c *Converters, value string, t reflect.Type) (any, error) {
	out := reflect.MakeMap(t)
	member := reflect.New(t.Elem()).Elem()
	if t.Elem().Kind() == reflect.Bool {
		member.SetBool(true)
	}
	for _, part := range splitList(value, s.delimiter) {
		key, err := c.Convert(part, t.Key())
		if err != nil {
			return nil, err
		}
		out.SetMapIndex(reflect.ValueOf(key), member)
	}
	return out.Interface(), nil
}

func splitList(value, delimiter string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, delimiter)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Enum returns a converter for the given values of an enumerated type,
// matched case-insensitively against their String form. Spaces and hyphens
// in the text match underscores in the name.
func Enum[T fmt.Stringer](values ...T) ParameterConverter {
	e := enumConverter{
		target: reflect.TypeOf((*T)(nil)).Elem(),
		byName: make(map[string]any, len(values)),
	}
	for _, v := range values {
		name := v.String()
		e.names = append(e.names, name)
		e.byName[normalizeEnumName(name)] = v
	}
	return e
}

type enumConverter struct {
	target reflect.Type
	names  []string
	byName map[string]any
}

func (e enumConverter) Accept(t reflect.Type) bool {
	return t == e.target
}

func (e enumConverter) Convert(value string, _ reflect.Type) (any, error) {
	if v, ok := e.byName[normalizeEnumName(value)]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("valid values are %s", strings.Join(e.names, ", "))
}

func normalizeEnumName(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

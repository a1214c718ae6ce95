package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// MetaPrefix starts every property in a meta block.
const MetaPrefix = "@"

// Meta is an ordered set of named properties, each with an optional value.
type Meta struct {
	names  []string
	values map[string]string
}

// NewMeta builds meta from properties. Names listed in order come first, the
// rest follow in no particular order.
func NewMeta(properties map[string]string, order ...string) Meta {
	m := Meta{values: make(map[string]string, len(properties))}
	seen := make(map[string]bool)
	for _, name := range order {
		if value, ok := properties[name]; ok && !seen[name] {
			m.set(name, value)
			seen[name] = true
		}
	}
	for name, value := range properties {
		if !seen[name] {
			m.set(name, value)
		}
	}
	return m
}

// ParseMeta reads "@name value @other" style text. Properties may span lines.
func ParseMeta(text string) Meta {
	m := Meta{values: make(map[string]string)}
	for _, part := range strings.Split(text, MetaPrefix) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		name := fields[0]
		value := strings.TrimSpace(strings.TrimPrefix(part, name))
		m.set(name, strings.Join(strings.Fields(value), " "))
	}
	return m
}

func (m *Meta) set(name, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, exists := m.values[name]; !exists {
		m.names = append(m.names, name)
	}
	m.values[name] = value
}

func (m Meta) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

// Value returns the value of name, empty when absent or valueless.
func (m Meta) Value(name string) string {
	return m.values[name]
}

func (m Meta) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

func (m Meta) IsEmpty() bool {
	return len(m.names) == 0
}

// Map returns a copy of the properties.
func (m Meta) Map() map[string]string {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// InheritFrom returns parent's properties overridden by m's.
func (m Meta) InheritFrom(parent Meta) Meta {
	merged := Meta{values: make(map[string]string)}
	for _, name := range parent.names {
		merged.set(name, parent.values[name])
	}
	for _, name := range m.names {
		merged.set(name, m.values[name])
	}
	return merged
}

func (m Meta) String() string {
	var sb strings.Builder
	for i, name := range m.names {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(MetaPrefix)
		sb.WriteString(name)
		if v := m.values[name]; v != "" {
			sb.WriteString(" ")
			sb.WriteString(v)
		}
	}
	return sb.String()
}

// ExprFilterPrefix switches a meta filter to expression mode, e.g.
// "expr: has('smoke') && value('priority') == 'high'".
const ExprFilterPrefix = "expr:"

type metaClause struct {
	name    string
	value   *regexp.Regexp
	include bool
}

func (c metaClause) matches(m Meta) bool {
	if !m.Has(c.name) {
		return false
	}
	if c.value == nil {
		return true
	}
	return c.value.MatchString(m.Value(c.name))
}

// MetaFilter decides whether a story or scenario runs based on its meta.
//
// Clauses are "+name [value]" (must match), "-name [value]" (must not
// match) or "name:value". Values accept "*" wildcards. All include clauses
// must match and no exclude clause may match.
type MetaFilter struct {
	source  string
	clauses []metaClause
	program *vm.Program
}

// ParseMetaFilter compiles a filter expression. An empty expression allows everything.
func ParseMetaFilter(filter string) (*MetaFilter, error) {
	f := &MetaFilter{source: strings.TrimSpace(filter)}
	if f.source == "" {
		return f, nil
	}

	if strings.HasPrefix(f.source, ExprFilterPrefix) {
		code := strings.TrimSpace(strings.TrimPrefix(f.source, ExprFilterPrefix))
		program, err := expr.Compile(code, expr.Env(metaEnv(Meta{})), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("invalid meta filter expression %q: %w", code, err)
		}
		f.program = program
		return f, nil
	}

	var current *metaClause
	var valueParts []string
	flush := func() error {
		if current == nil {
			return nil
		}
		if len(valueParts) > 0 {
			re, err := wildcardPattern(strings.Join(valueParts, " "))
			if err != nil {
				return err
			}
			current.value = re
		}
		f.clauses = append(f.clauses, *current)
		current = nil
		valueParts = nil
		return nil
	}

	for _, token := range strings.Fields(f.source) {
		include := true
		switch token[0] {
		case '+':
			token = token[1:]
		case '-':
			include = false
			token = token[1:]
		default:
			if current != nil && !strings.Contains(token, ":") {
				valueParts = append(valueParts, token)
				continue
			}
		}
		if err := flush(); err != nil {
			return nil, err
		}
		if token == "" {
			return nil, fmt.Errorf("invalid meta filter %q: empty property name", filter)
		}
		name, value, hasValue := strings.Cut(token, ":")
		current = &metaClause{name: name, include: include}
		if hasValue && value != "" {
			valueParts = append(valueParts, value)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return f, nil
}

// Allow reports whether meta passes the filter.
func (f *MetaFilter) Allow(m Meta) bool {
	if f == nil {
		return true
	}
	if f.program != nil {
		out, err := expr.Run(f.program, metaEnv(m))
		if err != nil {
			return false
		}
		allowed, _ := out.(bool)
		return allowed
	}
	for _, c := range f.clauses {
		if c.matches(m) != c.include {
			return false
		}
	}
	return true
}

func (f *MetaFilter) IsEmpty() bool {
	return f == nil || f.source == ""
}

func (f *MetaFilter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}

func metaEnv(m Meta) map[string]any {
	return map[string]any{
		"has":   func(name string) bool { return m.Has(name) },
		"value": func(name string) string { return m.Value(name) },
		"meta":  m.Map(),
	}
}

func wildcardPattern(value string) (*regexp.Regexp, error) {
	parts := strings.Split(value, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile("^" + strings.Join(parts, ".*") + "$")
}

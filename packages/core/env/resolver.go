package env

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc receives warnings such as unresolved variables.
type WarnFunc func(format string, args ...any)

// Lookup finds a variable by name. Step values are looked up this way
// before the resolver's own variables.
type Lookup func(name string) (any, bool)

// Functions evaluates calls such as uuid() or random(1, 6).
type Functions interface {
	Call(expr string) (any, bool)
}

// Resolver expands {{...}} references in step values:
//   - {{name}} a variable, from the lookups first, then the resolver
//   - {{$NAME}} an environment variable
//   - {{fn(args)}} a function call
//
// Unresolved references are left as they are.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]any
	funcs     Functions
	warnFunc  WarnFunc
}

// NewResolver creates a resolver. funcs may be nil.
func NewResolver(funcs Functions) *Resolver {
	return &Resolver{
		variables: make(map[string]any),
		funcs:     funcs,
	}
}

// SetWarnFunc sets the function called for unresolvable expressions.
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

// SetVariables adds vars, replacing existing values.
func (r *Resolver) SetVariables(vars map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

// GetVariable consults lookups in order before the resolver's own variables.
func (r *Resolver) GetVariable(name string, lookups ...Lookup) (any, bool) {
	for _, lookup := range lookups {
		if lookup == nil {
			continue
		}
		if v, ok := lookup(name); ok {
			return v, true
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variables[name]
	return v, ok
}

// Resolve replaces every "{{...}}" expression it can evaluate. Others are left as they are.
func (r *Resolver) Resolve(input string, lookups ...Lookup) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		value, ok := r.resolveExpr(strings.TrimSpace(match[2:len(match)-2]), lookups)
		if !ok {
			return match
		}
		return fmt.Sprintf("%v", value)
	})
}

func (r *Resolver) resolveExpr(expr string, lookups []Lookup) (any, bool) {
	if name, ok := strings.CutPrefix(expr, "$"); ok {
		if val, set := os.LookupEnv(name); set {
			return val, true
		}
		r.warn("unresolved environment variable: $%s", name)
		return nil, false
	}

	if strings.Contains(expr, "(") {
		if r.funcs != nil {
			if result, ok := r.funcs.Call(expr); ok {
				return result, true
			}
		}
		r.warn("unresolved function call: %s", expr)
		return nil, false
	}

	if v, ok := r.GetVariable(expr, lookups...); ok {
		return v, true
	}
	r.warn("unresolved variable: %s", expr)
	return nil, false
}

// GetUnresolvedVariables returns the variable references in input that
// neither the lookups nor the resolver know, in order of appearance.
// Environment references and function calls are not reported.
func (r *Resolver) GetUnresolvedVariables(input string, lookups ...Lookup) []string {
	var unresolved []string
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if strings.HasPrefix(expr, "$") || strings.Contains(expr, "(") {
			continue
		}
		if _, ok := r.GetVariable(expr, lookups...); !ok {
			unresolved = append(unresolved, expr)
		}
	}
	return unresolved
}

func (r *Resolver) HasUnresolvedVariables(input string, lookups ...Lookup) bool {
	return len(r.GetUnresolvedVariables(input, lookups...)) > 0
}

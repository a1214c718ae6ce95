package steps

import (
	"context"
	"fmt"
	"reflect"
	"runtime"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
)

// Call is the run state handed to a step or hook handler next to its
// converted parameters.
type Call struct {
	Steps   *StepsContext
	Meta    model.Meta
	Failure error
}

// InvokeFunc runs a handler with converted parameter values.
type InvokeFunc func(ctx context.Context, call Call, args []any) error

// Descriptor registers one step handler. Composite lists step lines that
// run in place of (or after) the handler; Invoke may be nil for a
// composite-only step. ParamNames, when set, bind handler parameters by
// name instead of by position.
type Descriptor struct {
	Type       StepType
	Pattern    string
	Priority   int
	ParamNames []string
	ParamTypes []reflect.Type
	Invoke     InvokeFunc
	Composite  []string
	Source     string
}

func (d Descriptor) String() string {
	return d.Type.Keyword() + " " + d.Pattern
}

// Hook runs before or after a story or scenario. After hooks are gated by
// Outcome.
type Hook struct {
	Stage   model.Stage
	Scope   model.Scope
	Outcome model.Outcome
	Name    string
	Invoke  InvokeFunc
}

// Provider contributes steps and hooks to a registry.
type Provider interface {
	Register(r *Registry)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(r *Registry)

// Register calls f.
func (f ProviderFunc) Register(r *Registry) {
	f(r)
}

var (
	contextType      = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType        = reflect.TypeOf((*error)(nil)).Elem()
	stepsContextType = reflect.TypeOf(&StepsContext{})
	metaType         = reflect.TypeOf(model.Meta{})
)

// Handler is a reflected Go function ready to be registered.
type Handler struct {
	Invoke     InvokeFunc
	ParamTypes []reflect.Type
	Name       string
}

// Func adapts fn into a Handler. fn may take, in any order, a
// context.Context, a *StepsContext, a model.Meta and an error (the failure
// seen so far); every other parameter is converted from step text in
// order. fn returns nothing or a single error.
func Func(fn any) (Handler, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return Handler{}, fmt.Errorf("step handler must be a function, got %T", fn)
	}
	t := v.Type()
	switch {
	case t.NumOut() > 1:
		return Handler{}, fmt.Errorf("step handler %s returns %d values", t, t.NumOut())
	case t.NumOut() == 1 && t.Out(0) != errorType:
		return Handler{}, fmt.Errorf("step handler %s must return error", t)
	case t.IsVariadic():
		return Handler{}, fmt.Errorf("step handler %s is variadic", t)
	}

	type slot struct {
		inject reflect.Type
		param  int
	}
	slots := make([]slot, t.NumIn())
	var params []reflect.Type
	for i := 0; i < t.NumIn(); i++ {
		in := t.In(i)
		switch in {
		case contextType, stepsContextType, metaType, errorType:
			slots[i] = slot{inject: in}
		default:
			slots[i] = slot{param: len(params)}
			params = append(params, in)
		}
	}

	invoke := func(ctx context.Context, call Call, args []any) error {
		if len(args) != len(params) {
			return fmt.Errorf("handler expects %d parameters, got %d", len(params), len(args))
		}
		in := make([]reflect.Value, len(slots))
		for i, s := range slots {
			switch s.inject {
			case contextType:
				in[i] = reflect.ValueOf(&ctx).Elem()
			case stepsContextType:
				in[i] = reflect.ValueOf(call.Steps)
			case metaType:
				in[i] = reflect.ValueOf(call.Meta)
			case errorType:
				in[i] = reflect.New(errorType).Elem()
				if call.Failure != nil {
					in[i].Set(reflect.ValueOf(call.Failure))
				}
			default:
				arg := args[s.param]
				if arg == nil {
					in[i] = reflect.Zero(params[s.param])
				} else {
					in[i] = reflect.ValueOf(arg)
				}
			}
		}
		out := v.Call(in)
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}

	name := t.String()
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		name = f.Name()
	}
	return Handler{Invoke: invoke, ParamTypes: params, Name: name}, nil
}

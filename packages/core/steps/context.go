package steps

import (
	"fmt"
	"sync"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
)

// StepsContext shares values between steps. Each value is bound to a scope
// and cleared when that scope ends: story values outlive scenario values,
// which outlive example values.
type StepsContext struct {
	mu     sync.RWMutex
	values map[model.Scope]map[string]any
}

// NewStepsContext creates a context with empty scopes.
func NewStepsContext() *StepsContext {
	return &StepsContext{values: make(map[model.Scope]map[string]any)}
}

// Put stores value under key in scope. Storing a key already present in
// the same scope fails.
func (c *StepsContext) Put(key string, value any, scope model.Scope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bucket, ok := c.values[scope]
	if !ok {
		bucket = make(map[string]any)
		c.values[scope] = bucket
	}
	if _, exists := bucket[key]; exists {
		return &ObjectAlreadyStoredError{Key: key}
	}
	bucket[key] = value
	return nil
}

// Get returns the value for key, searching the narrowest scope first.
func (c *StepsContext) Get(key string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, scope := range []model.Scope{model.ScopeExample, model.ScopeScenario, model.ScopeStory} {
		if v, ok := c.values[scope][key]; ok {
			return v, nil
		}
	}
	return nil, &ObjectNotStoredError{Key: key}
}

// Value is Get with a type assertion.
func Value[T any](c *StepsContext, key string) (T, error) {
	var zero T
	v, err := c.Get(key)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("object with key %q is %T, not %T", key, v, zero)
	}
	return typed, nil
}

// ResetStory clears every scope.
func (c *StepsContext) ResetStory() {
	c.reset(model.ScopeStory, model.ScopeScenario, model.ScopeExample)
}

// ResetScenario clears scenario and example values.
func (c *StepsContext) ResetScenario() {
	c.reset(model.ScopeScenario, model.ScopeExample)
}

// ResetExample clears the example scope only.
func (c *StepsContext) ResetExample() {
	c.reset(model.ScopeExample)
}

func (c *StepsContext) reset(scopes ...model.Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, scope := range scopes {
		delete(c.values, scope)
	}
}

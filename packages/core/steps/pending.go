package steps

import (
	"fmt"
	"strings"
	"sync"
)

// PendingMethods collects a handler suggestion for every step that matched
// no candidate. Each suggestion is kept once, in first-seen order.
type PendingMethods struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	methods []string
}

// NewPendingMethods creates an empty collector.
func NewPendingMethods() *PendingMethods {
	return &PendingMethods{seen: make(map[string]struct{})}
}

// Add records a suggestion for a step of stepType with text. A nil
// collector ignores it.
func (p *PendingMethods) Add(stepType StepType, text string) {
	if p == nil {
		return
	}
	snippet := pendingSnippet(stepType, text)

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.seen[snippet]; ok {
		return
	}
	p.seen[snippet] = struct{}{}
	p.methods = append(p.methods, snippet)
}

// List returns the suggestions in first-seen order.
func (p *PendingMethods) List() []string {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.methods...)
}

// Len returns the number of distinct pending steps.
func (p *PendingMethods) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.methods)
}

func pendingSnippet(stepType StepType, text string) string {
	method := "Given"
	switch stepType {
	case When:
		method = "When"
	case Then:
		method = "Then"
	}
	return fmt.Sprintf("r.%s(%q, func(ctx context.Context) error {\n\treturn steps.ErrPending\n})",
		method, strings.TrimSpace(text))
}

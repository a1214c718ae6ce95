package assertions

import (
	"fmt"
	"sort"
	"strings"
)

// Operator is a comparison used in Then steps.
type Operator int

const (
	OpEquals Operator = iota + 1
	OpNotEquals
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
	OpMatches
	OpExists
	OpNotExists
	OpLength
	OpIncludes
	OpNotIncludes
	OpIn
	OpNotIn
	OpType
	OpSchema
	OpEach
)

// phrases maps the words written after "should" in a step to operators.
// Symbols are accepted as well.
var phrases = map[string]Operator{
	"be":                          OpEquals,
	"equal":                       OpEquals,
	"==":                          OpEquals,
	"not be":                      OpNotEquals,
	"not equal":                   OpNotEquals,
	"!=":                          OpNotEquals,
	"be greater than":             OpGreaterThan,
	">":                           OpGreaterThan,
	"be greater than or equal to": OpGreaterOrEqual,
	"be at least":                 OpGreaterOrEqual,
	">=":                          OpGreaterOrEqual,
	"be less than":                OpLessThan,
	"<":                           OpLessThan,
	"be less than or equal to":    OpLessOrEqual,
	"be at most":                  OpLessOrEqual,
	"<=":                          OpLessOrEqual,
	"contain":                     OpContains,
	"not contain":                 OpNotContains,
	"start with":                  OpStartsWith,
	"end with":                    OpEndsWith,
	"match":                       OpMatches,
	"exist":                       OpExists,
	"not exist":                   OpNotExists,
	"have length":                 OpLength,
	"include":                     OpIncludes,
	"not include":                 OpNotIncludes,
	"be in":                       OpIn,
	"not be in":                   OpNotIn,
	"be of type":                  OpType,
	"match schema":                OpSchema,
	"all be":                      OpEach,
}

// byLength holds the phrases longest first, so "be greater than" wins over
// "be".
var byLength = func() []string {
	out := make([]string, 0, len(phrases))
	for p := range phrases {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

func (o Operator) String() string {
	switch o {
	case OpEquals:
		return "equals"
	case OpNotEquals:
		return "notEquals"
	case OpGreaterThan:
		return ">"
	case OpGreaterOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessOrEqual:
		return "<="
	case OpContains:
		return "contains"
	case OpNotContains:
		return "notContains"
	case OpStartsWith:
		return "startsWith"
	case OpEndsWith:
		return "endsWith"
	case OpMatches:
		return "matches"
	case OpExists:
		return "exists"
	case OpNotExists:
		return "notExists"
	case OpLength:
		return "length"
	case OpIncludes:
		return "includes"
	case OpNotIncludes:
		return "notIncludes"
	case OpIn:
		return "in"
	case OpNotIn:
		return "notIn"
	case OpType:
		return "type"
	case OpSchema:
		return "schema"
	case OpEach:
		return "each"
	}
	return "unknown"
}

// Unary reports whether the operator takes no expected value.
func (o Operator) Unary() bool {
	return o == OpExists || o == OpNotExists
}

// Parse splits an expectation such as "be greater than 3" into its operator
// and the expected text.
func Parse(text string) (Operator, string, error) {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	for _, phrase := range byLength {
		if !strings.HasPrefix(lower, phrase) {
			continue
		}
		rest := text[len(phrase):]
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest[0] != '\n' {
			continue
		}
		op := phrases[phrase]
		expected := strings.TrimSpace(rest)
		if op.Unary() && expected != "" {
			continue
		}
		if !op.Unary() && expected == "" {
			continue
		}
		return op, expected, nil
	}
	return 0, "", fmt.Errorf("unknown expectation %q", text)
}

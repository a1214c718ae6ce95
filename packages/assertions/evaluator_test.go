package assertions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		op       Operator
		expected string
	}{
		{"be", "be 42", OpEquals, "42"},
		{"equal with spaces", "equal hello world", OpEquals, "hello world"},
		{"symbol", "== 3", OpEquals, "3"},
		{"longest phrase wins", "be greater than or equal to 5", OpGreaterOrEqual, "5"},
		{"greater than", "be greater than 5", OpGreaterThan, "5"},
		{"be in", "be in [1, 2]", OpIn, "[1, 2]"},
		{"not be in", "not be in [1, 2]", OpNotIn, "[1, 2]"},
		{"exist", "exist", OpExists, ""},
		{"not exist", "not exist", OpNotExists, ""},
		{"case insensitive", "Start With abc", OpStartsWith, "abc"},
		{"type", "be of type string", OpType, "string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, expected, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.op, op)
			assert.Equal(t, tt.expected, expected)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"", "wobble 3", "contain", "bee 3"} {
		_, _, err := Parse(input)
		assert.Error(t, err, input)
	}
}

func TestValue(t *testing.T) {
	assert.Equal(t, float64(42), Value("42"))
	assert.Equal(t, true, Value("true"))
	assert.Equal(t, []any{float64(1), "a"}, Value(`[1, "a"]`))
	assert.Equal(t, "hello", Value("hello"))
	assert.Equal(t, "", Value(""))
}

func TestEvaluator_Equals(t *testing.T) {
	e := NewEvaluator()

	tests := []struct {
		name     string
		actual   any
		expected any
		passed   bool
	}{
		{"same string", "John", "John", true},
		{"numeric across types", int64(30), float64(30), true},
		{"numeric string", "30", float64(30), true},
		{"different", "John", "Jane", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate("name", tt.actual, OpEquals, tt.expected)
			assert.Equal(t, tt.passed, result.Passed, result.Message)
		})
	}

	result := e.Evaluate("name", "John", OpNotEquals, "Jane")
	assert.True(t, result.Passed)
}

func TestEvaluator_Numeric(t *testing.T) {
	e := NewEvaluator()

	assert.True(t, e.Evaluate("n", 5, OpGreaterThan, float64(3)).Passed)
	assert.False(t, e.Evaluate("n", 3, OpGreaterThan, float64(3)).Passed)
	assert.True(t, e.Evaluate("n", 3, OpGreaterOrEqual, float64(3)).Passed)
	assert.True(t, e.Evaluate("n", "2.5", OpLessThan, float64(3)).Passed)
	assert.True(t, e.Evaluate("n", 3, OpLessOrEqual, float64(3)).Passed)

	result := e.Evaluate("n", "abc", OpLessThan, float64(3))
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "non-numeric")
}

func TestEvaluator_Strings(t *testing.T) {
	e := NewEvaluator()

	assert.True(t, e.Evaluate("s", "hello world", OpContains, "lo wo").Passed)
	assert.True(t, e.Evaluate("s", "hello world", OpNotContains, "bye").Passed)
	assert.True(t, e.Evaluate("s", "hello world", OpStartsWith, "hello").Passed)
	assert.True(t, e.Evaluate("s", "hello world", OpEndsWith, "world").Passed)
	assert.True(t, e.Evaluate("s", "abc-123", OpMatches, `/^[a-z]+-\d+$/`).Passed)

	result := e.Evaluate("s", "abc", OpMatches, "[")
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "invalid regex")
}

func TestEvaluator_Exists(t *testing.T) {
	e := NewEvaluator()

	assert.True(t, e.Evaluate("v", "x", OpExists, nil).Passed)
	assert.False(t, e.Evaluate("v", nil, OpExists, nil).Passed)
	assert.True(t, e.Evaluate("v", nil, OpNotExists, nil).Passed)
}

func TestEvaluator_Collections(t *testing.T) {
	e := NewEvaluator()
	items := []any{float64(1), float64(2), float64(3)}

	result := e.Evaluate("items", items, OpLength, float64(3))
	assert.True(t, result.Passed)
	assert.Equal(t, 3, result.Actual)

	assert.True(t, e.Evaluate("items", []string{"a", "b"}, OpLength, 2).Passed)
	assert.True(t, e.Evaluate("items", items, OpIncludes, 2).Passed)
	assert.True(t, e.Evaluate("items", items, OpNotIncludes, 7).Passed)
	assert.True(t, e.Evaluate("n", "b", OpIn, []any{"a", "b"}).Passed)
	assert.True(t, e.Evaluate("n", "c", OpNotIn, []any{"a", "b"}).Passed)
	assert.False(t, e.Evaluate("n", "c", OpIn, "a").Passed)
}

func TestEvaluator_Type(t *testing.T) {
	e := NewEvaluator()

	tests := []struct {
		actual   any
		expected string
	}{
		{nil, "null"},
		{true, "boolean"},
		{float64(1), "number"},
		{"s", "string"},
		{[]any{}, "array"},
		{map[string]any{}, "object"},
	}
	for _, tt := range tests {
		assert.True(t, e.Evaluate("v", tt.actual, OpType, tt.expected).Passed, tt.expected)
	}
}

func TestEvaluator_Each(t *testing.T) {
	e := NewEvaluator()

	assert.True(t, e.Evaluate("v", []any{"a", "a"}, OpEach, "a").Passed)
	assert.True(t, e.Evaluate("v", []any{}, OpEach, "a").Passed)

	result := e.Evaluate("v", []any{float64(5), float64(1)}, OpEach, map[string]any{"operator": ">", "value": float64(2)})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "item[1]")
}

func TestEvaluator_Schema(t *testing.T) {
	dir := t.TempDir()
	schema := `{"type": "object", "required": ["id"], "properties": {"id": {"type": "number"}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.json"), []byte(schema), 0o644))

	e := NewEvaluator(WithBaseDir(dir))

	assert.True(t, e.Evaluate("user", `{"id": 1}`, OpSchema, "user.json").Passed)
	assert.True(t, e.Evaluate("user", map[string]any{"id": 1}, OpSchema, Value(schema)).Passed)

	result := e.Evaluate("user", `{"name": "x"}`, OpSchema, "user.json")
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "schema validation failed")
}

func TestEvaluator_SchemaPathTraversal(t *testing.T) {
	e := NewEvaluator(WithBaseDir(t.TempDir()))

	result := e.Evaluate("user", `{}`, OpSchema, "../../etc/passwd")
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "path traversal")
}

func TestEvaluator_Check(t *testing.T) {
	e := NewEvaluator()

	require.NoError(t, e.Check("count", int64(3), "be 3"))
	require.NoError(t, e.Check("name", "hello world", "contain lo wo"))

	err := e.Check("count", 2, "be greater than 3")
	var assertionErr *AssertionError
	require.ErrorAs(t, err, &assertionErr)
	assert.Equal(t, "count", assertionErr.Subject)
	assert.Equal(t, OpGreaterThan, assertionErr.Operator)

	assert.Error(t, e.Check("count", 2, "frobnicate 3"))
}

func TestValidatePathWithinBase(t *testing.T) {
	base := t.TempDir()

	assert.NoError(t, validatePathWithinBase(filepath.Join(base, "a.json"), base))
	assert.NoError(t, validatePathWithinBase("/anywhere", ""))
	assert.Error(t, validatePathWithinBase(filepath.Join(base, "..", "a.json"), base))
}

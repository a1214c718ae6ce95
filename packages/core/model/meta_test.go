package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMeta(t *testing.T) {
	meta := ParseMeta(`@author Mauro
@theme   parametrisation
@skip`)

	assert.Equal(t, []string{"author", "theme", "skip"}, meta.Names())
	assert.Equal(t, "Mauro", meta.Value("author"))
	assert.Equal(t, "parametrisation", meta.Value("theme"))
	assert.True(t, meta.Has("skip"))
	assert.Equal(t, "", meta.Value("skip"))
	assert.False(t, meta.Has("missing"))
	assert.Equal(t, "@author Mauro @theme parametrisation @skip", meta.String())
}

func TestMeta_InheritFrom(t *testing.T) {
	story := ParseMeta("@author Mauro @theme story")
	scenario := ParseMeta("@theme scenario @smoke")

	merged := scenario.InheritFrom(story)
	assert.Equal(t, "Mauro", merged.Value("author"))
	assert.Equal(t, "scenario", merged.Value("theme"))
	assert.True(t, merged.Has("smoke"))
}

func TestMetaFilter_Allow(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		meta   string
		allow  bool
	}{
		{"empty filter", "", "@anything", true},
		{"include present", "+smoke", "@smoke", true},
		{"include absent", "+smoke", "@slow", false},
		{"exclude present", "-skip", "@skip", false},
		{"exclude absent", "-skip", "@smoke", true},
		{"include with value", "+theme parametrisation", "@theme parametrisation", true},
		{"include with other value", "+theme parametrisation", "@theme other", false},
		{"colon form", "priority:high", "@priority high", true},
		{"colon form mismatch", "priority:high", "@priority low", false},
		{"wildcard value", "+author Mau*", "@author Mauro", true},
		{"implicit and", "+smoke +fast", "@smoke", false},
		{"implicit and both", "+smoke +fast", "@smoke @fast", true},
		{"include and exclude", "+smoke -skip", "@smoke @skip", false},
		{"multi word value", "+author Mauro Talevi", "@author Mauro Talevi", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := ParseMetaFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.allow, filter.Allow(ParseMeta(tt.meta)))
		})
	}
}

func TestMetaFilter_Expression(t *testing.T) {
	filter, err := ParseMetaFilter("expr: has('smoke') && value('priority') == 'high'")
	require.NoError(t, err)

	assert.True(t, filter.Allow(ParseMeta("@smoke @priority high")))
	assert.False(t, filter.Allow(ParseMeta("@smoke @priority low")))
	assert.False(t, filter.Allow(ParseMeta("@priority high")))
}

func TestMetaFilter_InvalidExpression(t *testing.T) {
	_, err := ParseMetaFilter("expr: has(")
	require.Error(t, err)
}

func TestMetaFilter_Nil(t *testing.T) {
	var filter *MetaFilter
	assert.True(t, filter.Allow(ParseMeta("@x")))
	assert.True(t, filter.IsEmpty())
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExamplesTable_Basic(t *testing.T) {
	table, err := ParseExamplesTable("|a|b|\n|1|2|\n|3|4|", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, table.Headers())
	require.Equal(t, 2, table.RowCount())
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, table.Row(0))
	assert.Equal(t, []string{"3", "4"}, table.RowValues(1))
}

func TestParseExamplesTable_IgnorableAndComments(t *testing.T) {
	text := `|name|value|
|-- this row is ignored --|
|first|1| # trailing note
# a full comment line
|second|2|`

	table, err := ParseExamplesTable(text, nil)
	require.NoError(t, err)
	require.Equal(t, 2, table.RowCount())
	assert.Equal(t, "1", table.Row(0)["value"])
	assert.Equal(t, "second", table.Row(1)["name"])
}

func TestParseExamplesTable_Properties(t *testing.T) {
	t.Run("custom separators", func(t *testing.T) {
		table, err := ParseExamplesTable("{headerSeparator=!,valueSeparator=?}\n!a!b!\n?1?2?", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, table.Headers())
		assert.Equal(t, map[string]string{"a": "1", "b": "2"}, table.Row(0))
	})

	t.Run("trim disabled keeps whitespace", func(t *testing.T) {
		table, err := ParseExamplesTable("{trim=false}\n| a | b |\n| 1 | 2 |", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{" a ", " b "}, table.Headers())
		assert.Equal(t, " 1 ", table.Row(0)[" a "])
	})

	t.Run("separator equal to comment marker is rejected", func(t *testing.T) {
		_, err := ParseExamplesTable("{headerSeparator=#}\n#a#b#", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "comment separator")
	})

	t.Run("empty separator is rejected", func(t *testing.T) {
		_, err := ParseTableProperties("valueSeparator=")
		require.Error(t, err)
	})

	t.Run("escaped comma", func(t *testing.T) {
		props, err := ParseTableProperties(`replacing=a\,b,replacement=c`)
		require.NoError(t, err)
		assert.Equal(t, "a,b", props.Property("replacing"))
		assert.Equal(t, "c", props.Property("replacement"))
	})

	t.Run("defaults", func(t *testing.T) {
		props := DefaultTableProperties()
		assert.Equal(t, "|", props.HeaderSeparator())
		assert.Equal(t, "|", props.ValueSeparator())
		assert.Equal(t, "|--", props.IgnorableSeparator())
		assert.Equal(t, "#", props.CommentSeparator())
		assert.True(t, props.Trim())
		assert.False(t, props.MetaByRow())
		assert.Empty(t, props.Transformer())
	})
}

func TestParseExamplesTable_TooManyValues(t *testing.T) {
	_, err := ParseExamplesTable("|a|\n|1|2|", nil)
	require.Error(t, err)
}

func TestParseExamplesTable_MissingValuesAreEmpty(t *testing.T) {
	table, err := ParseExamplesTable("|a|b|\n|1|", nil)
	require.NoError(t, err)
	assert.Equal(t, "", table.Row(0)["b"])
}

func TestExamplesTable_AsStringRoundTrip(t *testing.T) {
	inputs := []string{
		"|a|b|\n|1|2|\n|3|4|",
		"{headerSeparator=!,valueSeparator=?}\n!a!b!\n?1?2?",
		"{trim=false}\n| a | b |\n| 1 | 2 |",
		"|only header|",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			original, err := ParseExamplesTable(input, nil)
			require.NoError(t, err)

			reparsed, err := ParseExamplesTable(original.AsString(), nil)
			require.NoError(t, err)

			assert.Equal(t, original.Headers(), reparsed.Headers())
			assert.Equal(t, original.Rows(), reparsed.Rows())
			assert.Equal(t, original.Properties().String(), reparsed.Properties().String())
		})
	}
}

// A value ending in a backslash is still not escaped, so it does not
// survive the round trip.
func TestExamplesTable_AsStringEscapesSeparators(t *testing.T) {
	original := NewExamplesTable([]string{"item", "filter"}, []map[string]string{
		{"item": "item #1", "filter": "a|b"},
		{"item": `c:\temp`, "filter": "plain"},
	})

	text := original.AsString()
	assert.Contains(t, text, `item \#1`)
	assert.Contains(t, text, `a\|b`)

	reparsed, err := ParseExamplesTable(text, nil)
	require.NoError(t, err)
	assert.Equal(t, original.Rows(), reparsed.Rows())
}

func TestParseExamplesTable_EscapedCells(t *testing.T) {
	table, err := ParseExamplesTable("|a|b|\n|x \\| y|z \\# not a comment| # comment", nil)
	require.NoError(t, err)
	assert.Equal(t, "x | y", table.Row(0)["a"])
	assert.Equal(t, "z # not a comment", table.Row(0)["b"])
}

func TestExamplesTable_RowMeta(t *testing.T) {
	table, err := ParseExamplesTable("{metaByRow=true}\n|Meta|v|\n|@smoke|1|\n|@slow yes|2|", nil)
	require.NoError(t, err)

	assert.True(t, table.RowMeta(0).Has("smoke"))
	assert.False(t, table.RowMeta(0).Has("slow"))
	assert.Equal(t, "yes", table.RowMeta(1).Value("slow"))
}

func TestExamplesTable_RowsAs(t *testing.T) {
	type person struct {
		Name string `table:"name"`
		Age  int    `table:"age"`
	}

	table, err := ParseExamplesTable("|name|age|\n|Ann|30|\n|Bob|41|", nil)
	require.NoError(t, err)

	var people []person
	require.NoError(t, table.RowsAs(&people))
	assert.Equal(t, []person{{Name: "Ann", Age: 30}, {Name: "Bob", Age: 41}}, people)
}

func TestTableTransformers(t *testing.T) {
	transformers := NewTableTransformers()

	t.Run("from landscape", func(t *testing.T) {
		table, err := ParseExamplesTable("{transformer=FROM_LANDSCAPE}\n|one|1|2|\n|two|3|4|", transformers)
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two"}, table.Headers())
		assert.Equal(t, []map[string]string{
			{"one": "1", "two": "3"},
			{"one": "2", "two": "4"},
		}, table.Rows())
	})

	t.Run("replacing", func(t *testing.T) {
		table, err := ParseExamplesTable("{transformer=REPLACING,replacing=%,replacement=|}\n%a%b%\n%1%2%", transformers)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, table.Headers())
		assert.Equal(t, "2", table.Row(0)["b"])
	})

	t.Run("unknown transformer", func(t *testing.T) {
		_, err := ParseExamplesTable("{transformer=NOPE}\n|a|", transformers)
		require.Error(t, err)
	})

	t.Run("custom transformer", func(t *testing.T) {
		transformers.Register("UPPER", func(text string, _ *TableProperties) (string, error) {
			return "|A|\n|" + "X" + "|", nil
		})
		table, err := ParseExamplesTable("{transformer=UPPER}\nignored", transformers)
		require.NoError(t, err)
		assert.Equal(t, "X", table.Row(0)["A"])
	})
}

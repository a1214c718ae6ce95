package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	DefaultHeaderSeparator    = "|"
	DefaultValueSeparator     = "|"
	DefaultIgnorableSeparator = "|--"
	DefaultCommentSeparator   = "#"

	// MetaColumn holds per-row meta when the table sets metaByRow=true.
	MetaColumn = "Meta"

	propHeaderSeparator    = "headerSeparator"
	propValueSeparator     = "valueSeparator"
	propIgnorableSeparator = "ignorableSeparator"
	propCommentSeparator   = "commentSeparator"
	propTrim               = "trim"
	propMetaByRow          = "metaByRow"
	propTransformer        = "transformer"
)

// TableProperties are the options of an examples table, written as a
// leading "{key=value,...}" block. A comma inside a value is escaped as "\,".
type TableProperties struct {
	keys   []string
	values map[string]string
	source string
}

// DefaultTableProperties returns properties with every value at its default.
func DefaultTableProperties() *TableProperties {
	return &TableProperties{values: make(map[string]string)}
}

// ParseTableProperties parses the content of a properties block without
// its braces.
func ParseTableProperties(text string) (*TableProperties, error) {
	p := DefaultTableProperties()
	p.source = strings.TrimSpace(text)
	if p.source == "" {
		return p, nil
	}
	for _, entry := range splitUnescaped(p.source, ',') {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid table property %q: expected key=value", strings.TrimSpace(entry))
		}
		p.set(strings.TrimSpace(key), strings.TrimSpace(strings.ReplaceAll(value, `\,`, ",")))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func splitUnescaped(s string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep && (i == 0 || s[i-1] != '\\') {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func (p *TableProperties) set(key, value string) {
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// With returns a copy with key set to value.
func (p *TableProperties) With(key, value string) *TableProperties {
	c := &TableProperties{values: make(map[string]string, len(p.values)+1)}
	for _, k := range p.keys {
		c.set(k, p.values[k])
	}
	c.set(key, value)
	return c
}

func (p *TableProperties) without(key string) *TableProperties {
	c := DefaultTableProperties()
	for _, k := range p.keys {
		if k != key {
			c.set(k, p.values[k])
		}
	}
	return c
}

func (p *TableProperties) get(key, fallback string) string {
	if v, ok := p.values[key]; ok {
		return v
	}
	return fallback
}

func (p *TableProperties) HeaderSeparator() string {
	return p.get(propHeaderSeparator, DefaultHeaderSeparator)
}

func (p *TableProperties) ValueSeparator() string {
	return p.get(propValueSeparator, DefaultValueSeparator)
}

func (p *TableProperties) IgnorableSeparator() string {
	return p.get(propIgnorableSeparator, DefaultIgnorableSeparator)
}

func (p *TableProperties) CommentSeparator() string {
	return p.get(propCommentSeparator, DefaultCommentSeparator)
}

// Trim reports whether cells are trimmed. Anything but a false value means true.
func (p *TableProperties) Trim() bool {
	b, err := strconv.ParseBool(p.get(propTrim, "true"))
	return err != nil || b
}

// MetaByRow reports whether the Meta column holds per-row meta.
func (p *TableProperties) MetaByRow() bool {
	b, _ := strconv.ParseBool(p.get(propMetaByRow, "false"))
	return b
}

// Transformer returns the name of the transformer to apply, if any.
func (p *TableProperties) Transformer() string {
	return p.values[propTransformer]
}

// Property returns any property, including ones only a transformer reads.
func (p *TableProperties) Property(key string) string {
	return p.values[key]
}

func (p *TableProperties) IsEmpty() bool {
	return len(p.keys) == 0
}

// Validate rejects separators that are empty or equal to the comment separator.
func (p *TableProperties) Validate() error {
	comment := p.CommentSeparator()
	for _, key := range []string{propHeaderSeparator, propValueSeparator} {
		sep := p.get(key, DefaultHeaderSeparator)
		if sep == "" {
			return fmt.Errorf("table property %s must not be empty", key)
		}
		if comment != "" && sep == comment {
			return fmt.Errorf("table property %s %q must differ from the comment separator", key, sep)
		}
	}
	for _, key := range []string{propTrim, propMetaByRow} {
		if v, ok := p.values[key]; ok {
			if _, err := strconv.ParseBool(v); err != nil {
				return fmt.Errorf("table property %s: %q is not a boolean", key, v)
			}
		}
	}
	return nil
}

// String renders the block content, without braces.
func (p *TableProperties) String() string {
	if p.source != "" {
		return p.source
	}
	entries := make([]string, len(p.keys))
	for i, k := range p.keys {
		entries[i] = k + "=" + strings.ReplaceAll(p.values[k], ",", `\,`)
	}
	return strings.Join(entries, ",")
}

// ExamplesTable is an ordered set of rows sharing one set of columns.
type ExamplesTable struct {
	headers []string
	rows    []map[string]string
	props   *TableProperties
}

func NewExamplesTable(headers []string, rows []map[string]string) *ExamplesTable {
	t := &ExamplesTable{
		headers: append([]string(nil), headers...),
		props:   DefaultTableProperties(),
	}
	for _, row := range rows {
		t.rows = append(t.rows, t.normalize(row))
	}
	return t
}

// WithProperties returns a copy of the table carrying props.
func (t *ExamplesTable) WithProperties(props *TableProperties) *ExamplesTable {
	c := NewExamplesTable(t.headers, t.rows)
	c.props = props
	return c
}

func (t *ExamplesTable) normalize(row map[string]string) map[string]string {
	out := make(map[string]string, len(t.headers))
	for _, h := range t.headers {
		out[h] = row[h]
	}
	return out
}

// ParseExamplesTable parses table text. transformers may be nil when no
// transformer property is used.
func ParseExamplesTable(text string, transformers *TableTransformers) (*ExamplesTable, error) {
	body, props, err := splitTableProperties(text)
	if err != nil {
		return nil, err
	}

	if name := props.Transformer(); name != "" {
		if transformers == nil {
			return nil, fmt.Errorf("table transformer %q is not registered", name)
		}
		body, err = transformers.Transform(name, body, props)
		if err != nil {
			return nil, err
		}
		props = props.without(propTransformer)
	}

	t := &ExamplesTable{props: props}
	for _, line := range tableLines(body, props) {
		if t.headers == nil {
			t.headers = splitCells(line, props.HeaderSeparator(), props.CommentSeparator(), props.Trim())
			continue
		}
		cells := splitCells(line, props.ValueSeparator(), props.CommentSeparator(), props.Trim())
		if len(cells) > len(t.headers) {
			return nil, fmt.Errorf("table row %q has %d values for %d columns", line, len(cells), len(t.headers))
		}
		row := make(map[string]string, len(t.headers))
		for i, h := range t.headers {
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func splitTableProperties(text string) (string, *TableProperties, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return text, DefaultTableProperties(), nil
	}
	end := strings.Index(trimmed, "}")
	if end < 0 {
		return "", nil, fmt.Errorf("unterminated table properties block")
	}
	props, err := ParseTableProperties(trimmed[1:end])
	if err != nil {
		return "", nil, err
	}
	return trimmed[end+1:], props, nil
}

// tableLines returns the non-empty, non-ignorable lines with comments removed.
func tableLines(body string, props *TableProperties) []string {
	var lines []string
	ignorable := props.IgnorableSeparator()
	comment := props.CommentSeparator()
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || (ignorable != "" && strings.HasPrefix(trimmed, ignorable)) {
			continue
		}
		if comment != "" {
			if idx := indexUnescaped(line, comment); idx >= 0 {
				line = line[:idx]
			}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimSpace(line))
	}
	return lines
}

// cellEscape placed before a separator or the comment separator makes it
// part of the cell value.
const cellEscape = `\`

func splitCells(line, sep, comment string, trim bool) []string {
	line = strings.TrimPrefix(line, sep)
	if strings.HasSuffix(line, sep) && !strings.HasSuffix(line, cellEscape+sep) {
		line = strings.TrimSuffix(line, sep)
	}
	var cells []string
	for {
		idx := indexUnescaped(line, sep)
		if idx < 0 {
			cells = append(cells, line)
			break
		}
		cells = append(cells, line[:idx])
		line = line[idx+len(sep):]
	}
	for i := range cells {
		cells[i] = unescapeCell(cells[i], sep, comment)
		if trim {
			cells[i] = strings.TrimSpace(cells[i])
		}
	}
	return cells
}

// indexUnescaped is strings.Index skipping matches preceded by cellEscape.
func indexUnescaped(s, token string) int {
	offset := 0
	for {
		idx := strings.Index(s[offset:], token)
		if idx < 0 {
			return -1
		}
		idx += offset
		if idx == 0 || !strings.HasSuffix(s[:idx], cellEscape) {
			return idx
		}
		offset = idx + len(token)
	}
}

func unescapeCell(cell, sep, comment string) string {
	cell = strings.ReplaceAll(cell, cellEscape+sep, sep)
	if comment != "" {
		cell = strings.ReplaceAll(cell, cellEscape+comment, comment)
	}
	return cell
}

func escapeCell(cell, sep, comment string) string {
	cell = strings.ReplaceAll(cell, sep, cellEscape+sep)
	if comment != "" && comment != sep {
		cell = strings.ReplaceAll(cell, comment, cellEscape+comment)
	}
	return cell
}

// Headers returns a copy of the column names.
func (t *ExamplesTable) Headers() []string {
	return append([]string(nil), t.headers...)
}

func (t *ExamplesTable) Properties() *TableProperties {
	return t.props
}

// RowCount returns the number of rows. A nil table has none.
func (t *ExamplesTable) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

func (t *ExamplesTable) IsEmpty() bool {
	return t.RowCount() == 0
}

// Row returns a copy of row i.
func (t *ExamplesTable) Row(i int) map[string]string {
	row := make(map[string]string, len(t.headers))
	for k, v := range t.rows[i] {
		row[k] = v
	}
	return row
}

// RowValues returns row i in column order.
func (t *ExamplesTable) RowValues(i int) []string {
	values := make([]string, len(t.headers))
	for j, h := range t.headers {
		values[j] = t.rows[i][h]
	}
	return values
}

// Rows returns a copy of every row.
func (t *ExamplesTable) Rows() []map[string]string {
	rows := make([]map[string]string, len(t.rows))
	for i := range t.rows {
		rows[i] = t.Row(i)
	}
	return rows
}

// RowMeta parses the Meta column of row i when metaByRow is set.
func (t *ExamplesTable) RowMeta(i int) Meta {
	if !t.props.MetaByRow() {
		return Meta{}
	}
	return ParseMeta(t.rows[i][MetaColumn])
}

// RowsAs decodes every row into out, which must point to a slice of structs
// or maps. Fields match columns by name or by their "table" tag.
func (t *ExamplesTable) RowsAs(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "table",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("creating table decoder: %w", err)
	}
	if err := decoder.Decode(t.Rows()); err != nil {
		return fmt.Errorf("decoding table rows: %w", err)
	}
	return nil
}

// AsString renders the table so that parsing the result yields an equal table.
// Separators and the comment separator inside values are escaped with a
// backslash. Values ending in a backslash, values with surrounding spaces
// under trim, and a first cell starting like the ignorable separator do not
// survive the round trip.
func (t *ExamplesTable) AsString() string {
	var sb strings.Builder
	if t.props != nil && !t.props.IsEmpty() {
		sb.WriteString("{")
		sb.WriteString(t.props.String())
		sb.WriteString("}\n")
	}
	headerSep, valueSep, comment := DefaultHeaderSeparator, DefaultValueSeparator, DefaultCommentSeparator
	if t.props != nil {
		headerSep, valueSep, comment = t.props.HeaderSeparator(), t.props.ValueSeparator(), t.props.CommentSeparator()
	}
	if len(t.headers) == 0 {
		return sb.String()
	}
	writeCells(&sb, t.headers, headerSep, comment)
	for i := range t.rows {
		writeCells(&sb, t.RowValues(i), valueSep, comment)
	}
	return sb.String()
}

func writeCells(sb *strings.Builder, cells []string, sep, comment string) {
	sb.WriteString(sep)
	for _, c := range cells {
		sb.WriteString(escapeCell(c, sep, comment))
		sb.WriteString(sep)
	}
	sb.WriteString("\n")
}

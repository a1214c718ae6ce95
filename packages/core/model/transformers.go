package model

import (
	"fmt"
	"strings"
	"sync"
)

const (
	TransformerFromLandscape = "FROM_LANDSCAPE"
	TransformerReplacing     = "REPLACING"
)

// TableTransformer rewrites table text before it is split into rows.
type TableTransformer func(text string, props *TableProperties) (string, error)

// TableTransformers is a registry of named table transformers, safe for concurrent use.
type TableTransformers struct {
	mu           sync.RWMutex
	transformers map[string]TableTransformer
}

// NewTableTransformers returns a registry holding the built-in transformers.
func NewTableTransformers() *TableTransformers {
	t := &TableTransformers{transformers: make(map[string]TableTransformer)}
	t.Register(TransformerFromLandscape, fromLandscape)
	t.Register(TransformerReplacing, replacing)
	return t
}

// Register adds or replaces the transformer called name.
func (t *TableTransformers) Register(name string, fn TableTransformer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transformers[name] = fn
}

// Transform applies the transformer called name to text.
func (t *TableTransformers) Transform(name, text string, props *TableProperties) (string, error) {
	t.mu.RLock()
	fn, ok := t.transformers[name]
	t.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("table transformer %q is not registered", name)
	}
	out, err := fn(text, props)
	if err != nil {
		return "", fmt.Errorf("table transformer %s: %w", name, err)
	}
	return out, nil
}

// fromLandscape turns "|header|v1|v2|" rows into a portrait table.
func fromLandscape(text string, props *TableProperties) (string, error) {
	var columns [][]string
	for _, line := range tableLines(text, props) {
		columns = append(columns, splitCells(line, props.HeaderSeparator(), props.CommentSeparator(), props.Trim()))
	}
	if len(columns) == 0 {
		return "", nil
	}

	width := 0
	for _, col := range columns {
		if len(col) > width {
			width = len(col)
		}
	}

	sep := props.ValueSeparator()
	var sb strings.Builder
	for i := 0; i < width; i++ {
		rowSep := sep
		if i == 0 {
			rowSep = props.HeaderSeparator()
		}
		sb.WriteString(rowSep)
		for _, col := range columns {
			if i < len(col) {
				sb.WriteString(escapeCell(col[i], rowSep, props.CommentSeparator()))
			}
			sb.WriteString(rowSep)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func replacing(text string, props *TableProperties) (string, error) {
	from := props.Property("replacing")
	if from == "" {
		return "", fmt.Errorf("property replacing is required")
	}
	return strings.ReplaceAll(text, from, props.Property("replacement")), nil
}

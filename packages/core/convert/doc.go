// Package convert turns step parameter text into typed values.
//
// Built-in converters cover numbers (locale aware), booleans, strings,
// durations, dates, encoding.TextUnmarshaler types, JSON documents
// (gjson.Result), examples tables, table rows decoded into structs, and
// delimited lists and sets whose elements are converted recursively.
//
// A Converters registry is immutable: With returns an extended copy whose
// new converters take precedence over everything already registered.
package convert

// Package logging wraps zerolog with the small API the runner and CLI use.
// Key-value pairs passed to the level methods become entry fields.
package logging

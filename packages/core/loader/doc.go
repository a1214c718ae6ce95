// Package loader reads story text from disk or memory.
package loader

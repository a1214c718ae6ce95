package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ResourceLoader returns the text of a story.
type ResourceLoader interface {
	Load(path string) (string, error)
}

// LoadError reports a story that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// FileLoader reads stories from disk. Relative paths are resolved against
// Root when it is set.
type FileLoader struct {
	Root string
}

func (l FileLoader) Load(path string) (string, error) {
	full := path
	if l.Root != "" && !filepath.IsAbs(path) {
		full = filepath.Join(l.Root, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", &LoadError{Path: path, Err: err}
	}
	return string(data), nil
}

// MapLoader serves stories from memory, keyed by path.
type MapLoader map[string]string

func (l MapLoader) Load(path string) (string, error) {
	text, ok := l[filepath.ToSlash(filepath.Clean(path))]
	if !ok {
		text, ok = l[path]
	}
	if !ok {
		return "", &LoadError{Path: path, Err: fs.ErrNotExist}
	}
	return text, nil
}

// LoadRelative loads path as given and, if it does not exist, relative to
// the directory of the story that references it.
func LoadRelative(l ResourceLoader, path, from string) (string, string, error) {
	text, err := l.Load(path)
	if err == nil || from == "" || filepath.IsAbs(path) || !errors.Is(err, fs.ErrNotExist) {
		return text, path, err
	}
	sibling := filepath.Join(filepath.Dir(from), path)
	if sibling == path {
		return "", path, err
	}
	text, siblingErr := l.Load(sibling)
	if siblingErr != nil {
		return "", path, err
	}
	return text, sibling, nil
}

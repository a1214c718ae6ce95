package loader

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "stories"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stories", "a.story"), []byte("Scenario: a"), 0644))

	text, err := FileLoader{Root: dir}.Load("stories/a.story")
	require.NoError(t, err)
	assert.Equal(t, "Scenario: a", text)

	text, err = FileLoader{}.Load(filepath.Join(dir, "stories", "a.story"))
	require.NoError(t, err)
	assert.Equal(t, "Scenario: a", text)

	_, err = FileLoader{Root: dir}.Load("missing.story")
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "missing.story", loadErr.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMapLoader(t *testing.T) {
	l := MapLoader{"stories/a.story": "Scenario: a"}

	text, err := l.Load("stories/./a.story")
	require.NoError(t, err)
	assert.Equal(t, "Scenario: a", text)

	_, err = l.Load("b.story")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadRelative(t *testing.T) {
	l := MapLoader{
		"stories/login.story":       "Scenario: login",
		"stories/shared/base.story": "Scenario: base",
	}

	text, path, err := LoadRelative(l, "login.story", "stories/checkout.story")
	require.NoError(t, err)
	assert.Equal(t, "Scenario: login", text)
	assert.Equal(t, filepath.Join("stories", "login.story"), path)

	text, path, err = LoadRelative(l, "stories/shared/base.story", "stories/checkout.story")
	require.NoError(t, err)
	assert.Equal(t, "Scenario: base", text)
	assert.Equal(t, "stories/shared/base.story", path)

	_, _, err = LoadRelative(l, "nope.story", "stories/checkout.story")
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "nope.story", loadErr.Path)
}

package env

import (
	"os"
	"strings"
)

// VariablePrefix marks process environment variables that seed story
// variables: STORYSPEC_VAR_user=alice defines {{user}}.
const VariablePrefix = "STORYSPEC_VAR_"

// LoadVariables collects the variables every story starts with: the
// prefixed process environment, then the given .env files, then extra.
// Later sources win.
func LoadVariables(prefix string, extra map[string]any, dotenvFiles ...string) (map[string]any, error) {
	fromFiles, err := LoadDotEnvFiles(dotenvFiles...)
	if err != nil {
		return nil, err
	}
	files := make(map[string]any, len(fromFiles))
	for k, v := range fromFiles {
		files[k] = v
	}
	return MergeVariables(LoadSystemEnv(prefix), files, extra), nil
}

// MergeVariables merges sources left to right, later values winning.
func MergeVariables(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// LoadSystemEnv returns the process environment variables starting with
// prefix, with the prefix removed. An empty prefix returns everything.
func LoadSystemEnv(prefix string) map[string]any {
	result := make(map[string]any)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if prefix == "" {
			result[key] = value
			continue
		}
		if name, found := strings.CutPrefix(key, prefix); found && name != "" {
			result[name] = value
		}
	}
	return result
}

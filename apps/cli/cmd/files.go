package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// StoryExtension marks the files collectFiles picks up from directories.
const StoryExtension = ".story"

// collectFiles expands directories into the story files below them. Files
// named explicitly are kept whatever their extension.
func collectFiles(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			add(arg)
			continue
		}

		var found []string
		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && isStoryFile(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}

	return files, nil
}

func isStoryFile(path string) bool {
	return filepath.Ext(path) == StoryExtension
}

// Package filter resolves positional arguments into the concrete file list:
// directories are walked, and optional include/exclude glob patterns narrow
// the selection (matched against the base name, as ransom extensions always
// sit there).
package filter

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Resolve expands args (files or directories) and applies include/exclude
// patterns. Returns the selected files and the total number scanned before
// filtering.
func Resolve(args, includes, excludes []string) (files []string, scanned int, err error) {
	candidates, err := collect(args)
	if err != nil {
		return nil, 0, err
	}

	scanned = len(candidates)

	for _, path := range candidates {
		ok, err := selects(filepath.Base(path), includes, excludes)
		if err != nil {
			return nil, scanned, err
		}

		if ok {
			files = append(files, path)
		}
	}

	return files, scanned, nil
}

// collect walks all positional args and returns every file path found,
// deduplicated, in walk order.
func collect(args []string) ([]string, error) {
	var paths []string

	seen := make(map[string]struct{})

	add := func(path string) {
		clean := filepath.Clean(path)
		if _, ok := seen[clean]; !ok {
			seen[clean] = struct{}{}
			paths = append(paths, clean)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", arg, err)
		}

		if !info.IsDir() {
			add(arg)

			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if !d.IsDir() {
				add(path)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %q: %w", arg, err)
		}
	}

	return paths, nil
}

// selects applies include patterns (any must match, when present) and then
// exclude patterns (none may match).
func selects(name string, includes, excludes []string) (bool, error) {
	if len(includes) > 0 {
		matched := false

		for _, pattern := range includes {
			ok, err := filepath.Match(pattern, name)
			if err != nil {
				return false, fmt.Errorf("include pattern %q: %w", pattern, err)
			}

			if ok {
				matched = true

				break
			}
		}

		if !matched {
			return false, nil
		}
	}

	for _, pattern := range excludes {
		ok, err := filepath.Match(pattern, name)
		if err != nil {
			return false, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}

		if ok {
			return false, nil
		}
	}

	return true, nil
}

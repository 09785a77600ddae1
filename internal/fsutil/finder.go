// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoMatch is returned by FindSingleByExtension when nothing matches.
var ErrNoMatch = errors.New("no matching file")

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths, sorted.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), extension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// FindSingleByExtension returns the first file (in lexical order) under rootPath
// with the given extension. Archives normally hold exactly one project file.
func FindSingleByExtension(rootPath string, extension string) (string, error) {
	files, err := FindFilesByExtension(rootPath, extension)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w: *%s under %s", ErrNoMatch, extension, rootPath)
	}
	return files[0], nil
}

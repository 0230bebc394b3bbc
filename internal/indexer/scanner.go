package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GuidelineFile is one markdown file found under the guidelines root.
// The directory layout carries the metadata: <source>/<category>/<topic>.md,
// e.g. "cdc/symptom/fever.md". Files directly under a source directory fall
// into the general category.
type GuidelineFile struct {
	RelPath  string
	AbsPath  string
	Source   string
	Category string
	Topic    string // filename without extension, lowercased
}

// ScanGuidelines walks the guidelines root and returns every markdown file
// with its path-derived metadata.
func ScanGuidelines(root string) ([]GuidelineFile, error) {
	var files []GuidelineFile

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		if info.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".md" {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		relPath = filepath.ToSlash(relPath)

		file := GuidelineFile{
			RelPath: relPath,
			AbsPath: path,
			Topic:   strings.ToLower(strings.TrimSuffix(filepath.Base(relPath), ".md")),
		}
		segments := strings.Split(relPath, "/")
		switch {
		case len(segments) >= 3:
			file.Source = segments[0]
			file.Category = segments[1]
		case len(segments) == 2:
			file.Source = segments[0]
			file.Category = "general"
		default:
			file.Source = "internal_kb"
			file.Category = "general"
		}

		files = append(files, file)
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("failed to scan guidelines root %s: %w", root, err)
	}

	return files, nil
}

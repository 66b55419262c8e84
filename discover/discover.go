// Package discover enumerates the JSONL input files of a training-data
// directory: the fixed category subdirectories plus any top-level book-*
// convention directories.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kgweave/kgweave/record"
)

// Source is one discovered input file. Rel is the provenance path relative
// to the base directory, used later for source-type inference.
type Source struct {
	Path string
	Rel  string
}

// Files returns all *.jsonl files under the fixed category directories,
// followed by files under top-level book-* directories. Missing category
// directories are skipped silently.
func Files(baseDir string) ([]Source, error) {
	var sources []Source

	for _, category := range record.Categories {
		dir := filepath.Join(baseDir, category)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		found, err := jsonlFiles(baseDir, dir)
		if err != nil {
			return nil, err
		}
		sources = append(sources, found...)
	}

	// Book directories placed at the top level (e.g. book-01-foundations)
	// are scanned as well.
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", baseDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "book-") {
			continue
		}
		found, err := jsonlFiles(baseDir, filepath.Join(baseDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		sources = append(sources, found...)
	}

	return sources, nil
}

func jsonlFiles(baseDir, dir string) ([]Source, error) {
	var sources []Source
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
			return nil
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		sources = append(sources, Source{Path: path, Rel: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return sources, nil
}

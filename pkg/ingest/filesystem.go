// Package ingest provides job.Enumerator implementations that walk a
// document source and emit job.Document values for the orchestrator to
// batch, embed, and upsert.
package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/5dlabs/docs-mcp/pkg/job"
)

// defaultExtensions is the set of file extensions treated as documentation
// when Filesystem.Extensions is unset.
var defaultExtensions = map[string]bool{
	".md":  true,
	".mdx": true,
	".txt": true,
	".rst": true,
}

// Filesystem enumerates documents from a local directory tree, the
// baseline source kind for a fresh deployment with no external repository
// or registry integration configured.
type Filesystem struct {
	// Extensions restricts which file extensions are ingested. Nil means
	// defaultExtensions.
	Extensions map[string]bool
	// MaxFileBytes skips files larger than this size. Zero means
	// DefaultMaxFileBytes.
	MaxFileBytes int64
}

// DefaultMaxFileBytes bounds a single ingested file, matching the
// transport's own body-size caution against accidentally ingesting binary
// or oversized assets.
const DefaultMaxFileBytes = 1 << 20

// Enumerate walks target (a directory path) depth-first, emitting one
// Document per matching file. Enumerate closes both channels once the walk
// completes or ctx is cancelled.
func (f Filesystem) Enumerate(ctx context.Context, target string) (<-chan job.Document, <-chan error) {
	docCh := make(chan job.Document)
	errCh := make(chan error, 1)

	extensions := f.Extensions
	if extensions == nil {
		extensions = defaultExtensions
	}
	maxBytes := f.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	go func() {
		defer close(docCh)
		defer close(errCh)

		walkErr := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if d.IsDir() {
				return nil
			}
			if !extensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.Size() > maxBytes {
				return nil
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return nil
			}

			rel, err := filepath.Rel(target, path)
			if err != nil {
				rel = path
			}
			rel = filepath.ToSlash(rel)

			doc := job.Document{
				Path:    rel,
				Title:   titleFromPath(rel),
				Content: string(content),
			}

			select {
			case docCh <- doc:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if walkErr != nil {
			errCh <- walkErr
		}
	}()

	return docCh, errCh
}

// titleFromPath derives a human-readable title from a relative file path:
// the base name without extension, with separators turned into spaces.
func titleFromPath(relPath string) string {
	base := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return base
}

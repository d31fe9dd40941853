// Package walker enumerates candidate files under a scan root.
package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-enry/go-enry/v2"

	"github.com/MyCarrier-DevOps/todo-find/internal/domain"
)

// hiddenPrefix marks entries that are never scanned.
const hiddenPrefix = "."

// Options configures a Walker.
type Options struct {
	// Excludes are doublestar globs matched against root-relative, slash-separated paths.
	// Matching directories are pruned.
	Excludes []string

	// SkipVendored prunes third-party and vendored paths as classified by go-enry.
	SkipVendored bool
}

// Walker implements domain.FileWalker over filepath.WalkDir.
type Walker struct {
	checker      domain.IgnoreChecker
	excludes     []string
	skipVendored bool
}

// New creates a Walker that consults checker for ignore status.
// Returns domain.ErrInvalidPattern if an exclude glob is malformed.
func New(checker domain.IgnoreChecker, opts Options) (*Walker, error) {
	for _, pattern := range opts.Excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: exclude %q", domain.ErrInvalidPattern, pattern)
		}
	}

	return &Walker{
		checker:      checker,
		excludes:     opts.Excludes,
		skipVendored: opts.SkipVendored,
	}, nil
}

// Walk yields every entry under root that survives the prune predicate, in lexical order.
// The root itself is not yielded. An error ends the sequence.
func (w *Walker) Walk(root string) iter.Seq2[domain.FileEntry, error] {
	return func(yield func(domain.FileEntry, error) bool) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("%w: %s: %w", domain.ErrFileIO, path, err)
			}
			if path == root {
				return nil
			}

			keep, err := w.keep(root, path, d)
			if err != nil {
				return err
			}
			if !keep {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			entry := domain.FileEntry{
				Path:  path,
				Name:  d.Name(),
				IsDir: d.IsDir(),
			}
			if !yield(entry, nil) {
				return filepath.SkipAll
			}
			return nil
		})

		if err != nil && !errors.Is(err, filepath.SkipAll) {
			yield(domain.FileEntry{}, err)
		}
	}
}

// keep is the prune predicate. Ignore status is only consulted for files, so an
// ignored directory is still descended and its files are filtered one by one.
func (w *Walker) keep(root, path string, d fs.DirEntry) (bool, error) {
	if strings.HasPrefix(d.Name(), hiddenPrefix) {
		return false, nil
	}

	rel := relativeSlashPath(root, path)
	if w.excluded(rel) {
		return false, nil
	}

	if w.skipVendored && vendored(rel, d.IsDir()) {
		return false, nil
	}

	if d.IsDir() {
		return true, nil
	}

	ignored, err := w.checker.IsIgnored(path)
	if err != nil {
		return false, err
	}
	return !ignored, nil
}

func (w *Walker) excluded(rel string) bool {
	for _, pattern := range w.excludes {
		if doublestar.MatchUnvalidated(pattern, rel) {
			return true
		}
	}
	return false
}

// vendored reports whether go-enry classifies rel as vendored code.
// Directory paths get a trailing slash, which is how the vendor rules name directories.
func vendored(rel string, isDir bool) bool {
	if isDir {
		rel += "/"
	}
	return enry.IsVendor(rel)
}

func relativeSlashPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

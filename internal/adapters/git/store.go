// Package git provides the version-control adapter for todo-find.
// Store implements domain.RevisionStore on top of a Backend, which is go-git in production.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MyCarrier-DevOps/todo-find/internal/domain"
)

// Logger defines the logging interface for the git adapter.
// This interface enables dependency injection and testability.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// Backend answers version-control queries for paths relative to WorkDir.
// Paths passed to a Backend are slash separated and never empty.
type Backend interface {
	// WorkDir returns the absolute working tree root.
	WorkDir() string

	// IsIgnored reports whether the path is excluded by ignore rules and untracked.
	IsIgnored(rel string) (bool, error)

	// Blame returns (nil, nil) when the backend has no history for the line.
	Blame(ctx context.Context, rel string, lineNumber int) (*domain.LineHistory, error)

	// Commit loads the metadata of one revision.
	// Returns an error wrapping domain.ErrUnknownRevision if the revision does not exist.
	Commit(ctx context.Context, id domain.RevisionID) (*domain.RevisionMetadata, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Store is the RevisionStore. A nil backend is the empty state, in which every
// query answers "no information".
type Store struct {
	backend Backend
	logger  Logger

	// mu guards revisions. Entries are added on first lookup and never evicted.
	mu        sync.Mutex
	revisions map[domain.RevisionID]*domain.RevisionMetadata
}

// Open discovers the repository enclosing root, searching parent directories.
// When root is not inside a repository, Open returns an empty store and no error.
func Open(ctx context.Context, root string, log Logger) (*Store, error) {
	backend, err := OpenGoGitBackend(root)
	if errors.Is(err, errNoRepository) {
		log.Debug(ctx, "no repository found; revision annotations disabled", map[string]interface{}{
			"root": root,
		})
		return NewEmptyStore(log), nil
	}
	if err != nil {
		return nil, err
	}

	log.Debug(ctx, "bound repository", map[string]interface{}{
		"root":     root,
		"work_dir": backend.WorkDir(),
	})

	return NewStoreWithBackend(backend, log), nil
}

// NewEmptyStore creates a store with no repository.
func NewEmptyStore(log Logger) *Store {
	return &Store{logger: log}
}

// NewStoreWithBackend creates a store bound to the given backend.
func NewStoreWithBackend(backend Backend, log Logger) *Store {
	return &Store{
		backend:   backend,
		logger:    log,
		revisions: make(map[domain.RevisionID]*domain.RevisionMetadata),
	}
}

// Bound reports whether a repository backs the store.
func (s *Store) Bound() bool {
	return s.backend != nil
}

// WorkDir returns the working tree root, or "" for an empty store.
func (s *Store) WorkDir() string {
	if s.backend == nil {
		return ""
	}
	return s.backend.WorkDir()
}

// IsIgnored reports whether path is excluded by the repository's ignore rules.
func (s *Store) IsIgnored(path string) (bool, error) {
	if s.backend == nil {
		return false, nil
	}

	rel, err := s.relativePath(path)
	if err != nil {
		return false, err
	}
	if rel == "" {
		return false, nil
	}

	ignored, err := s.backend.IsIgnored(rel)
	if err != nil {
		return false, fmt.Errorf("%w: ignore status of %s: %w", domain.ErrBackendQuery, rel, err)
	}
	return ignored, nil
}

// LineHistory resolves the origin and final revisions of a 1-based line.
// Every call runs a full blame of the file.
func (s *Store) LineHistory(ctx context.Context, path string, lineNumber int) (*domain.LineHistory, error) {
	if s.backend == nil {
		return nil, nil
	}

	rel, err := s.relativePath(path)
	if err != nil {
		return nil, err
	}
	if rel == "" {
		return nil, nil
	}

	history, err := s.backend.Blame(ctx, rel, lineNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: blame %s:%d: %w", domain.ErrBackendQuery, rel, lineNumber, err)
	}
	if history == nil {
		s.logger.Debug(ctx, "no history for line", map[string]interface{}{
			"path": rel,
			"line": lineNumber,
		})
	}
	return history, nil
}

// ResolveRevision returns the cached metadata for id, loading it on first use.
// The returned pointer is shared by every caller and stays valid for the store's lifetime.
func (s *Store) ResolveRevision(ctx context.Context, id domain.RevisionID) (*domain.RevisionMetadata, error) {
	if s.backend == nil {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if meta, ok := s.revisions[id]; ok {
		return meta, nil
	}

	meta, err := s.backend.Commit(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownRevision) {
			s.logger.Warn(ctx, "unknown revision", map[string]interface{}{
				"revision": string(id),
			})
			return nil, err
		}
		return nil, fmt.Errorf("%w: load revision %s: %w", domain.ErrBackendQuery, id, err)
	}

	s.revisions[id] = meta
	s.logger.Debug(ctx, "loaded revision", map[string]interface{}{
		"revision": string(id),
		"cached":   len(s.revisions),
	})
	return meta, nil
}

// cachedRevisions returns the number of revisions held in the cache.
func (s *Store) cachedRevisions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.revisions)
}

// Close releases the backend. The cache is dropped with the store.
func (s *Store) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// relativePath converts path to the slash-separated, working-tree-relative form.
// Relative paths are used as given. "" means the working tree root itself.
func (s *Store) relativePath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		rel := filepath.ToSlash(filepath.Clean(path))
		if rel == "." {
			return "", nil
		}
		return rel, nil
	}

	rel, err := filepath.Rel(s.backend.WorkDir(), path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", domain.ErrPathOutsideWorkTree, path)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// Package domain defines the core business entities and interfaces for todo-find.
// This package contains no external dependencies and represents the innermost layer
// of the CLEAN architecture.
package domain

import (
	"context"
	"errors"
	"io"
	"iter"
)

// Domain errors for scanning and revision lookups.
var (
	// ErrRootNotFound indicates the scan root does not exist or is not a directory.
	ErrRootNotFound = errors.New("scan root not found")

	// ErrBackendQuery indicates a version-control query failed for a reason other than missing data.
	ErrBackendQuery = errors.New("version control query failed")

	// ErrFileIO indicates a file or directory could not be read.
	ErrFileIO = errors.New("filesystem I/O failed")

	// ErrInvalidPattern indicates a match pattern could not be compiled.
	ErrInvalidPattern = errors.New("invalid match pattern")

	// ErrUnknownRevision indicates a revision identifier that does not exist in the repository.
	ErrUnknownRevision = errors.New("unknown revision")

	// ErrPathOutsideWorkTree indicates a path that is not inside the repository working tree.
	ErrPathOutsideWorkTree = errors.New("path is outside the working tree")

	// ErrInvalidSortKey indicates an unrecognized sort key.
	ErrInvalidSortKey = errors.New("invalid sort key")
)

// IgnoreChecker reports whether a path is excluded by version-control ignore rules.
type IgnoreChecker interface {
	// IsIgnored returns false when no repository is bound or the path is the working tree root.
	IsIgnored(path string) (bool, error)
}

// RevisionResolver resolves revision identifiers to cached metadata.
// It is the read-only view of the RevisionStore handed to presenters.
type RevisionResolver interface {
	// ResolveRevision returns (nil, nil) when no repository is bound.
	// The returned metadata is shared and lives as long as the store.
	ResolveRevision(ctx context.Context, id RevisionID) (*RevisionMetadata, error)
}

// RevisionStore is the single point of access to version-control facts.
// Every operation is defined whether or not a repository is bound.
type RevisionStore interface {
	IgnoreChecker
	RevisionResolver

	// LineHistory returns (nil, nil) when the line has no history.
	LineHistory(ctx context.Context, path string, lineNumber int) (*LineHistory, error)

	// Bound reports whether a repository backs the store.
	Bound() bool

	// Close releases any resources held by the store.
	Close() error
}

// FileWalker enumerates filtered filesystem entries under a root.
type FileWalker interface {
	// Walk yields entries lazily. A non-nil error is the last value yielded.
	Walk(root string) iter.Seq2[FileEntry, error]
}

// LineMatcher tests lines against a compiled pattern set.
type LineMatcher interface {
	Matches(line string) bool
}

// Annotator runs the walk, match and annotate pipeline.
type Annotator interface {
	Scan(ctx context.Context, input ScanInput) (*ScanOutput, error)
}

// Presenter sorts and renders scan results.
type Presenter interface {
	Present(ctx context.Context, matches []AnnotatedMatch, out io.Writer) error
}

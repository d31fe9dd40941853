// Package domain defines the core business entities and interfaces for todo-find.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ShortRevisionLength is the number of hex characters shown for an abbreviated revision.
const ShortRevisionLength = 7

// RevisionID is the full hex identifier of a commit.
type RevisionID string

// Short returns the abbreviated form of the identifier.
func (id RevisionID) Short() string {
	if len(id) <= ShortRevisionLength {
		return string(id)
	}
	return string(id[:ShortRevisionLength])
}

// String implements fmt.Stringer.
func (id RevisionID) String() string {
	return string(id)
}

// LineHistory is the result of a single per-line history lookup.
// Origin and Final always come from the same lookup.
type LineHistory struct {
	// Origin is the revision that first introduced the line's current text.
	Origin RevisionID

	// Final is the most recent revision that touched the line.
	Final RevisionID
}

// RevisionMetadata is a read-only summary of one revision.
// Instances are owned by the RevisionStore cache and must not be modified.
type RevisionMetadata struct {
	// ID is the full revision identifier.
	ID RevisionID

	// Summary is the first line of the commit message.
	Summary string

	// Author is the commit author's name.
	Author string

	// When is the commit time.
	When time.Time
}

// AnnotatedMatch is one line that matched the pattern set.
type AnnotatedMatch struct {
	// FilePath is the absolute path of the file.
	FilePath string

	// LineNumber is 1-based.
	LineNumber int

	// Content is the matched line with its leading indentation removed.
	Content string

	// History is nil when the line has no version-control information.
	History *LineHistory

	// ModifiedAt is the file's last filesystem modification time.
	ModifiedAt time.Time
}

// OriginRevision returns the revision that introduced the line, if known.
func (m AnnotatedMatch) OriginRevision() (RevisionID, bool) {
	if m.History == nil {
		return "", false
	}
	return m.History.Origin, true
}

// FinalRevision returns the revision that last touched the line, if known.
func (m AnnotatedMatch) FinalRevision() (RevisionID, bool) {
	if m.History == nil {
		return "", false
	}
	return m.History.Final, true
}

// StripIndent removes leading spaces and tabs, leaving the rest of the line untouched.
func StripIndent(line string) string {
	return strings.TrimLeft(line, " \t")
}

// FileEntry is a single filesystem entry produced by a FileWalker.
type FileEntry struct {
	// Path is the full path of the entry.
	Path string

	// Name is the base name of the entry.
	Name string

	// IsDir reports whether the entry is a directory.
	IsDir bool
}

// SortKey selects how results are ordered before rendering.
type SortKey int

// Supported sort keys.
const (
	SortNone SortKey = iota
	SortByOrigin
	SortByFinal
	SortByModified
)

// String returns the canonical flag value for the key.
func (k SortKey) String() string {
	switch k {
	case SortByOrigin:
		return "origin"
	case SortByFinal:
		return "final"
	case SortByModified:
		return "modified"
	default:
		return "none"
	}
}

// sortKeyAliases maps accepted flag values to sort keys.
// The two-letter forms are short aliases.
var sortKeyAliases = map[string]SortKey{
	"":         SortNone,
	"none":     SortNone,
	"unsorted": SortNone,
	"fc":       SortByOrigin,
	"origin":   SortByOrigin,
	"lc":       SortByFinal,
	"final":    SortByFinal,
	"lm":       SortByModified,
	"modified": SortByModified,
}

// ParseSortKey converts a flag value to a sort key.
func ParseSortKey(value string) (SortKey, error) {
	key, ok := sortKeyAliases[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return SortNone, fmt.Errorf("%w: %q (want none, origin, final or modified)", ErrInvalidSortKey, value)
	}
	return key, nil
}

// ScanInput contains the parameters for a scan.
type ScanInput struct {
	// Root is the absolute, canonical directory to scan.
	Root string
}

// ScanOutput contains the result of a scan.
type ScanOutput struct {
	// Matches are ordered by walk order, then by line number.
	Matches []AnnotatedMatch

	// FilesScanned counts the non-directory entries that were read.
	FilesScanned int

	// Versioned reports whether a repository was bound during the scan.
	Versioned bool
}

// Package usecases contains the application business logic.
// This package orchestrates domain entities and interfaces to fulfill use cases.
package usecases

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/MyCarrier-DevOps/todo-find/internal/domain"
)

const (
	// maxLineLength bounds a single line; a longer line ends the scan of its file.
	maxLineLength = 1024 * 1024
)

// Logger defines the logging interface required by the annotator.
// This abstracts the logger dependency to avoid coupling to a specific implementation.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// TreeAnnotator walks a tree, matches lines and annotates each match with its
// revision history and the file's modification time.
type TreeAnnotator struct {
	walker  domain.FileWalker
	matcher domain.LineMatcher
	store   domain.RevisionStore
	logger  Logger
}

// NewTreeAnnotator creates a new TreeAnnotator with the given dependencies.
// The store is used exclusively by this annotator for the duration of a scan.
func NewTreeAnnotator(
	walker domain.FileWalker,
	matcher domain.LineMatcher,
	store domain.RevisionStore,
	log Logger,
) *TreeAnnotator {
	return &TreeAnnotator{
		walker:  walker,
		matcher: matcher,
		store:   store,
		logger:  log,
	}
}

// Scan produces the annotated matches under input.Root, ordered by walk order
// and then by line number. Walk, open, stat and version-control failures abort
// the scan; undecodable content only truncates the affected file.
func (a *TreeAnnotator) Scan(ctx context.Context, input domain.ScanInput) (*domain.ScanOutput, error) {
	a.logger.Info(ctx, "starting scan", map[string]interface{}{
		"root":      input.Root,
		"versioned": a.store.Bound(),
	})

	output := &domain.ScanOutput{Versioned: a.store.Bound()}

	for entry, err := range a.walker.Walk(input.Root) {
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", input.Root, err)
		}
		if entry.IsDir {
			continue
		}

		matches, err := a.scanFile(ctx, entry.Path)
		if err != nil {
			return nil, err
		}
		output.FilesScanned++
		output.Matches = append(output.Matches, matches...)
	}

	a.logger.Info(ctx, "scan complete", map[string]interface{}{
		"root":          input.Root,
		"files_scanned": output.FilesScanned,
		"matches":       len(output.Matches),
	})

	return output, nil
}

// scanFile reads one file line by line. History is only resolved for matching lines.
func (a *TreeAnnotator) scanFile(ctx context.Context, path string) ([]domain.AnnotatedMatch, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", domain.ErrFileIO, path, err)
	}
	defer file.Close()

	var (
		matches    []domain.AnnotatedMatch
		modifiedAt time.Time
		statted    bool
		lineNumber int
	)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineLength)

	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()

		if !utf8.ValidString(line) {
			a.logger.Warn(ctx, "stopping at undecodable line", map[string]interface{}{
				"path": path,
				"line": lineNumber,
			})
			return matches, nil
		}

		if !a.matcher.Matches(line) {
			continue
		}

		history, err := a.store.LineHistory(ctx, path, lineNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve history of %s:%d: %w", path, lineNumber, err)
		}

		if !statted {
			info, err := os.Stat(path)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to stat %s: %w", domain.ErrFileIO, path, err)
			}
			modifiedAt = info.ModTime()
			statted = true
		}

		matches = append(matches, domain.AnnotatedMatch{
			FilePath:   path,
			LineNumber: lineNumber,
			Content:    domain.StripIndent(line),
			History:    history,
			ModifiedAt: modifiedAt,
		})
	}

	if err := scanner.Err(); err != nil {
		a.logger.Warn(ctx, "stopping at unreadable line", map[string]interface{}{
			"path":  path,
			"line":  lineNumber + 1,
			"error": err.Error(),
		})
	}

	return matches, nil
}

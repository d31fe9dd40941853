package git

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/utils/diff"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/MyCarrier-DevOps/todo-find/internal/domain"
)

// maxLineLength bounds a single working-tree line read back for comparison.
const maxLineLength = 1024 * 1024

// errNoRepository signals that no usable working tree encloses the path.
var errNoRepository = errors.New("no repository")

// GoGitBackend implements Backend using go-git/v5.
type GoGitBackend struct {
	repo     *git.Repository
	worktree *git.Worktree
	workDir  string

	ignoreOnce sync.Once
	ignore     gitignore.Matcher
	index      *index.Index
	ignoreErr  error
}

// OpenGoGitBackend opens the repository enclosing path, searching parent directories.
// Bare repositories have no working tree and are reported like a missing repository.
func OpenGoGitBackend(path string) (*GoGitBackend, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, errNoRepository
		}
		return nil, fmt.Errorf("%w: failed to open repository at %s: %w", domain.ErrBackendQuery, path, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return nil, errNoRepository
		}
		return nil, fmt.Errorf("%w: failed to open worktree: %w", domain.ErrBackendQuery, err)
	}

	return &GoGitBackend{
		repo:     repo,
		worktree: wt,
		workDir:  wt.Filesystem.Root(),
	}, nil
}

// WorkDir returns the absolute working tree root.
func (b *GoGitBackend) WorkDir() string {
	return b.workDir
}

// IsIgnored reports whether rel matches the ignore rules and is not tracked in the index.
// Tracked files are never ignored, matching git status.
func (b *GoGitBackend) IsIgnored(rel string) (bool, error) {
	b.ignoreOnce.Do(b.loadIgnoreState)
	if b.ignoreErr != nil {
		return false, b.ignoreErr
	}

	if !b.ignore.Match(strings.Split(rel, "/"), false) {
		return false, nil
	}

	if b.index == nil {
		return true, nil
	}
	_, err := b.index.Entry(rel)
	if errors.Is(err, index.ErrEntryNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read index entry: %w", err)
	}
	return false, nil
}

func (b *GoGitBackend) loadIgnoreState() {
	b.ignore, b.ignoreErr = loadIgnoreMatcher(b.worktree)
	if b.ignoreErr != nil {
		return
	}

	idx, err := b.repo.Storer.Index()
	if err != nil {
		b.ignoreErr = fmt.Errorf("failed to read index: %w", err)
		return
	}
	b.index = idx
}

// Blame resolves the history of a 1-based line of rel as committed at HEAD.
// Returns (nil, nil) for an unborn HEAD, a file missing from HEAD, a line past its end,
// or a line whose working-tree text differs from HEAD (not yet committed).
func (b *GoGitBackend) Blame(ctx context.Context, rel string, lineNumber int) (*domain.LineHistory, error) {
	head, err := b.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	commit, err := b.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object for HEAD: %w", err)
	}

	if _, err := commit.File(rel); err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up %s at HEAD: %w", rel, err)
	}

	result, err := git.Blame(commit, rel)
	if err != nil {
		return nil, fmt.Errorf("failed to blame %s: %w", rel, err)
	}

	if lineNumber < 1 || lineNumber > len(result.Lines) {
		return nil, nil
	}
	line := result.Lines[lineNumber-1]

	current, ok, err := b.workingLine(rel, lineNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	if !ok || trimCR(current) != trimCR(line.Text) {
		return nil, nil
	}

	origin, err := b.traceOrigin(ctx, commit, rel, lineNumber-1)
	if err != nil {
		return nil, err
	}
	if origin.IsZero() {
		origin = line.Hash
	}

	return &domain.LineHistory{
		Origin: domain.RevisionID(origin.String()),
		Final:  domain.RevisionID(line.Hash.String()),
	}, nil
}

// workingLine returns the 1-based line of rel as it is in the working tree.
func (b *GoGitBackend) workingLine(rel string, lineNumber int) (string, bool, error) {
	file, err := b.worktree.Filesystem.Open(rel)
	if err != nil {
		return "", false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineLength)
	for n := 1; scanner.Scan(); n++ {
		if n == lineNumber {
			return scanner.Text(), true, nil
		}
	}
	return "", false, scanner.Err()
}

// traceOrigin follows the line at index (0-based, in head's version of rel) back
// through the revisions that changed the file. It returns the oldest revision in which
// the line is still present at its tracked position, or the zero hash when none is.
func (b *GoGitBackend) traceOrigin(ctx context.Context, head *object.Commit, rel string, index int) (plumbing.Hash, error) {
	iter, err := b.repo.Log(&git.LogOptions{From: head.Hash, FileName: &rel})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to read history of %s: %w", rel, err)
	}
	defer iter.Close()

	newer, err := fileContents(head, rel)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	origin := plumbing.ZeroHash
	err = iter.ForEach(func(c *object.Commit) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		older, err := fileContents(c, rel)
		if errors.Is(err, object.ErrFileNotFound) {
			return storer.ErrStop
		}
		if err != nil {
			return err
		}

		previous, ok := previousLine(older, newer, index)
		if !ok {
			return storer.ErrStop
		}
		index = previous
		origin = c.Hash
		newer = older
		return nil
	})

	if err != nil && !errors.Is(err, storer.ErrStop) {
		return plumbing.ZeroHash, fmt.Errorf("failed to walk history of %s: %w", rel, err)
	}

	return origin, nil
}

func fileContents(c *object.Commit, rel string) (string, error) {
	file, err := c.File(rel)
	if err != nil {
		return "", err
	}
	return file.Contents()
}

// previousLine maps a 0-based line index in newer to its index in older.
// Returns false when the line lies in a hunk inserted between older and newer.
func previousLine(older, newer string, index int) (int, bool) {
	oldPos, newPos := 0, 0
	for _, d := range diff.Do(older, newer) {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if index < newPos+n {
				return oldPos + index - newPos, true
			}
			oldPos += n
			newPos += n
		case diffmatchpatch.DiffInsert:
			if index < newPos+n {
				return 0, false
			}
			newPos += n
		case diffmatchpatch.DiffDelete:
			oldPos += n
		}
	}
	return 0, false
}

// countLines counts the lines in a line-mode diff chunk, including an unterminated last line.
func countLines(text string) int {
	n := strings.Count(text, "\n")
	if text != "" && !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

func trimCR(line string) string {
	return strings.TrimSuffix(line, "\r")
}

// Commit loads the metadata of one revision.
func (b *GoGitBackend) Commit(_ context.Context, id domain.RevisionID) (*domain.RevisionMetadata, error) {
	if !plumbing.IsHash(string(id)) {
		return nil, fmt.Errorf("%w: %q is not a commit hash", domain.ErrUnknownRevision, id)
	}

	commit, err := b.repo.CommitObject(plumbing.NewHash(string(id)))
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownRevision, id)
		}
		return nil, fmt.Errorf("failed to get commit object %s: %w", id, err)
	}

	return &domain.RevisionMetadata{
		ID:      domain.RevisionID(commit.Hash.String()),
		Summary: summaryLine(commit.Message),
		Author:  commit.Author.Name,
		When:    commit.Committer.When,
	}, nil
}

// Close releases any resources held by the repository.
// For go-git, this is a no-op as the repository doesn't hold persistent resources.
func (b *GoGitBackend) Close() error {
	return nil
}

// summaryLine returns the first non-blank line of a commit message.
func summaryLine(message string) string {
	summary, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return strings.TrimSpace(summary)
}

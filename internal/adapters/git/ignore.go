package git

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// loadIgnoreMatcher collects every ignore source git consults for a working tree.
// Patterns are ordered from lowest to highest precedence, since the matcher lets later patterns win:
// system excludes, global core.excludesfile, worktree excludes, then .git/info/exclude and
// the .gitignore files, root first.
func loadIgnoreMatcher(wt *git.Worktree) (gitignore.Matcher, error) {
	rootFS := osfs.New("/")

	system, err := gitignore.LoadSystemPatterns(rootFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load system excludes: %w", err)
	}

	// The global excludes file lives under the home directory; without one, git skips it too.
	var global []gitignore.Pattern
	if _, err := os.UserHomeDir(); err == nil {
		global, err = gitignore.LoadGlobalPatterns(rootFS)
		if err != nil {
			return nil, fmt.Errorf("failed to load global excludes: %w", err)
		}
	}

	local, err := gitignore.ReadPatterns(wt.Filesystem, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore files: %w", err)
	}

	patterns := make([]gitignore.Pattern, 0, len(system)+len(global)+len(wt.Excludes)+len(local))
	patterns = append(patterns, system...)
	patterns = append(patterns, global...)
	patterns = append(patterns, wt.Excludes...)
	patterns = append(patterns, local...)

	return gitignore.NewMatcher(patterns), nil
}

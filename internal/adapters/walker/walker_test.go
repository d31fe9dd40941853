package walker

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/todo-find/internal/domain"
)

// mockChecker implements domain.IgnoreChecker for testing.
type mockChecker struct {
	ignored map[string]bool
	err     error
	calls   []string
}

func (m *mockChecker) IsIgnored(path string) (bool, error) {
	m.calls = append(m.calls, path)
	if m.err != nil {
		return false, m.err
	}
	return m.ignored[path], nil
}

// buildTree creates the given slash-separated files under a temp dir.
func buildTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, rel := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("content\n"), 0o644))
	}
	return root
}

// collect drains a walk and returns root-relative slash paths.
func collect(t *testing.T, w *Walker, root string) ([]string, []domain.FileEntry, error) {
	t.Helper()
	var rels []string
	var entries []domain.FileEntry
	for entry, err := range w.Walk(root) {
		if err != nil {
			return rels, entries, err
		}
		rel, relErr := filepath.Rel(root, entry.Path)
		require.NoError(t, relErr)
		rels = append(rels, filepath.ToSlash(rel))
		entries = append(entries, entry)
	}
	return rels, entries, nil
}

func TestWalker_SkipsHiddenEntries(t *testing.T) {
	root := buildTree(t,
		"main.go",
		".env",
		".git/config",
		".github/workflows/ci.yml",
		"pkg/.hidden.go",
		"pkg/util.go",
	)
	w, err := New(&mockChecker{}, Options{})
	require.NoError(t, err)

	rels, entries, err := collect(t, w, root)

	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "pkg", "pkg/util.go"}, rels)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name, "."), "hidden entry yielded: %s", entry.Path)
	}
}

func TestWalker_SkipsIgnoredFiles(t *testing.T) {
	root := buildTree(t,
		"main.go",
		"debug.log",
		"build/app.bin",
		"build/keep.go",
	)
	checker := &mockChecker{
		ignored: map[string]bool{
			filepath.Join(root, "debug.log"):        true,
			filepath.Join(root, "build", "app.bin"): true,
			// Directory ignore status is never consulted.
			filepath.Join(root, "build"): true,
		},
	}
	w, err := New(checker, Options{})
	require.NoError(t, err)

	rels, entries, err := collect(t, w, root)

	require.NoError(t, err)
	assert.Equal(t, []string{"build", "build/keep.go", "main.go"}, rels)
	assert.NotContains(t, checker.calls, filepath.Join(root, "build"))
	for _, entry := range entries {
		if !entry.IsDir {
			assert.False(t, checker.ignored[entry.Path], "ignored file yielded: %s", entry.Path)
		}
	}
}

func TestWalker_YieldsDirectoriesMarked(t *testing.T) {
	root := buildTree(t, "a/b/c.go")
	w, err := New(&mockChecker{}, Options{})
	require.NoError(t, err)

	rels, entries, err := collect(t, w, root)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a/b", "a/b/c.go"}, rels)
	assert.True(t, entries[0].IsDir)
	assert.True(t, entries[1].IsDir)
	assert.False(t, entries[2].IsDir)
	assert.Equal(t, "c.go", entries[2].Name)
}

func TestWalker_Excludes(t *testing.T) {
	root := buildTree(t,
		"main.go",
		"vendor/lib/lib.go",
		"gen/api.pb.go",
		"gen/doc.go",
	)
	checker := &mockChecker{}
	w, err := New(checker, Options{Excludes: []string{"vendor", "**/*.pb.go"}})
	require.NoError(t, err)

	rels, _, err := collect(t, w, root)

	require.NoError(t, err)
	assert.Equal(t, []string{"gen", "gen/doc.go", "main.go"}, rels)
	assert.NotContains(t, checker.calls, filepath.Join(root, "vendor", "lib", "lib.go"))
}

func TestWalker_SkipVendored(t *testing.T) {
	root := buildTree(t,
		"main.go",
		"vendor/lib/lib.go",
		"node_modules/pkg/index.js",
		"src/app.go",
	)

	tests := []struct {
		name         string
		skipVendored bool
		want         []string
	}{
		{
			name: "off by default",
			want: []string{
				"main.go",
				"node_modules", "node_modules/pkg", "node_modules/pkg/index.js",
				"src", "src/app.go",
				"vendor", "vendor/lib", "vendor/lib/lib.go",
			},
		},
		{
			name:         "prunes vendored directories",
			skipVendored: true,
			want:         []string{"main.go", "src", "src/app.go"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New(&mockChecker{}, Options{SkipVendored: tt.skipVendored})
			require.NoError(t, err)

			rels, _, err := collect(t, w, root)

			require.NoError(t, err)
			assert.Equal(t, tt.want, rels)
		})
	}
}

func TestNew_InvalidExclude(t *testing.T) {
	w, err := New(&mockChecker{}, Options{Excludes: []string{"src/[a-"}})

	require.Error(t, err)
	assert.Nil(t, w)
	assert.ErrorIs(t, err, domain.ErrInvalidPattern)
}

func TestWalker_IgnoreErrorAbortsWalk(t *testing.T) {
	root := buildTree(t, "a.go", "b.go")
	queryErr := errors.New("index corrupt")
	w, err := New(&mockChecker{err: queryErr}, Options{})
	require.NoError(t, err)

	rels, _, err := collect(t, w, root)

	require.Error(t, err)
	assert.ErrorIs(t, err, queryErr)
	assert.Empty(t, rels)
}

func TestWalker_MissingRoot(t *testing.T) {
	w, err := New(&mockChecker{}, Options{})
	require.NoError(t, err)

	_, _, err = collect(t, w, filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFileIO)
}

func TestWalker_StopsWhenConsumerBreaks(t *testing.T) {
	root := buildTree(t, "a.go", "b.go", "c.go")
	w, err := New(&mockChecker{}, Options{})
	require.NoError(t, err)

	var seen []string
	for entry, err := range w.Walk(root) {
		require.NoError(t, err)
		seen = append(seen, entry.Name)
		break
	}

	assert.Equal(t, []string{"a.go"}, seen)
}

package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/todo-find/internal/domain"
)

// testLogger is a minimal logger for testing that doesn't output anything.
type testLogger struct{}

func (l *testLogger) Debug(_ context.Context, _ string, _ map[string]interface{}) {}
func (l *testLogger) Warn(_ context.Context, _ string, _ map[string]interface{})  {}

// setupTestRepo creates a temporary git repository for testing.
// The returned path has symlinks resolved so it compares equal to the go-git work dir.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	tmpDir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	runGit(t, tmpDir, "init")
	runGit(t, tmpDir, "config", "user.email", "test@example.com")
	runGit(t, tmpDir, "config", "user.name", "Test User")
	runGit(t, tmpDir, "config", "commit.gpgsign", "false")

	return tmpDir
}

// runGit executes a git command in the given directory.
func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\nOutput: %s", args, err, output)
	}
}

// getGitOutput executes a git command and returns its trimmed output.
func getGitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	require.NoError(t, err)
	return strings.TrimSpace(string(output))
}

// writeFile writes content to a path relative to dir, creating parent directories.
func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// commitAll stages everything and commits, returning the new HEAD SHA.
func commitAll(t *testing.T, dir, message string) string {
	t.Helper()
	runGit(t, dir, "add", "-A")
	runGit(t, dir, "commit", "-m", message)
	return getGitOutput(t, dir, "rev-parse", "HEAD")
}

func TestOpen_NotARepository(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := Open(context.Background(), tmpDir, &testLogger{})

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.False(t, store.Bound())
}

func TestOpen_DiscoversEnclosingRepository(t *testing.T) {
	repoPath := setupTestRepo(t)
	writeFile(t, repoPath, "src/pkg/a.go", "package pkg\n")
	commitAll(t, repoPath, "Initial commit")

	store, err := Open(context.Background(), filepath.Join(repoPath, "src", "pkg"), &testLogger{})

	require.NoError(t, err)
	defer store.Close()
	assert.True(t, store.Bound())
	assert.Equal(t, repoPath, store.WorkDir())
}

func TestOpen_BareRepositoryIsEmptyStore(t *testing.T) {
	tmpDir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	runGit(t, tmpDir, "init", "--bare")

	store, err := Open(context.Background(), tmpDir, &testLogger{})

	require.NoError(t, err)
	assert.False(t, store.Bound())
}

func TestStore_LineHistory_SingleCommit(t *testing.T) {
	repoPath := setupTestRepo(t)
	file := writeFile(t, repoPath, "main.go", "package main\n\n// TODO: fix me\nfunc main() {}\n")
	r1 := commitAll(t, repoPath, "Initial commit")

	store, err := Open(context.Background(), repoPath, &testLogger{})
	require.NoError(t, err)
	defer store.Close()

	history, err := store.LineHistory(context.Background(), file, 3)

	require.NoError(t, err)
	require.NotNil(t, history)
	assert.Equal(t, domain.RevisionID(r1), history.Origin)
	assert.Equal(t, domain.RevisionID(r1), history.Final)
}

func TestStore_LineHistory_UnchangedLineKeepsFirstCommit(t *testing.T) {
	repoPath := setupTestRepo(t)
	file := writeFile(t, repoPath, "main.go", "// TODO: first\nvar a = 1\n")
	r1 := commitAll(t, repoPath, "Add a")
	writeFile(t, repoPath, "main.go", "// TODO: first\nvar a = 2\n")
	r2 := commitAll(t, repoPath, "Change a")

	store, err := Open(context.Background(), repoPath, &testLogger{})
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	history, err := store.LineHistory(ctx, file, 1)
	require.NoError(t, err)
	require.NotNil(t, history)
	assert.Equal(t, domain.RevisionID(r1), history.Origin)
	assert.Equal(t, domain.RevisionID(r1), history.Final)

	history, err = store.LineHistory(ctx, file, 2)
	require.NoError(t, err)
	require.NotNil(t, history)
	assert.Equal(t, domain.RevisionID(r2), history.Final)
	assert.Equal(t, domain.RevisionID(r2), history.Origin)
}

func TestStore_LineHistory_MovedLineStartsAtMove(t *testing.T) {
	repoPath := setupTestRepo(t)
	file := writeFile(t, repoPath, "notes.go", "// TODO: move me\nline one\nline two\nline three\n")
	commitAll(t, repoPath, "Add notes")
	writeFile(t, repoPath, "notes.go", "line one\nline two\nline three\n// TODO: move me\n")
	r2 := commitAll(t, repoPath, "Move todo to the end")

	store, err := Open(context.Background(), repoPath, &testLogger{})
	require.NoError(t, err)
	defer store.Close()

	history, err := store.LineHistory(context.Background(), file, 4)

	require.NoError(t, err)
	require.NotNil(t, history)
	assert.Equal(t, domain.RevisionID(r2), history.Final)
	assert.Equal(t, domain.RevisionID(r2), history.Origin)
}

func TestStore_LineHistory_RepeatedLineKeepsOwnOrigin(t *testing.T) {
	repoPath := setupTestRepo(t)
	file := writeFile(t, repoPath, "main.go", "// TODO\nvar a = 1\n")
	r1 := commitAll(t, repoPath, "Add first todo")
	writeFile(t, repoPath, "main.go", "// TODO\nvar a = 1\n// TODO\n")
	r2 := commitAll(t, repoPath, "Add second todo")
	writeFile(t, repoPath, "main.go", "// TODO\nvar a = 2\n// TODO\n")
	r3 := commitAll(t, repoPath, "Change a")

	store, err := Open(context.Background(), repoPath, &testLogger{})
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	tests := []struct {
		name       string
		line       int
		wantOrigin string
		wantFinal  string
	}{
		{name: "first todo", line: 1, wantOrigin: r1, wantFinal: r1},
		{name: "changed line", line: 2, wantOrigin: r3, wantFinal: r3},
		{name: "second identical todo", line: 3, wantOrigin: r2, wantFinal: r2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, err := store.LineHistory(ctx, file, tt.line)
			require.NoError(t, err)
			require.NotNil(t, history)
			assert.Equal(t, domain.RevisionID(tt.wantOrigin), history.Origin)
			assert.Equal(t, domain.RevisionID(tt.wantFinal), history.Final)
		})
	}
}

func TestStore_LineHistory_UncommittedLines(t *testing.T) {
	repoPath := setupTestRepo(t)
	file := writeFile(t, repoPath, "main.go", "package main\n\n// TODO: committed\nfunc main() {}\n")
	r1 := commitAll(t, repoPath, "Initial commit")
	writeFile(t, repoPath, "main.go",
		"// TODO: brand new, uncommitted\npackage main\n\n// TODO: committed, edited\nfunc main() {}\n")

	store, err := Open(context.Background(), repoPath, &testLogger{})
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	for _, line := range []int{1, 4} {
		history, err := store.LineHistory(ctx, file, line)
		require.NoError(t, err)
		assert.Nil(t, history, "line %d is not committed", line)
	}

	writeFile(t, repoPath, "main.go", "package main\n\n// TODO: committed\nfunc main() {}\n")
	history, err := store.LineHistory(ctx, file, 3)
	require.NoError(t, err)
	require.NotNil(t, history)
	assert.Equal(t, domain.RevisionID(r1), history.Final)
}

func TestStore_IsIgnored_WithoutHome(t *testing.T) {
	repoPath := setupTestRepo(t)
	writeFile(t, repoPath, ".gitignore", "*.log\n")
	writeFile(t, repoPath, "main.go", "package main\n")
	commitAll(t, repoPath, "Initial commit")

	t.Setenv("HOME", "")
	require.NoError(t, os.Unsetenv("HOME"))

	store, err := Open(context.Background(), repoPath, &testLogger{})
	require.NoError(t, err)
	defer store.Close()

	ignored, err := store.IsIgnored(filepath.Join(repoPath, "debug.log"))
	require.NoError(t, err)
	assert.True(t, ignored)

	ignored, err = store.IsIgnored(filepath.Join(repoPath, "main.go"))
	require.NoError(t, err)
	assert.False(t, ignored)
}

func TestStore_LineHistory_NoInformation(t *testing.T) {
	repoPath := setupTestRepo(t)
	tracked := writeFile(t, repoPath, "tracked.go", "// TODO: one line\n")
	commitAll(t, repoPath, "Initial commit")
	untracked := writeFile(t, repoPath, "untracked.go", "// TODO: new\n")

	store, err := Open(context.Background(), repoPath, &testLogger{})
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	tests := []struct {
		name string
		path string
		line int
	}{
		{name: "untracked file", path: untracked, line: 1},
		{name: "line past committed content", path: tracked, line: 5},
		{name: "work dir root", path: repoPath, line: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, err := store.LineHistory(ctx, tt.path, tt.line)
			require.NoError(t, err)
			assert.Nil(t, history)
		})
	}
}

func TestStore_LineHistory_UnbornHead(t *testing.T) {
	repoPath := setupTestRepo(t)
	file := writeFile(t, repoPath, "a.go", "// TODO\n")

	store, err := Open(context.Background(), repoPath, &testLogger{})
	require.NoError(t, err)
	defer store.Close()
	assert.True(t, store.Bound())

	history, err := store.LineHistory(context.Background(), file, 1)

	require.NoError(t, err)
	assert.Nil(t, history)
}

func TestStore_IsIgnored(t *testing.T) {
	repoPath := setupTestRepo(t)
	writeFile(t, repoPath, ".gitignore", "*.log\nbuild/\n")
	writeFile(t, repoPath, "sub/.gitignore", "local.txt\n")
	writeFile(t, repoPath, "kept.log", "tracked despite the rule\n")
	runGit(t, repoPath, "add", "-f", "kept.log")
	writeFile(t, repoPath, "main.go", "package main\n")
	commitAll(t, repoPath, "Initial commit")
	writeFile(t, repoPath, ".git/info/exclude", "# local excludes\nscratch.go\n")

	store, err := Open(context.Background(), repoPath, &testLogger{})
	require.NoError(t, err)
	defer store.Close()

	tests := []struct {
		name string
		rel  string
		want bool
	}{
		{name: "plain tracked file", rel: "main.go", want: false},
		{name: "glob rule", rel: "debug.log", want: true},
		{name: "directory rule applies to nested files", rel: "build/out/app.bin", want: true},
		{name: "nested gitignore", rel: "sub/local.txt", want: true},
		{name: "nested gitignore scoped to its directory", rel: "local.txt", want: false},
		{name: "info exclude", rel: "scratch.go", want: true},
		{name: "tracked file matching a rule", rel: "kept.log", want: false},
		{name: "untracked unmatched file", rel: "new.go", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ignored, err := store.IsIgnored(filepath.Join(repoPath, filepath.FromSlash(tt.rel)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ignored)
		})
	}
}

func TestStore_ResolveRevision(t *testing.T) {
	repoPath := setupTestRepo(t)
	writeFile(t, repoPath, "a.go", "package a\n")
	r1 := commitAll(t, repoPath, "Add package a\n\nWith a body.")

	store, err := Open(context.Background(), repoPath, &testLogger{})
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	meta, err := store.ResolveRevision(ctx, domain.RevisionID(r1))
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, domain.RevisionID(r1), meta.ID)
	assert.Equal(t, "Add package a", meta.Summary)
	assert.Equal(t, "Test User", meta.Author)
	assert.False(t, meta.When.IsZero())

	again, err := store.ResolveRevision(ctx, domain.RevisionID(r1))
	require.NoError(t, err)
	assert.Same(t, meta, again)

	_, err = store.ResolveRevision(ctx, "0000000000000000000000000000000000000001")
	assert.ErrorIs(t, err, domain.ErrUnknownRevision)

	_, err = store.ResolveRevision(ctx, "not-a-hash")
	assert.ErrorIs(t, err, domain.ErrUnknownRevision)
}

func TestStore_LineHistory_ContextCancellation(t *testing.T) {
	repoPath := setupTestRepo(t)
	file := writeFile(t, repoPath, "a.go", "// TODO: x\nl1\nl2\nl3\n")
	commitAll(t, repoPath, "Add")
	writeFile(t, repoPath, "a.go", "l1\nl2\nl3\n// TODO: x\n")
	commitAll(t, repoPath, "Move")

	store, err := Open(context.Background(), repoPath, &testLogger{})
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	history, err := store.LineHistory(ctx, file, 4)

	require.Error(t, err)
	assert.Nil(t, history)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, domain.ErrBackendQuery)
}

// Package cmd provides the CLI commands for todo-find.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/todo-find/internal/domain"
)

// Logger defines the logging interface used by the command.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Dependencies holds all injectable dependencies for the command.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance. It is called after the log level is applied.
	LoggerFactory func() Logger

	// ConfigLoader loads application configuration.
	ConfigLoader func() (*AppConfig, error)

	// MatcherFactory compiles the match patterns; nil or empty selects the built-in set.
	MatcherFactory func(patterns []string) (domain.LineMatcher, error)

	// RevisionStoreFactory opens the revision store for the scan root.
	RevisionStoreFactory func(ctx context.Context, root string, log Logger) (domain.RevisionStore, error)

	// WalkerFactory creates a FileWalker that consults the given ignore checker.
	WalkerFactory func(checker domain.IgnoreChecker, excludes []string, skipVendored bool) (domain.FileWalker, error)

	// AnnotatorFactory creates an Annotator with the given dependencies.
	AnnotatorFactory func(
		walker domain.FileWalker,
		matcher domain.LineMatcher,
		store domain.RevisionStore,
		log Logger,
	) domain.Annotator

	// PresenterFactory creates a Presenter that orders and renders matches.
	PresenterFactory func(resolver domain.RevisionResolver, key domain.SortKey, reverse bool) domain.Presenter

	// Stdout is the writer for the report.
	Stdout io.Writer

	// Stderr is the writer for standard error (for warnings/errors).
	Stderr io.Writer
}

// AppConfig holds application configuration loaded by ConfigLoader.
type AppConfig struct {
	// Patterns are match patterns from configuration; --pattern overrides them.
	Patterns []string

	// Excludes are glob patterns from configuration; --exclude adds to them.
	Excludes []string

	// Sort is the default sort key; --sort overrides it.
	Sort string

	// SkipVendored prunes vendored paths; --skip-vendored turns it on.
	SkipVendored bool

	// LogLevel is the log level setting.
	LogLevel string

	// LogAppName is the application name for logging.
	LogAppName string
}

// Command-line flags.
var (
	sortFlag     string
	reverse      bool
	patterns     []string
	excludes     []string
	skipVendored bool
	verbose      bool
)

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for todo-find.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "todo-find [path]",
		Short: "List TODO comments annotated with their commit history",
		Long: `todo-find walks a directory tree and reports every line matching a TODO
pattern. When the tree is inside a Git repository, each match is annotated with
the commit that introduced the line and the commit that last touched it.

Hidden files and directories are skipped, as are files ignored by Git that are
not tracked. Results can be ordered by either commit or by file modification time.

Examples:
  # Scan the current directory
  todo-find

  # Scan a specific directory, oldest TODOs first
  todo-find --sort origin /path/to/repo

  # Most recently modified files first
  todo-find -s modified -r

  # Use custom patterns and skip generated protobuf code
  todo-find -p 'FIXME' -p '(?i)//\s*todo' -e '**/*.pb.go'

  # Leave out vendored dependencies
  todo-find --skip-vendored`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args, deps)
		},
	}

	// Define flags
	rootCmd.Flags().StringVarP(&sortFlag, "sort", "s", "",
		"Sort key: none, origin (fc), final (lc) or modified (lm)")
	rootCmd.Flags().BoolVarP(&reverse, "reverse", "r", false,
		"Reverse the output order")
	rootCmd.Flags().StringArrayVarP(&patterns, "pattern", "p", nil,
		"Match pattern (regular expression); repeatable")
	rootCmd.Flags().StringArrayVarP(&excludes, "exclude", "e", nil,
		"Glob of paths to skip, relative to the scan root; repeatable")
	rootCmd.Flags().BoolVar(&skipVendored, "skip-vendored", false,
		"Skip vendored and third-party paths such as vendor/ and node_modules/")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose/debug logging")

	return rootCmd
}

// runScan executes the scan with injected dependencies.
func runScan(cmd *cobra.Command, args []string, deps *Dependencies) error {
	if deps == nil {
		return errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rootArg := "."
	if len(args) > 0 {
		rootArg = args[0]
	}

	stdout := deps.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := deps.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	cfg, err := deps.ConfigLoader()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set log level before the logger is created (best-effort)
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if level != "" {
		if err := os.Setenv("LOG_LEVEL", level); err != nil {
			writeWarningf(stderr, "warning: could not set log level: %v\n", err)
		}
	}

	log := deps.LoggerFactory()

	sortValue := cfg.Sort
	if cmd.Flags().Changed("sort") {
		sortValue = sortFlag
	}
	key, err := domain.ParseSortKey(sortValue)
	if err != nil {
		log.Error(ctx, "invalid sort key", err, map[string]interface{}{"sort": sortValue})
		return err
	}

	root, err := resolveRoot(rootArg)
	if err != nil {
		log.Error(ctx, "failed to resolve scan root", err, map[string]interface{}{"path": rootArg})
		if errors.Is(err, domain.ErrRootNotFound) {
			return fmt.Errorf("not a directory: %s", rootArg)
		}
		return err
	}

	activePatterns := cfg.Patterns
	if len(patterns) > 0 {
		activePatterns = patterns
	}
	activeExcludes := append(append([]string(nil), cfg.Excludes...), excludes...)
	activeSkipVendored := cfg.SkipVendored || skipVendored

	log.Info(ctx, "starting todo-find", map[string]interface{}{
		"root":          root,
		"sort":          key.String(),
		"reverse":       reverse,
		"patterns":      len(activePatterns),
		"excludes":      activeExcludes,
		"skip_vendored": activeSkipVendored,
		"verbose":       verbose,
	})

	matcher, err := deps.MatcherFactory(activePatterns)
	if err != nil {
		log.Error(ctx, "failed to compile patterns", err, nil)
		return err
	}

	store, err := deps.RevisionStoreFactory(ctx, root, log)
	if err != nil {
		log.Error(ctx, "failed to open revision store", err, map[string]interface{}{"root": root})
		return fmt.Errorf("version control error: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Warn(ctx, "failed to close revision store", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	walker, err := deps.WalkerFactory(store, activeExcludes, activeSkipVendored)
	if err != nil {
		log.Error(ctx, "failed to create walker", err, nil)
		return err
	}

	annotator := deps.AnnotatorFactory(walker, matcher, store, log)
	result, err := annotator.Scan(ctx, domain.ScanInput{Root: root})
	if err != nil {
		log.Error(ctx, "scan failed", err, map[string]interface{}{"root": root})
		if errors.Is(err, domain.ErrBackendQuery) {
			return fmt.Errorf("version control error: %w", err)
		}
		return err
	}

	presenter := deps.PresenterFactory(store, key, reverse)
	if err := presenter.Present(ctx, result.Matches, stdout); err != nil {
		log.Error(ctx, "failed to write output", err, nil)
		return fmt.Errorf("output error: %w", err)
	}

	log.Info(ctx, "scan complete", map[string]interface{}{
		"files":     result.FilesScanned,
		"matches":   len(result.Matches),
		"versioned": result.Versioned,
	})

	return nil
}

// resolveRoot returns the absolute, symlink-free form of path.
// Returns ErrRootNotFound if path does not exist or is not a directory.
func resolveRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrRootNotFound, path)
		}
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", domain.ErrRootNotFound, path)
	}
	return resolved, nil
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// writeWarningf writes a warning message to the given writer.
// This is a best-effort operation; errors are intentionally ignored
// because there is no recovery action if stderr writes fail.
func writeWarningf(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err != nil {
		return
	}
}

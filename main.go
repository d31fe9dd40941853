// Package main is the entry point for the todo-find CLI application.
// todo-find lists TODO comments in a directory tree, annotated with the
// commits that introduced and last touched each line.
package main

import (
	"context"
	"os"
	"sync"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/logger"

	"github.com/MyCarrier-DevOps/todo-find/cmd"
	"github.com/MyCarrier-DevOps/todo-find/internal/adapters/git"
	logadapter "github.com/MyCarrier-DevOps/todo-find/internal/adapters/logger"
	"github.com/MyCarrier-DevOps/todo-find/internal/adapters/matcher"
	"github.com/MyCarrier-DevOps/todo-find/internal/adapters/output"
	"github.com/MyCarrier-DevOps/todo-find/internal/adapters/walker"
	"github.com/MyCarrier-DevOps/todo-find/internal/domain"
	"github.com/MyCarrier-DevOps/todo-find/internal/infrastructure/config"
	"github.com/MyCarrier-DevOps/todo-find/internal/usecases"
)

func main() {
	cmd.SetDefaultDependencies(newDependencies())
	cmd.Execute()
}

// newDependencies wires the production adapters.
// The zap logger is built on first use so that it observes the log level chosen by the command.
func newDependencies() *cmd.Dependencies {
	var (
		once    sync.Once
		adapter *logadapter.ZapAdapter
	)
	sharedLogger := func() *logadapter.ZapAdapter {
		once.Do(func() {
			adapter = logadapter.NewZapAdapter(logger.NewZapLoggerFromConfig())
		})
		return adapter
	}

	return &cmd.Dependencies{
		LoggerFactory: func() cmd.Logger {
			return sharedLogger()
		},

		ConfigLoader: func() (*cmd.AppConfig, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			return &cmd.AppConfig{
				Patterns:     cfg.Patterns,
				Excludes:     cfg.Excludes,
				Sort:         cfg.Sort,
				SkipVendored: cfg.SkipVendored,
				LogLevel:     cfg.LogLevel,
				LogAppName:   cfg.LogAppName,
			}, nil
		},

		MatcherFactory: func(patterns []string) (domain.LineMatcher, error) {
			return matcher.Compile(patterns)
		},

		RevisionStoreFactory: func(ctx context.Context, root string, log cmd.Logger) (domain.RevisionStore, error) {
			return git.Open(ctx, root, log)
		},

		WalkerFactory: func(checker domain.IgnoreChecker, excludes []string, skipVendored bool) (domain.FileWalker, error) {
			return walker.New(checker, walker.Options{Excludes: excludes, SkipVendored: skipVendored})
		},

		AnnotatorFactory: func(
			w domain.FileWalker,
			m domain.LineMatcher,
			store domain.RevisionStore,
			_ cmd.Logger,
		) domain.Annotator {
			return usecases.NewTreeAnnotator(w, m, store, sharedLogger().With(map[string]any{
				"component": "annotator",
			}))
		},

		PresenterFactory: func(resolver domain.RevisionResolver, key domain.SortKey, reverse bool) domain.Presenter {
			return output.NewWriter(resolver, output.Options{SortKey: key, Reverse: reverse})
		},

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

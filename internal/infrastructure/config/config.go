// Package config provides configuration loading for the todo-find application.
// It reads log settings, match patterns, exclude globs and the default sort key
// from environment variables, with match patterns optionally kept in a file.
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	// EnvLogLevel is the log level (debug, info, error).
	EnvLogLevel = "LOG_LEVEL"

	// EnvLogAppName is the application name for log context.
	EnvLogAppName = "LOG_APP_NAME"

	// EnvPatternFile is the path to a file of match patterns, one per line.
	EnvPatternFile = "TODO_FIND_PATTERN_FILE"

	// EnvExclude is a path-list-separated set of doublestar globs to skip.
	EnvExclude = "TODO_FIND_EXCLUDE"

	// EnvSort is the default sort key.
	EnvSort = "TODO_FIND_SORT"

	// EnvSkipVendored prunes vendored paths when set to a true value.
	EnvSkipVendored = "TODO_FIND_SKIP_VENDORED"
)

// Default values.
const (
	// DefaultLogLevel keeps log output off the report unless something fails.
	DefaultLogLevel   = "error"
	DefaultLogAppName = "todo-find"
	DefaultSort       = "none"
)

// Configuration errors.
var (
	// ErrPatternFileNotFound indicates the pattern file does not exist.
	ErrPatternFileNotFound = errors.New("pattern file not found")

	// ErrPatternFileEmpty indicates the pattern file holds no patterns.
	ErrPatternFileEmpty = errors.New("pattern file contains no patterns")

	// ErrInvalidBool indicates a boolean setting that cannot be parsed.
	ErrInvalidBool = errors.New("invalid boolean value")
)

// Config holds all application configuration.
type Config struct {
	// Patterns are the match patterns; empty selects the built-in set.
	Patterns []string

	// Excludes are doublestar globs for paths to skip.
	Excludes []string

	// Sort is the default sort key name.
	Sort string

	// SkipVendored prunes vendored paths from the walk.
	SkipVendored bool

	// LogLevel is the logging level (debug, info, error).
	LogLevel string

	// LogAppName is the application name for log context.
	LogAppName string
}

// Load loads the application configuration from environment variables.
//
//   - LOG_LEVEL: log level (defaults to "error")
//   - LOG_APP_NAME: application name for logs (defaults to "todo-find")
//   - TODO_FIND_PATTERN_FILE: optional file of patterns; blank lines and lines starting with # are skipped
//   - TODO_FIND_EXCLUDE: optional globs separated by the OS path-list separator
//   - TODO_FIND_SORT: default sort key (defaults to "none")
//   - TODO_FIND_SKIP_VENDORED: prune vendored paths (defaults to false)
//
// Returns ErrPatternFileNotFound if TODO_FIND_PATTERN_FILE names a missing file.
func Load() (*Config, error) {
	var patterns []string
	if path := os.Getenv(EnvPatternFile); path != "" {
		loaded, err := loadPatternsFromFile(path)
		if err != nil {
			return nil, err
		}
		patterns = loaded
	}

	skipVendored, err := getEnvBool(EnvSkipVendored)
	if err != nil {
		return nil, err
	}

	return &Config{
		Patterns:     patterns,
		Excludes:     splitList(os.Getenv(EnvExclude)),
		Sort:         getEnvDefault(EnvSort, DefaultSort),
		SkipVendored: skipVendored,
		LogLevel:     getEnvDefault(EnvLogLevel, DefaultLogLevel),
		LogAppName:   getEnvDefault(EnvLogAppName, DefaultLogAppName),
	}, nil
}

// loadPatternsFromFile reads one pattern per line from the specified file path.
// Patterns are taken verbatim apart from the line terminator, so leading whitespace is significant.
func loadPatternsFromFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPatternFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}

	var patterns []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse pattern file: %w", err)
	}

	if len(patterns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPatternFileEmpty, path)
	}

	return patterns, nil
}

// splitList splits a path-list-separated value, dropping empty items.
func splitList(value string) []string {
	var items []string
	for _, item := range filepath.SplitList(value) {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidBool, key, value)
	}
	return parsed, nil
}

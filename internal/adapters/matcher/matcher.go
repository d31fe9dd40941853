// Package matcher compiles line patterns into a single matcher.
package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/MyCarrier-DevOps/todo-find/internal/domain"
)

// DefaultPatterns match a `//` comment followed by TODO, case-insensitively, anywhere in the line.
var DefaultPatterns = []string{`(?i)//\s*todo`}

// Matcher implements domain.LineMatcher with one regular expression holding every
// pattern as an alternative.
type Matcher struct {
	re *regexp.Regexp
}

// Compile builds a Matcher. An empty pattern set selects DefaultPatterns.
// Returns domain.ErrInvalidPattern naming the first pattern that fails to compile.
func Compile(patterns []string) (*Matcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	patterns = lo.Uniq(patterns)

	alternatives := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", domain.ErrInvalidPattern, pattern, err)
		}
		// Grouping keeps inline flags such as (?i) scoped to their own pattern.
		alternatives = append(alternatives, "(?:"+pattern+")")
	}

	re, err := regexp.Compile(strings.Join(alternatives, "|"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPattern, err)
	}

	return &Matcher{re: re}, nil
}

// Matches reports whether any pattern matches line.
func (m *Matcher) Matches(line string) bool {
	return m.re.MatchString(line)
}

// Package output provides adapters for rendering scan results.
package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MyCarrier-DevOps/todo-find/internal/domain"
)

const (
	halfTab = "  "
	tab     = "    "
)

// Options configures how results are ordered.
type Options struct {
	// SortKey selects the ordering applied before rendering.
	SortKey domain.SortKey

	// Reverse reverses the order after sorting.
	Reverse bool
}

// Writer renders annotated matches as plain text.
// It only needs the read-only resolver view of the revision store.
type Writer struct {
	resolver domain.RevisionResolver
	opts     Options
	now      func() time.Time
}

// NewWriter creates a new Writer that resolves revision summaries with resolver.
func NewWriter(resolver domain.RevisionResolver, opts Options) *Writer {
	return &Writer{
		resolver: resolver,
		opts:     opts,
		now:      time.Now,
	}
}

// Present sorts matches and writes one block per match to out (stdout when nil).
func (w *Writer) Present(ctx context.Context, matches []domain.AnnotatedMatch, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}

	if err := SortMatches(ctx, matches, w.opts.SortKey, w.opts.Reverse, w.resolver); err != nil {
		return fmt.Errorf("failed to sort results: %w", err)
	}

	for _, m := range matches {
		if err := w.writeMatch(ctx, out, m); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeMatch(ctx context.Context, out io.Writer, m domain.AnnotatedMatch) error {
	if _, err := fmt.Fprintf(out, "* -> %s:%d\n", m.FilePath, m.LineNumber); err != nil {
		return err
	}

	if m.History != nil {
		if err := w.writeRevision(ctx, out, "since", m.History.Origin); err != nil {
			return err
		}
		if m.History.Final != m.History.Origin {
			if err := w.writeRevision(ctx, out, "last ", m.History.Final); err != nil {
				return err
			}
		}
	}

	if _, err := fmt.Fprintf(out, "%smodified %s\n", halfTab, humanize.RelTime(m.ModifiedAt, w.now(), "ago", "from now")); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "\n%s%s%s\n\n", halfTab, tab, m.Content)
	return err
}

func (w *Writer) writeRevision(ctx context.Context, out io.Writer, label string, id domain.RevisionID) error {
	meta, err := w.resolver.ResolveRevision(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to resolve revision %s: %w", id.Short(), err)
	}

	summary := ""
	if meta != nil {
		summary = meta.Summary
	}

	_, err = fmt.Fprintf(out, "%s%s %s: %s\n", halfTab, label, id.Short(), summary)
	return err
}

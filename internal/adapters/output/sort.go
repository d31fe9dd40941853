package output

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/MyCarrier-DevOps/todo-find/internal/domain"
)

// revisionRank orders matches by the commit time of one of their revisions.
type revisionRank struct {
	known bool
	when  time.Time
	id    domain.RevisionID
}

func compareRanks(a, b revisionRank) int {
	switch {
	case a.known && !b.known:
		return -1
	case !a.known && b.known:
		return 1
	case !a.known:
		return 0
	}
	if c := a.when.Compare(b.when); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}

// SortMatches orders matches in place by key, then reverses them if requested.
// Revision keys order by commit time; matches without history sort last.
// Sorting is stable, so equal keys keep scan order.
func SortMatches(
	ctx context.Context,
	matches []domain.AnnotatedMatch,
	key domain.SortKey,
	reverse bool,
	resolver domain.RevisionResolver,
) error {
	switch key {
	case domain.SortByOrigin, domain.SortByFinal:
		ranks := make(map[domain.RevisionID]revisionRank)
		rankOf := func(m domain.AnnotatedMatch) (revisionRank, error) {
			id, ok := m.FinalRevision()
			if key == domain.SortByOrigin {
				id, ok = m.OriginRevision()
			}
			if !ok {
				return revisionRank{}, nil
			}
			if rank, cached := ranks[id]; cached {
				return rank, nil
			}
			meta, err := resolver.ResolveRevision(ctx, id)
			if err != nil {
				return revisionRank{}, err
			}
			rank := revisionRank{known: true, id: id}
			if meta != nil {
				rank.when = meta.When
			}
			ranks[id] = rank
			return rank, nil
		}

		keyed := make([]revisionRank, len(matches))
		for i, m := range matches {
			rank, err := rankOf(m)
			if err != nil {
				return err
			}
			keyed[i] = rank
		}

		order := lo.Range(len(matches))
		slices.SortStableFunc(order, func(a, b int) int {
			return compareRanks(keyed[a], keyed[b])
		})
		sorted := lo.Map(order, func(i int, _ int) domain.AnnotatedMatch {
			return matches[i]
		})
		copy(matches, sorted)

	case domain.SortByModified:
		slices.SortStableFunc(matches, func(a, b domain.AnnotatedMatch) int {
			return a.ModifiedAt.Compare(b.ModifiedAt)
		})
	}

	if reverse {
		lo.Reverse(matches)
	}
	return nil
}

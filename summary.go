package tether

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

// SummaryLister is implemented by stores that can list session summaries
// without decoding every history.
type SummaryLister interface {
	Summaries(ctx context.Context) ([]SessionSummary, error)
}

// Summaries returns a summary of every session in store, most recently
// active first. Stores implementing SummaryLister answer directly; otherwise
// each listed session is loaded, and entries that fail to load are left out.
func Summaries(ctx context.Context, store Store) ([]SessionSummary, error) {
	if sl, ok := store.(SummaryLister); ok {
		return sl.Summaries(ctx)
	}
	ids, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]SessionSummary, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, ok := store.Load(ctx, id)
		if !ok {
			continue
		}
		out = append(out, s.Summary())
	}
	SortSummaries(out)
	return out, nil
}

// SortSummaries orders summaries by last activity, newest first, breaking
// ties by identifier.
func SortSummaries(s []SessionSummary) {
	slices.SortStableFunc(s, func(a, b SessionSummary) int {
		if c := b.LastActivity.Compare(a.LastActivity); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Package result holds scored retrieval hits shared by every index backend.
package result

import (
	"cmp"
	"slices"

	"github.com/kailas-cloud/neusearch/internal/domain/item"
)

// Result is one retrieved item with its cosine similarity in [0,1].
type Result struct {
	Item  item.Item
	Score float64
}

// ID returns the item identifier.
func (r *Result) ID() string { return r.Item.ID() }

// Sort orders results by descending score; equal scores fall back to
// ascending item ID so every backend ranks ties the same way.
func Sort(rs []Result) {
	slices.SortStableFunc(rs, func(a, b Result) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID(), b.ID())
	})
}

// Clip sorts rs in place, drops hits below threshold and caps the slice at limit.
// A non-positive limit yields an empty slice.
func Clip(rs []Result, limit int, threshold float64) []Result {
	if limit <= 0 {
		return []Result{}
	}
	kept := rs[:0]
	for _, r := range rs {
		if r.Score >= threshold {
			kept = append(kept, r)
		}
	}
	Sort(kept)
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

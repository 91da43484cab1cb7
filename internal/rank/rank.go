// Package rank selects the single best opportunity per company. The order is
// total and deterministic: category priority, then earliest discovery time,
// then (source, URL) so that no two distinct records ever compare equal.
package rank

import (
	"sort"

	"github.com/reacher-cli/reacher/internal/job"
)

type Ranker struct {
	table job.CategoryTable
}

func New(table job.CategoryTable) *Ranker {
	return &Ranker{table: table}
}

// Pick returns the best candidate, or nil when the bucket is empty.
// Within a category the earliest-seen opportunity wins ties.
func (r *Ranker) Pick(candidates []*job.Opportunity) *job.Opportunity {
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if r.less(c, best) {
			best = c
		}
	}
	return best
}

// Sort orders candidates best first, in place.
func (r *Ranker) Sort(candidates []*job.Opportunity) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return r.less(candidates[i], candidates[j])
	})
}

func (r *Ranker) less(a, b *job.Opportunity) bool {
	pa, pb := r.table.Priority(a.Category), r.table.Priority(b.Category)
	if pa != pb {
		return pa < pb
	}
	if !a.DiscoveredAt.Equal(b.DiscoveredAt) {
		return a.DiscoveredAt.Before(b.DiscoveredAt)
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	return a.URL < b.URL
}

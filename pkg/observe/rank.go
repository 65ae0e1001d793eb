package observe

import "sort"

// classifyAndRank filters items through include, sorts the survivors
// with less, and truncates to limit. Truncation happens strictly after
// sorting so the kept items are the top of the full ranked set, not the
// first arrivals. A non-positive limit keeps everything.
//
// The sort is stable; callers make less a total order (with an ID
// tie-break) so the same backing data always yields the same sequence.
func classifyAndRank[T any](items []T, include func(T) bool, less func(a, b T) bool, limit int) []T {
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if include == nil || include(item) {
			kept = append(kept, item)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return less(kept[i], kept[j])
	})

	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

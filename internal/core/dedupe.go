package core

import "sort"

// FindDuplicates groups records by natural key. Every row that shares its key
// with at least one other row is returned, mapped to the sorted indices of
// its peers. Rows absent from the result are unique within the submission.
// The relation is symmetric: if a lists b as a peer, b lists a.
func FindDuplicates(records map[int]CandidateRecord) map[int][]int {
	groups := make(map[NaturalKey][]int)
	for idx, rec := range records {
		k := rec.Key()
		groups[k] = append(groups[k], idx)
	}

	dups := make(map[int][]int)
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Ints(members)
		for _, idx := range members {
			peers := make([]int, 0, len(members)-1)
			for _, other := range members {
				if other != idx {
					peers = append(peers, other)
				}
			}
			dups[idx] = peers
		}
	}
	return dups
}

// sortedIndices returns the keys of m in ascending order.
func sortedIndices[V any](m map[int]V) []int {
	out := make([]int, 0, len(m))
	for idx := range m {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

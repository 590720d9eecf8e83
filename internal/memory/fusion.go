package memory

import "sort"

// rrfConstant is the standard reciprocal-rank-fusion smoothing constant.
const rrfConstant = 60.0

// rankedHit is one vector search hit with its rank (0-based, best first)
// within a single named-vector search.
type rankedHit struct {
	id    string
	rank  int
	score float64
}

// reciprocalRankFuse combines per-vector ranked hit lists into a single
// ranked list of record ids, weighting each vector's contribution and
// deduplicating by id. Ties are broken by first appearance, scanning the
// per-vector lists in the order given; record timestamps are not consulted.
func reciprocalRankFuse(perVector [][]rankedHit, weights []float64, limit int) []string {
	fused := map[string]float64{}
	firstSeen := map[string]int{}
	seq := 0
	for vi, hits := range perVector {
		w := 1.0
		if vi < len(weights) {
			w = weights[vi]
		}
		for _, h := range hits {
			fused[h.id] += w * (1.0 / (rrfConstant + float64(h.rank+1)))
			if _, ok := firstSeen[h.id]; !ok {
				firstSeen[h.id] = seq
				seq++
			}
		}
	}

	ids := make([]string, 0, len(fused))
	for id := range fused {
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		if fused[ids[i]] != fused[ids[j]] {
			return fused[ids[i]] > fused[ids[j]]
		}
		return firstSeen[ids[i]] < firstSeen[ids[j]]
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

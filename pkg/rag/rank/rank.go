package rank

import (
	"math"
	"sort"

	"ai-context-engine/pkg/store"
)

const (
	maxPerCluster  = 3   // picks allowed per (sourceType, sourceId) family
	clusterPenalty = 0.3 // multiplied in once per prior pick from the family
	minResults     = 4   // floor: cutoff never shrinks the set below this
)

type clusterKey struct {
	sourceType string
	sourceId   string
}

// Deduplicate collapses multi-query result sets to one entry per document,
// keeping the best fused score, sorted descending. Idempotent.
func Deduplicate(results []store.SearchResult) []store.SearchResult {
	best := make(map[string]store.SearchResult, len(results))
	for _, r := range results {
		if cur, ok := best[r.DocumentId]; !ok || r.FusedScore > cur.FusedScore {
			best[r.DocumentId] = r
		}
	}

	out := make([]store.SearchResult, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return out[i].DocumentId < out[j].DocumentId // deterministic ties
	})
	return out
}

// Diversify greedily walks the score-sorted list and spreads picks across
// document families so one verbose source cannot crowd out the rest. Each
// (sourceType, sourceId) family yields at most 3 picks. The score used for
// the cut-off decision shrinks by ×0.3 per prior pick from the same family;
// the stored score is never touched. The first 4 picks bypass the cut-off
// entirely, so a corpus where only one family matched still produces
// evidence instead of none.
func Diversify(results []store.SearchResult, max int) []store.SearchResult {
	if max <= 0 {
		return nil
	}

	sorted := Deduplicate(results)
	selected := make([]store.SearchResult, 0, max)
	picks := make(map[clusterKey]int)

	for _, r := range sorted {
		if len(selected) == max {
			break
		}
		key := clusterKey{sourceType: r.SourceType, sourceId: r.SourceId}
		prior := picks[key]
		if prior >= maxPerCluster {
			continue
		}
		penalized := r.FusedScore * math.Pow(clusterPenalty, float64(prior))
		if len(selected) >= minResults && penalized <= 0 {
			continue
		}
		picks[key]++
		selected = append(selected, r)
	}

	return selected
}

package search

import (
	"sort"

	"torrenthive/metasearch/internal/domain"
)

// mergeByKey unions the candidates of both passes, keyed by each source's
// identity key. The first occurrence wins; passes are redundant by design,
// so later duplicates carry no new information.
func mergeByKey(passes ...[]domain.Candidate) []domain.Candidate {
	seen := make(map[string]struct{})
	var merged []domain.Candidate
	for _, pass := range passes {
		for _, candidate := range pass {
			key := candidate.Key()
			if _, exists := seen[key]; exists {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, candidate)
		}
	}
	return merged
}

func scoreCandidates(candidates []domain.Candidate, keywords KeywordSet) []domain.ScoredCandidate {
	scored := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, domain.ScoredCandidate{
			Candidate: candidate,
			Score:     Score(candidate.Title, keywords),
		})
	}
	return scored
}

// sortByRelevance orders candidates descending by score, with seed count as
// the tie-break proxy for availability among equally relevant results.
func sortByRelevance(candidates []domain.ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Seeds > candidates[j].Seeds
	})
}

// selectForResolution picks the candidates that undergo the expensive
// detail-page fetch: every candidate sharing the maximum score (the top tier
// is uncapped since any number of releases may be equally relevant) plus up
// to safetyNet of the next-best, in sorted order, in case the top-scoring
// guess is wrong. Input must already be sorted by sortByRelevance.
func selectForResolution(sorted []domain.ScoredCandidate, safetyNet int) []domain.ScoredCandidate {
	if len(sorted) == 0 {
		return nil
	}
	maxScore := sorted[0].Score
	cut := len(sorted)
	for i, candidate := range sorted {
		if candidate.Score < maxScore {
			cut = i
			break
		}
	}
	selected := sorted[:cut]
	lower := sorted[cut:]
	if safetyNet > len(lower) {
		safetyNet = len(lower)
	}
	if safetyNet < 0 {
		safetyNet = 0
	}
	return append(append([]domain.ScoredCandidate(nil), selected...), lower[:safetyNet]...)
}

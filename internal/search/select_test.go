package search

import (
	"testing"

	"torrenthive/metasearch/internal/domain"
)

func TestMergeByKeyFirstOccurrenceWins(t *testing.T) {
	passOne := []domain.Candidate{
		{Title: "Alpha", DetailLink: "/t/1", Seeds: 10},
		{Title: "Beta", DetailLink: "/t/2", Seeds: 5},
	}
	passTwo := []domain.Candidate{
		{Title: "Alpha (repost)", DetailLink: "/t/1", Seeds: 99},
		{Title: "Gamma", DetailLink: "/t/3", Seeds: 1},
	}

	merged := mergeByKey(passOne, passTwo)
	if len(merged) != 3 {
		t.Fatalf("merged %d candidates, want 3", len(merged))
	}
	if merged[0].Title != "Alpha" || merged[0].Seeds != 10 {
		t.Fatalf("duplicate key resolved to %+v, want the first occurrence", merged[0])
	}
	if merged[2].Title != "Gamma" {
		t.Fatalf("merged[2] = %+v, want Gamma", merged[2])
	}
}

func TestMergeByKeyPrefersInfoHash(t *testing.T) {
	// Same hash behind different detail links is still one result.
	merged := mergeByKey(
		[]domain.Candidate{{Title: "X", DetailLink: "/a", InfoHash: "f00d"}},
		[]domain.Candidate{{Title: "X", DetailLink: "/b", InfoHash: "f00d"}},
	)
	if len(merged) != 1 {
		t.Fatalf("merged %d candidates, want 1", len(merged))
	}
}

func TestSortByRelevanceScoreThenSeeds(t *testing.T) {
	candidates := []domain.ScoredCandidate{
		{Candidate: domain.Candidate{Title: "low", Seeds: 900}, Score: 1},
		{Candidate: domain.Candidate{Title: "high-few-seeds", Seeds: 2}, Score: 101},
		{Candidate: domain.Candidate{Title: "high-many-seeds", Seeds: 50}, Score: 101},
	}
	sortByRelevance(candidates)

	want := []string{"high-many-seeds", "high-few-seeds", "low"}
	for i, name := range want {
		if candidates[i].Title != name {
			t.Fatalf("position %d = %q, want %q", i, candidates[i].Title, name)
		}
	}
}

func TestSelectForResolutionTopTierUncapped(t *testing.T) {
	var sorted []domain.ScoredCandidate
	for i := 0; i < 20; i++ {
		sorted = append(sorted, domain.ScoredCandidate{
			Candidate: domain.Candidate{Title: "top"},
			Score:     102,
		})
	}
	for i := 0; i < 10; i++ {
		sorted = append(sorted, domain.ScoredCandidate{
			Candidate: domain.Candidate{Title: "lower"},
			Score:     2,
		})
	}

	selected := selectForResolution(sorted, 5)
	if len(selected) != 25 {
		t.Fatalf("selected %d, want 25 (20 top tier + 5 safety net)", len(selected))
	}
	for i := 0; i < 20; i++ {
		if selected[i].Title != "top" {
			t.Fatalf("selected[%d] = %q, want top-tier candidate", i, selected[i].Title)
		}
	}
}

func TestSelectForResolutionSafetyNetShorterThanLowerTier(t *testing.T) {
	sorted := []domain.ScoredCandidate{
		{Candidate: domain.Candidate{Title: "top"}, Score: 100},
		{Candidate: domain.Candidate{Title: "lower"}, Score: 3},
	}
	selected := selectForResolution(sorted, 5)
	if len(selected) != 2 {
		t.Fatalf("selected %d, want 2", len(selected))
	}
}

func TestSelectForResolutionZeroSafetyNet(t *testing.T) {
	sorted := []domain.ScoredCandidate{
		{Candidate: domain.Candidate{Title: "a"}, Score: 10},
		{Candidate: domain.Candidate{Title: "b"}, Score: 10},
		{Candidate: domain.Candidate{Title: "c"}, Score: 1},
	}
	selected := selectForResolution(sorted, 0)
	if len(selected) != 2 {
		t.Fatalf("selected %d, want only the 2 top-tier candidates", len(selected))
	}
}

func TestSelectForResolutionEmpty(t *testing.T) {
	if got := selectForResolution(nil, 5); got != nil {
		t.Fatalf("selectForResolution(nil) = %v, want nil", got)
	}
}

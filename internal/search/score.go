package search

// Score rates how well a candidate title matches the search keywords.
//
// The score has two parts. A completeness bonus of 100 is awarded when every
// distinct search word appears in the title, so complete matches always
// outrank partial ones no matter how noisy the term frequencies are. On top
// of that, each search word contributes min(searchCount, titleCount): credit
// is capped at the number of times the word was actually searched for, so a
// title repeating one rare word cannot buy an arbitrarily high score.
//
// An empty keyword set scores 0. The vacuous "all words present" case is
// deliberately treated as no match; otherwise every title would collect the
// bonus whenever the query carries no usable keywords.
func Score(title string, searchKeywords KeywordSet) int {
	titleKeywords := ExtractKeywords(title)

	bonus := 0
	if len(searchKeywords) > 0 {
		complete := true
		for word := range searchKeywords {
			if titleKeywords[word] == 0 {
				complete = false
				break
			}
		}
		if complete {
			bonus = 100
		}
	}

	base := 0
	for word, searchCount := range searchKeywords {
		titleCount := titleKeywords[word]
		if titleCount < searchCount {
			base += titleCount
		} else {
			base += searchCount
		}
	}

	return bonus + base
}

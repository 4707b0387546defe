package listener

import "strings"

// Match reports whether text matches target per SPEC_FULL §4.2:
//   - favorite markets match on ANY trigger keyword,
//   - non-favorite markets match on ALL trigger keywords,
//   - any market also matches on the global-keyword + person fallback.
//
// This favorite/non-favorite split is the base spec's stated (redesigned)
// behavior; see DESIGN.md Open Question 4 for why it is followed over the
// literal original source, which has no such branch.
func Match(text string, target Target, globalKeywords []string) bool {
	lower := strings.ToLower(text)

	if len(target.Keywords) > 0 {
		if target.Market.IsFavorite {
			if anyPresent(lower, target.Keywords) {
				return true
			}
		} else if allPresent(lower, target.Keywords) {
			return true
		}
	}

	return globalKeywordFallback(lower, target, globalKeywords)
}

func allPresent(text string, keywords []string) bool {
	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	return true
}

func anyPresent(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func globalKeywordFallback(lowerText string, target Target, globalKeywords []string) bool {
	if len(target.Market.Persons) == 0 {
		return false
	}
	for _, kw := range globalKeywords {
		if kw == "" || !strings.Contains(lowerText, strings.ToLower(kw)) {
			continue
		}
		for _, person := range target.Market.Persons {
			if strings.Contains(lowerText, strings.ToLower(person)) {
				return true
			}
		}
	}
	return false
}

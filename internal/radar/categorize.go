package radar

import (
	"regexp"
	"strings"
)

// categoryKeywords is checked in exactly this declared order; the first
// category whose keyword set matches wins. Grounded on the EVENT_CATEGORIES
// dict in the Python radar this package replaces.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryTweet, []string{"tweet", "post on x", "twitter", "post", "x.com"}},
	{CategorySpeech, []string{"speech", "address", "remarks", "rally", "speak at"}},
	{CategoryAnnouncement, []string{"announce", "reveal", "disclose", "unveil"}},
	{CategoryInterview, []string{"interview", "sit down", "podcast", "appearance", "show"}},
	{CategoryStatement, []string{"statement", "declare", "proclaim", "press conference"}},
	{CategoryReaction, []string{"react", "respond", "reaction", "comment on", "reply"}},
	{CategoryAction, []string{"do", "will", "happen", "occur"}},
}

// Categorize buckets a market's title+description into a Category by
// checking categoryKeywords in declared order; the first match wins, else
// CategoryOther.
func Categorize(title, description string) Category {
	text := strings.ToLower(title + " " + description)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.category
			}
		}
	}
	return CategoryOther
}

// politicalFigures maps lowercase tokens that can appear in a title onto
// their canonical display name. Only figures with an explicit canonical
// form are detected; everything else is silently skipped, matching the
// source's own canonicalization (which does not invent new canonical names
// for tokens it doesn't already recognize).
var politicalFigures = []struct {
	tokens    []string
	canonical string
}{
	{[]string{"donald trump", "trump"}, "Trump"},
	{[]string{"elon musk", "elon", "musk"}, "Elon Musk"},
	{[]string{"joe biden", "biden"}, "Biden"},
	{[]string{"vladimir putin", "putin"}, "Putin"},
}

// DetectPersons scans text for known political-figure tokens and returns
// their deduplicated canonical names, in the order politicalFigures is
// declared.
func DetectPersons(title, description string) []string {
	text := strings.ToLower(title + " " + description)

	seen := make(map[string]bool)
	var persons []string
	for _, figure := range politicalFigures {
		for _, token := range figure.tokens {
			if strings.Contains(text, token) {
				if !seen[figure.canonical] {
					seen[figure.canonical] = true
					persons = append(persons, figure.canonical)
				}
				break
			}
		}
	}
	return persons
}

// quotedSubstring matches single- or double-quoted runs of length >= 2,
// the same extraction rule the Listener's matcher uses to derive per-market
// trigger keywords from a title.
var quotedSubstring = regexp.MustCompile(`['"](.{2,}?)['"]`)

// ExtractTriggerKeywords returns the lowercased quoted substrings in title,
// in order of appearance.
func ExtractTriggerKeywords(title string) []string {
	matches := quotedSubstring.FindAllStringSubmatch(title, -1)
	if len(matches) == 0 {
		return nil
	}
	keywords := make([]string, 0, len(matches))
	for _, m := range matches {
		keywords = append(keywords, strings.ToLower(m[1]))
	}
	return keywords
}

// CanonicalHandle maps a canonical person name onto the social handle the
// Listener should watch for them. Persons without a known handle are
// skipped by the caller.
func CanonicalHandle(person string) (string, bool) {
	switch strings.ToLower(person) {
	case "trump":
		return "realDonaldTrump", true
	case "elon musk":
		return "elonmusk", true
	case "biden":
		return "POTUS", true
	default:
		return "", false
	}
}

package radar

import "testing"

func TestCategorizeDeclaredOrder(t *testing.T) {
	cases := []struct {
		title string
		want  Category
	}{
		{"Will Trump tweet about the economy", CategoryTweet},
		{"Will Biden give a speech on Friday", CategorySpeech},
		{"Will the company announce layoffs", CategoryAnnouncement},
		{"Will Elon sit down for an interview", CategoryInterview},
		{"Will Putin declare his position", CategoryStatement},
		{"Will markets react to the news", CategoryReaction},
		{"Will this occur by Monday", CategoryAction},
		{"Completely unrelated market title", CategoryOther},
	}
	for _, tc := range cases {
		if got := Categorize(tc.title, ""); got != tc.want {
			t.Errorf("Categorize(%q) = %v, want %v", tc.title, got, tc.want)
		}
	}
}

func TestCategorizeTweetWinsOverLaterKeywords(t *testing.T) {
	// "tweet" is checked before "speech", so a title containing both must
	// resolve to the category listed first in categoryKeywords.
	got := Categorize("Will Trump tweet before his speech", "")
	if got != CategoryTweet {
		t.Errorf("Categorize = %v, want tweet (declared-order precedence)", got)
	}
}

func TestDetectPersonsDeduplicatesAndCanonicalizes(t *testing.T) {
	persons := DetectPersons("Will Donald Trump and Trump both tweet", "")
	if len(persons) != 1 || persons[0] != "Trump" {
		t.Errorf("DetectPersons = %v, want single canonical [Trump]", persons)
	}
}

func TestDetectPersonsMultipleFiguresPreservesDeclaredOrder(t *testing.T) {
	persons := DetectPersons("Will Biden react to Elon Musk's tweet", "")
	if len(persons) != 2 || persons[0] != "Elon Musk" || persons[1] != "Biden" {
		t.Errorf("DetectPersons = %v, want [Elon Musk, Biden] in declared order", persons)
	}
}

func TestExtractTriggerKeywords(t *testing.T) {
	keywords := ExtractTriggerKeywords(`Will Trump say "yes" or 'no' before Friday`)
	if len(keywords) != 2 || keywords[0] != "yes" || keywords[1] != "no" {
		t.Errorf("ExtractTriggerKeywords = %v, want [yes no]", keywords)
	}
}

func TestExtractTriggerKeywordsIgnoresShortQuotes(t *testing.T) {
	keywords := ExtractTriggerKeywords(`Will Trump say "a" before Friday`)
	if len(keywords) != 0 {
		t.Errorf("ExtractTriggerKeywords = %v, want none (quote shorter than 2 chars)", keywords)
	}
}

func TestCanonicalHandle(t *testing.T) {
	cases := []struct {
		person     string
		wantHandle string
		wantOK     bool
	}{
		{"Trump", "realDonaldTrump", true},
		{"Elon Musk", "elonmusk", true},
		{"Biden", "POTUS", true},
		{"Putin", "", false},
	}
	for _, tc := range cases {
		handle, ok := CanonicalHandle(tc.person)
		if handle != tc.wantHandle || ok != tc.wantOK {
			t.Errorf("CanonicalHandle(%q) = (%q, %v), want (%q, %v)", tc.person, handle, ok, tc.wantHandle, tc.wantOK)
		}
	}
}

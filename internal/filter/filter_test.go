package filter_test

import (
	"testing"

	"shiori/internal/catalog"
	"shiori/internal/filter"
)

func TestKeywordMatchesTitleAndEnglishTitle(t *testing.T) {
	engine := filter.New([]string{"NG_KEYWORD"}, nil)

	cases := []struct {
		name      string
		candidate catalog.Candidate
		allowed   bool
	}{
		{"clean", catalog.Candidate{Title: "Frieren", Platform: "TV"}, true},
		{"title hit", catalog.Candidate{Title: "Some ng_keyword Show", Platform: "TV"}, false},
		{"english title hit", catalog.Candidate{Title: "無題", TitleEn: "The NG_Keyword Chronicles", Platform: "TV"}, false},
		{"platform is not a keyword target", catalog.Candidate{Title: "Frieren", Platform: "NG_KEYWORD TV"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			allowed, reason := engine.AllowCandidate(&tc.candidate)
			if allowed != tc.allowed {
				t.Fatalf("AllowCandidate = %v (reason %q), want %v", allowed, reason, tc.allowed)
			}
			if !allowed && reason == "" {
				t.Fatal("denied candidate must carry a reason")
			}
		})
	}
}

func TestPlatformPatterns(t *testing.T) {
	engine := filter.New(nil, []string{"niconico", "amazon*"})

	cases := []struct {
		platform string
		allowed  bool
	}{
		{"Crunchyroll", true},
		{"NicoNico", false},
		{"Amazon Prime Video", false},
		{"amazon", false},
		{"MyAmazon", true},
	}
	for _, tc := range cases {
		candidate := catalog.Candidate{Title: "Frieren", Platform: tc.platform}
		allowed, _ := engine.AllowCandidate(&candidate)
		if allowed != tc.allowed {
			t.Fatalf("platform %q: allowed=%v, want %v", tc.platform, allowed, tc.allowed)
		}
	}
}

func TestAllowDueUsesWorkTitles(t *testing.T) {
	engine := filter.New([]string{"spoiler"}, nil)

	due := catalog.DueRelease{
		Release: catalog.Release{Platform: "TV"},
		Work:    catalog.Work{Title: "Frieren", TitleEn: "Big Spoiler Special"},
	}
	if allowed, _ := engine.AllowDue(&due); allowed {
		t.Fatal("expected deny from work english title")
	}
}

func TestEmptyEngineAllowsEverything(t *testing.T) {
	engine := filter.New([]string{"  ", ""}, nil)
	if !engine.Empty() {
		t.Fatal("expected blank rules to be discarded")
	}
	candidate := catalog.Candidate{Title: "Anything", Platform: "Anywhere"}
	if allowed, _ := engine.AllowCandidate(&candidate); !allowed {
		t.Fatal("empty engine must allow")
	}
}

package discovery

import (
	"testing"

	pgrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/postgres"
)

func TestApplyFiltersStageOneOverlap(t *testing.T) {
	candidates := []pgrepo.CandidateRecord{
		{UserID: 1, Heritage: []string{"Tibetan"}},
		{UserID: 2, Heritage: []string{"Nepali"}},
		{UserID: 3},
	}
	prefs := pgrepo.ViewerPreferences{Heritage: []string{"tibetan"}}

	got := ApplyFilters(candidates, prefs, false)

	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].UserID != 1 || got[1].UserID != 3 {
		t.Fatalf("unexpected candidate order: %d, %d", got[0].UserID, got[1].UserID)
	}
}

func TestApplyFiltersEmptyPreferencesPassEveryone(t *testing.T) {
	candidates := []pgrepo.CandidateRecord{
		{UserID: 1, Heritage: []string{"Tibetan"}, Religion: []string{"Buddhist"}},
		{UserID: 2, Smoking: "regularly", HeightCM: 150},
	}

	got := ApplyFilters(candidates, pgrepo.ViewerPreferences{}, true)

	if len(got) != 2 {
		t.Fatalf("expected all candidates to pass, got %d", len(got))
	}
}

func TestApplyFiltersStageTwoPremiumOnly(t *testing.T) {
	candidates := []pgrepo.CandidateRecord{
		{UserID: 1, HeightCM: 180, Smoking: "never"},
		{UserID: 2, HeightCM: 150, Smoking: "never"},
		{UserID: 3, HeightCM: 175, Smoking: "regularly"},
	}
	prefs := pgrepo.ViewerPreferences{
		HeightMinCM: 170,
		Smoking:     []string{"never", "socially"},
	}

	free := ApplyFilters(candidates, prefs, false)
	if len(free) != 3 {
		t.Fatalf("free viewer must skip stage two, got %d candidates", len(free))
	}

	premium := ApplyFilters(candidates, prefs, true)
	if len(premium) != 1 || premium[0].UserID != 1 {
		t.Fatalf("premium viewer expected only candidate 1, got %+v", premium)
	}
}

func TestApplyFiltersUnknownAttributesPass(t *testing.T) {
	candidates := []pgrepo.CandidateRecord{
		{UserID: 1, HeightCM: 0, Education: ""},
	}
	prefs := pgrepo.ViewerPreferences{
		HeightMinCM: 170,
		Education:   []string{"masters"},
	}

	got := ApplyFilters(candidates, prefs, true)
	if len(got) != 1 {
		t.Fatalf("candidate with unknown attributes must pass, got %d", len(got))
	}
}

func TestApplyFiltersSpokenLanguageOverlap(t *testing.T) {
	candidates := []pgrepo.CandidateRecord{
		{UserID: 1, Languages: []string{"Tibetan", "English"}},
		{UserID: 2, Languages: []string{"Hindi"}},
	}
	prefs := pgrepo.ViewerPreferences{SpokenLanguages: []string{"english"}}

	got := ApplyFilters(candidates, prefs, true)
	if len(got) != 1 || got[0].UserID != 1 {
		t.Fatalf("expected only candidate 1, got %+v", got)
	}
}

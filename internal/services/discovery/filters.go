package discovery

import (
	"strings"

	pgrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/postgres"
)

// ApplyFilters runs the in-memory compatibility stages over SQL-selected
// candidates. Stage one (heritage, religion, language) applies to everyone;
// stage two sub-filters apply only to premium viewers. Order is preserved.
func ApplyFilters(candidates []pgrepo.CandidateRecord, prefs pgrepo.ViewerPreferences, premium bool) []pgrepo.CandidateRecord {
	if len(candidates) == 0 {
		return candidates
	}

	filtered := make([]pgrepo.CandidateRecord, 0, len(candidates))
	for _, candidate := range candidates {
		if !passesStageOne(candidate, prefs) {
			continue
		}
		if premium && !passesStageTwo(candidate, prefs) {
			continue
		}
		filtered = append(filtered, candidate)
	}

	return filtered
}

// A dimension the viewer left empty is skipped; a candidate with no tags in
// a checked dimension passes; otherwise at least one tag must intersect.
func passesStageOne(candidate pgrepo.CandidateRecord, prefs pgrepo.ViewerPreferences) bool {
	if !tagsCompatible(prefs.Heritage, candidate.Heritage) {
		return false
	}
	if !tagsCompatible(prefs.Religion, candidate.Religion) {
		return false
	}
	if !tagsCompatible(prefs.Languages, candidate.Languages) {
		return false
	}
	return true
}

// Unset sub-filters are skipped; unknown candidate attributes pass.
func passesStageTwo(candidate pgrepo.CandidateRecord, prefs pgrepo.ViewerPreferences) bool {
	if prefs.HeightMinCM > 0 && candidate.HeightCM > 0 && candidate.HeightCM < prefs.HeightMinCM {
		return false
	}
	if prefs.HeightMaxCM > 0 && candidate.HeightCM > 0 && candidate.HeightCM > prefs.HeightMaxCM {
		return false
	}
	if !attributeAllowed(prefs.Education, candidate.Education) {
		return false
	}
	if !attributeAllowed(prefs.Children, candidate.Children) {
		return false
	}
	if !attributeAllowed(prefs.FamilyPlans, candidate.FamilyPlans) {
		return false
	}
	if !attributeAllowed(prefs.Drugs, candidate.Drugs) {
		return false
	}
	if !attributeAllowed(prefs.Smoking, candidate.Smoking) {
		return false
	}
	if !attributeAllowed(prefs.Marijuana, candidate.Marijuana) {
		return false
	}
	if !attributeAllowed(prefs.Drinking, candidate.Drinking) {
		return false
	}
	if !tagsCompatible(prefs.SpokenLanguages, candidate.Languages) {
		return false
	}
	return true
}

func tagsCompatible(wanted, actual []string) bool {
	if len(wanted) == 0 || len(actual) == 0 {
		return true
	}

	want := make(map[string]struct{}, len(wanted))
	for _, tag := range wanted {
		want[normalizeTag(tag)] = struct{}{}
	}
	for _, tag := range actual {
		if _, ok := want[normalizeTag(tag)]; ok {
			return true
		}
	}

	return false
}

func attributeAllowed(wanted []string, actual string) bool {
	if len(wanted) == 0 || strings.TrimSpace(actual) == "" {
		return true
	}

	normalized := normalizeTag(actual)
	for _, tag := range wanted {
		if normalizeTag(tag) == normalized {
			return true
		}
	}

	return false
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

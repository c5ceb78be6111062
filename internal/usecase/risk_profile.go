package usecase

import (
	"strings"

	"FinAdvisor/internal/domain/models"
)

// ProfileFallback is the profile any unrecognised name resolves to. Keeping
// the most permissive profile as the default is existing behaviour; use
// IsKnownProfile at input boundaries to reject unknown names instead.
const ProfileFallback = models.ProfileAggressive

var profiles = map[models.ProfileName]models.RiskProfile{
	models.ProfileConservative: {
		Name:                  models.ProfileConservative,
		MaxWeightPerAsset:     0.15,
		MinConfidenceToTrade:  0.60,
		ScoreBuyTh:            0.35,
		ScoreSellTh:           -0.35,
		BaseTargetWeight:      0.08,
		AnomalySizePenalty:    0.75,
		VolatilitySizePenalty: 0.35,
		MaxTotalExposure:      0.60,
	},
	models.ProfileModerate: {
		Name:                  models.ProfileModerate,
		MaxWeightPerAsset:     0.25,
		MinConfidenceToTrade:  0.55,
		ScoreBuyTh:            0.25,
		ScoreSellTh:           -0.25,
		BaseTargetWeight:      0.12,
		AnomalySizePenalty:    0.70,
		VolatilitySizePenalty: 0.30,
		MaxTotalExposure:      0.80,
	},
	models.ProfileAggressive: {
		Name:                  models.ProfileAggressive,
		MaxWeightPerAsset:     0.35,
		MinConfidenceToTrade:  0.50,
		ScoreBuyTh:            0.15,
		ScoreSellTh:           -0.15,
		BaseTargetWeight:      0.16,
		AnomalySizePenalty:    0.60,
		VolatilitySizePenalty: 0.25,
		MaxTotalExposure:      0.95,
	},
}

// French and English spellings accepted for each named profile.
var profileSynonyms = map[string]models.ProfileName{
	"conservative": models.ProfileConservative,
	"conservateur": models.ProfileConservative,
	"moderate":     models.ProfileModerate,
	"modere":       models.ProfileModerate,
	"modéré":       models.ProfileModerate,
	"aggressive":   models.ProfileAggressive,
	"agressif":     models.ProfileAggressive,
}

// ResolveProfileName maps a user-supplied name onto a profile. The second
// return value is false when the name was not recognised and the fallback
// was used.
func ResolveProfileName(name string) (models.ProfileName, bool) {
	if p, ok := profileSynonyms[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p, true
	}
	return ProfileFallback, false
}

// IsKnownProfile reports whether name matches one of the profile synonyms.
func IsKnownProfile(name string) bool {
	_, ok := ResolveProfileName(name)
	return ok
}

// GetProfile returns the parameters for name. It never fails: unknown names
// get the ProfileFallback parameters.
func GetProfile(name string) models.RiskProfile {
	p, _ := ResolveProfileName(name)
	return profiles[p]
}

package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"FinAdvisor/internal/domain/models"
)

func TestResolveProfileName(t *testing.T) {
	cases := []struct {
		in    string
		want  models.ProfileName
		known bool
	}{
		{"conservative", models.ProfileConservative, true},
		{" Conservateur ", models.ProfileConservative, true},
		{"MODERATE", models.ProfileModerate, true},
		{"modéré", models.ProfileModerate, true},
		{"modere", models.ProfileModerate, true},
		{"agressif", models.ProfileAggressive, true},
		{"yolo", ProfileFallback, false},
		{"", ProfileFallback, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ResolveProfileName(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.known, ok)
			assert.Equal(t, tc.known, IsKnownProfile(tc.in))
		})
	}
}

func TestGetProfileParameters(t *testing.T) {
	c := GetProfile("conservative")
	assert.Equal(t, 0.15, c.MaxWeightPerAsset)
	assert.Equal(t, 0.60, c.MinConfidenceToTrade)
	assert.Equal(t, 0.60, c.MaxTotalExposure)

	m := GetProfile("moderate")
	assert.Equal(t, 0.12, m.BaseTargetWeight)
	assert.Equal(t, -0.25, m.ScoreSellTh)

	unknown := GetProfile("unknown")
	assert.Equal(t, models.ProfileAggressive, unknown.Name)
	assert.Equal(t, GetProfile("aggressive"), unknown)
}

func TestProfilesAreOrderedByRisk(t *testing.T) {
	c, m, a := GetProfile("conservative"), GetProfile("moderate"), GetProfile("aggressive")
	assert.Less(t, c.MaxWeightPerAsset, m.MaxWeightPerAsset)
	assert.Less(t, m.MaxWeightPerAsset, a.MaxWeightPerAsset)
	assert.Greater(t, c.MinConfidenceToTrade, a.MinConfidenceToTrade)
	assert.Greater(t, c.ScoreBuyTh, a.ScoreBuyTh)
}

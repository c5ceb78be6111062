package models

// Lang selects the rendering language of an explanation.
type Lang string

const (
	LangFR Lang = "fr"
	LangAR Lang = "ar"
)

// Explanation is the human-readable rendering of a decision.
type Explanation struct {
	Headline  string             `json:"headline"`
	Summary   string             `json:"summary"`
	Bullets   []string           `json:"bullets"`
	Risks     []string           `json:"risks"`
	NextSteps []string           `json:"next_steps"`
	Debug     map[string]float64 `json:"debug"`
}

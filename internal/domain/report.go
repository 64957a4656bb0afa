package domain

import "time"

// GenerationPlan is the deterministic recipe for one item.
type GenerationPlan struct {
	Index       int    `json:"index"`
	Style       string `json:"style"`
	AspectRatio string `json:"aspect_ratio"`
	Tone        string `json:"tone"`
	Pacing      string `json:"pacing"`
	Prompt      string `json:"prompt"`
}

// SucceededItem is an item that passed generation and the quality gate.
type SucceededItem struct {
	Plan  GenerationPlan `json:"plan"`
	Job   GenerationJob  `json:"job"`
	Score float64        `json:"score"`
	Cost  float64        `json:"cost"`
}

// FailedItem is an item that did not make it into the final set.
type FailedItem struct {
	Index  int    `json:"index"`
	Code   Kind   `json:"code"`
	Reason string `json:"reason"`
	Prompt string `json:"prompt"`
	// Score is set only for QualityTooLow failures.
	Score float64 `json:"score,omitempty"`
}

// Report is the aggregate returned by one Generate call. Both lists are
// ordered by plan index and together enumerate every requested item once.
type Report struct {
	Succeeded []SucceededItem `json:"succeeded"`
	Failed    []FailedItem    `json:"failed"`
	Duration  time.Duration   `json:"duration"`
	TotalCost float64         `json:"total_cost"`
	Warnings  []string        `json:"warnings,omitempty"`
}

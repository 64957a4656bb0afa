// Package quality scores generated media. The scoring model is opaque; the
// pipeline only sees the overall score.
package quality

import (
	"context"

	"creativegen/internal/domain"
)

// DefaultMinScore is the inclusive pass mark for the quality gate.
const DefaultMinScore = 70.0

// Score is a scorer's structured output.
type Score struct {
	Overall    float64            `json:"overall"`
	Components map[string]float64 `json:"components,omitempty"`
}

// Passes reports whether the overall score meets min (inclusive).
func (s Score) Passes(min float64) bool {
	return s.Overall >= min
}

// Scorer rates one generated job.
type Scorer interface {
	Score(ctx context.Context, job domain.GenerationJob) (Score, error)
}

// Fixed returns the same overall score for every job.
type Fixed struct {
	Overall float64
}

func (f Fixed) Score(context.Context, domain.GenerationJob) (Score, error) {
	return Score{Overall: f.Overall}, nil
}

// Func adapts a function to Scorer.
type Func func(ctx context.Context, job domain.GenerationJob) (Score, error)

func (f Func) Score(ctx context.Context, job domain.GenerationJob) (Score, error) {
	return f(ctx, job)
}

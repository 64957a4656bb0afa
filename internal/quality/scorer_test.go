package quality

import (
	"context"
	"testing"

	"creativegen/internal/domain"
)

func TestPassesIsInclusive(t *testing.T) {
	tests := []struct {
		score float64
		want  bool
	}{
		{69, false},
		{69.99, false},
		{70, true},
		{85, true},
	}
	for _, tc := range tests {
		if got := (Score{Overall: tc.score}).Passes(DefaultMinScore); got != tc.want {
			t.Fatalf("Passes(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestFixedAndFunc(t *testing.T) {
	ctx := context.Background()
	s, err := Fixed{Overall: 88}.Score(ctx, domain.GenerationJob{})
	if err != nil || s.Overall != 88 {
		t.Fatalf("Fixed = %+v, %v", s, err)
	}
	f := Func(func(_ context.Context, job domain.GenerationJob) (Score, error) {
		if job.ID == "low" {
			return Score{Overall: 10}, nil
		}
		return Score{Overall: 90}, nil
	})
	if s, _ := f.Score(ctx, domain.GenerationJob{ID: "low"}); s.Overall != 10 {
		t.Fatalf("Func = %+v", s)
	}
}

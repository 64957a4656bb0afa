package ledger

import (
	"math"

	"creativegen/internal/domain"
)

// Pricing maps output resolution to a per-second rate with a per-item floor.
type Pricing struct {
	PerSecond map[domain.Resolution]float64
	Minimum   float64
}

// DefaultPricing is the service's published price table.
func DefaultPricing() Pricing {
	return Pricing{
		PerSecond: map[domain.Resolution]float64{
			domain.Resolution720p:  0.5,
			domain.Resolution1080p: 1.0,
		},
		Minimum: 5.0,
	}
}

// Cost returns max(seconds * rate, Minimum). It has no side effects.
func (p Pricing) Cost(seconds float64, res domain.Resolution) (float64, error) {
	rate, ok := p.PerSecond[res]
	if !ok {
		return 0, domain.Errorf(domain.KindValidation, "ledger: cost", "no rate for resolution %q", res)
	}
	if seconds < 0 || math.IsNaN(seconds) {
		return 0, domain.Errorf(domain.KindValidation, "ledger: cost", "invalid duration %v", seconds)
	}
	return math.Max(seconds*rate, p.Minimum), nil
}

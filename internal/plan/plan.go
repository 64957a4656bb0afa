// Package plan derives the per-item generation plans for a request.
package plan

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"creativegen/internal/domain"
)

const (
	ToneEnergetic    = "energetic"
	ToneProfessional = "professional"

	PacingMedium = "medium"
	PacingShort  = "short"
)

// Renderer turns a plan into the prompt text sent to the remote service.
type Renderer interface {
	Render(p domain.GenerationPlan, req domain.GenerationRequest) string
}

// Build returns one plan per requested item. Styles and aspect ratios are
// assigned round-robin by ordinal, tone alternates by parity and pacing is
// medium for the first half (the midpoint included).
func Build(req domain.GenerationRequest, r Renderer) ([]domain.GenerationPlan, error) {
	if req.Count <= 0 {
		return nil, domain.Errorf(domain.KindValidation, "plan: build", "item count must be positive")
	}
	if len(req.AspectRatios) == 0 {
		return nil, domain.Errorf(domain.KindValidation, "plan: build", "aspect ratios are required")
	}
	styles := req.Styles
	if len(styles) == 0 {
		styles = domain.DefaultStyles
	}
	if r == nil {
		r = TemplateRenderer{}
	}

	plans := make([]domain.GenerationPlan, req.Count)
	half := float64(req.Count) / 2
	for i := range plans {
		p := domain.GenerationPlan{
			Index:       i,
			Style:       styles[i%len(styles)],
			AspectRatio: req.AspectRatios[i%len(req.AspectRatios)],
			Tone:        ToneEnergetic,
			Pacing:      PacingMedium,
		}
		if i%2 == 1 {
			p.Tone = ToneProfessional
		}
		if float64(i) > half {
			p.Pacing = PacingShort
		}
		p.Prompt = r.Render(p, req)
		plans[i] = p
	}
	return plans, nil
}

// TemplateRenderer writes a fixed-shape prompt from the plan attributes.
type TemplateRenderer struct{}

func (TemplateRenderer) Render(p domain.GenerationPlan, req domain.GenerationRequest) string {
	title := cases.Title(language.Und)
	lines := []string{
		fmt.Sprintf("%s video ad, %s tone, %s pacing.", title.String(p.Style), p.Tone, p.Pacing),
		fmt.Sprintf("Format: %s aspect ratio, %d seconds.", p.AspectRatio, req.DurationSeconds),
	}
	if src := strings.TrimSpace(req.SourceMedia); src != "" {
		lines = append(lines, "Build the ad around the supplied source footage; keep the product recognisable.")
	}
	if len(req.Augmentations) > 0 {
		lines = append(lines, "Creative guidance: "+strings.Join(req.Augmentations, "; ")+".")
	}
	return strings.Join(lines, "\n")
}

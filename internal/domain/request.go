package domain

import (
	"fmt"
	"strings"
)

// Resolution is the output resolution requested from the remote service.
type Resolution string

const (
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
)

var allowedAspectRatios = map[string]struct{}{
	"1:1":  {},
	"4:5":  {},
	"16:9": {},
	"9:16": {},
}

var allowedFrameRates = map[int]struct{}{
	24: {},
	30: {},
	60: {},
}

const (
	// MinItemCount and MaxItemCount bound GenerationRequest.Count.
	MinItemCount = 1
	MaxItemCount = 10
	// DefaultDurationSeconds applies when the request omits a per-item duration.
	DefaultDurationSeconds = 15
	MaxDurationSeconds     = 60
	DefaultResolution      = Resolution1080p
	DefaultFrameRate       = 30
)

// DefaultStyles is used when the request carries no style set.
var DefaultStyles = []string{"cinematic", "minimal", "bold"}

// GenerationRequest describes one call to the orchestrator.
type GenerationRequest struct {
	SourceMedia     string     `json:"source_media"`
	Count           int        `json:"count"`
	AspectRatios    []string   `json:"aspect_ratios"`
	Styles          []string   `json:"styles,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	Augmentations   []string   `json:"augmentations,omitempty"`
	Resolution      Resolution `json:"resolution,omitempty"`
	FrameRate       int        `json:"frame_rate,omitempty"`
}

// Normalize trims list entries and fills in defaults for optional fields.
func (r *GenerationRequest) Normalize() {
	if r == nil {
		return
	}
	r.SourceMedia = strings.TrimSpace(r.SourceMedia)
	r.AspectRatios = compact(r.AspectRatios)
	r.Styles = compact(r.Styles)
	r.Augmentations = compact(r.Augmentations)
	if len(r.Styles) == 0 {
		r.Styles = append([]string(nil), DefaultStyles...)
	}
	if r.DurationSeconds == 0 {
		r.DurationSeconds = DefaultDurationSeconds
	}
	if r.Resolution == "" {
		r.Resolution = DefaultResolution
	}
	if r.FrameRate == 0 {
		r.FrameRate = DefaultFrameRate
	}
}

// Validate checks the request shape. It expects Normalize to have run and
// reports every problem at once as a ValidationError.
func (r GenerationRequest) Validate() error {
	var problems []string
	if r.SourceMedia == "" {
		problems = append(problems, "source media is required")
	}
	if r.Count < MinItemCount || r.Count > MaxItemCount {
		problems = append(problems, fmt.Sprintf("count must be between %d and %d, got %d", MinItemCount, MaxItemCount, r.Count))
	}
	if len(r.AspectRatios) == 0 {
		problems = append(problems, "at least one aspect ratio is required")
	}
	for _, ar := range r.AspectRatios {
		if _, ok := allowedAspectRatios[ar]; !ok {
			problems = append(problems, fmt.Sprintf("unsupported aspect ratio %q", ar))
		}
	}
	if len(r.Styles) == 0 {
		problems = append(problems, "at least one style is required")
	}
	if r.DurationSeconds < 1 || r.DurationSeconds > MaxDurationSeconds {
		problems = append(problems, fmt.Sprintf("duration must be between 1 and %d seconds, got %d", MaxDurationSeconds, r.DurationSeconds))
	}
	if r.Resolution != Resolution720p && r.Resolution != Resolution1080p {
		problems = append(problems, fmt.Sprintf("unsupported resolution %q", r.Resolution))
	}
	if _, ok := allowedFrameRates[r.FrameRate]; !ok {
		problems = append(problems, fmt.Sprintf("unsupported frame rate %d", r.FrameRate))
	}
	if len(problems) > 0 {
		return &Error{Kind: KindValidation, Op: "request", Message: "invalid generation request", Details: problems}
	}
	return nil
}

func compact(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Package report renders a generation report as JSON, Markdown or HTML.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"creativegen/internal/domain"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// JSON returns the indented JSON form of r.
func JSON(r *domain.Report) ([]byte, error) {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: json: %w", err)
	}
	return out, nil
}

// Markdown renders r as a summary followed by one table per outcome list.
func Markdown(r *domain.Report) string {
	var b strings.Builder
	b.WriteString("# Generation report\n\n")
	fmt.Fprintf(&b, "- Succeeded: %d\n", len(r.Succeeded))
	fmt.Fprintf(&b, "- Failed: %d\n", len(r.Failed))
	fmt.Fprintf(&b, "- Duration: %s\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "- Total cost: %.2f\n", r.TotalCost)
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "\n> **Warning:** %s\n", escape(w))
	}

	if len(r.Succeeded) > 0 {
		b.WriteString("\n## Succeeded\n\n")
		b.WriteString("| # | Style | Aspect | Tone | Pacing | Score | Cost | Video |\n")
		b.WriteString("|---|---|---|---|---|---|---|---|\n")
		for _, s := range r.Succeeded {
			url := ""
			if s.Job.Result != nil {
				url = s.Job.Result.VideoURL
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %.1f | %.2f | %s |\n",
				s.Plan.Index+1, escape(s.Plan.Style), s.Plan.AspectRatio, s.Plan.Tone, s.Plan.Pacing, s.Score, s.Cost, link(url))
		}
	}

	if len(r.Failed) > 0 {
		b.WriteString("\n## Failed\n\n")
		b.WriteString("| # | Code | Reason |\n")
		b.WriteString("|---|---|---|\n")
		for _, f := range r.Failed {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", f.Index+1, f.Code, escape(f.Reason))
		}
	}
	return b.String()
}

// HTML renders the Markdown form to an HTML fragment.
func HTML(r *domain.Report) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(r)), &buf); err != nil {
		return "", fmt.Errorf("report: html: %w", err)
	}
	return buf.String(), nil
}

func link(url string) string {
	if url == "" {
		return "-"
	}
	return fmt.Sprintf("[video](%s)", url)
}

// escape keeps free text from breaking table cells.
func escape(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

package report

import (
	"context"
	"fmt"
	"path"
	"time"

	"creativegen/internal/domain"
	"creativegen/pkg/zip"
)

// Writer stores one artifact and returns its canonical key.
type Writer interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

// Artifact is one rendered form of a report.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Artifacts renders report.json, report.md and report.html, in that order.
func Artifacts(r *domain.Report) ([]Artifact, error) {
	jsonBody, err := JSON(r)
	if err != nil {
		return nil, err
	}
	htmlBody, err := HTML(r)
	if err != nil {
		return nil, err
	}
	return []Artifact{
		{Name: "report.json", ContentType: "application/json", Data: jsonBody},
		{Name: "report.md", ContentType: "text/markdown; charset=utf-8", Data: []byte(Markdown(r))},
		{Name: "report.html", ContentType: "text/html; charset=utf-8", Data: []byte(htmlBody)},
	}, nil
}

// WriteArtifacts stores every artifact under prefix and returns the written
// keys in artifact order.
func WriteArtifacts(ctx context.Context, w Writer, prefix string, r *domain.Report) ([]string, error) {
	files, err := Artifacts(r)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(files))
	for _, f := range files {
		key, err := w.Write(ctx, path.Join(prefix, f.Name), f.Data)
		if err != nil {
			return keys, fmt.Errorf("report: write %s: %w", f.Name, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Bundle packs every artifact into one zip archive.
func Bundle(r *domain.Report, modified time.Time) ([]byte, error) {
	files, err := Artifacts(r)
	if err != nil {
		return nil, err
	}
	members := make([]zip.File, 0, len(files))
	for _, f := range files {
		members = append(members, zip.File{Name: f.Name, Modified: modified, Data: f.Data})
	}
	out, err := zip.Archive(members)
	if err != nil {
		return nil, fmt.Errorf("report: bundle: %w", err)
	}
	return out, nil
}

// Package media checks that a request's source media is usable before any
// remote generation is attempted.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"creativegen/internal/domain"
	"creativegen/internal/infra"
)

const (
	MinDurationSeconds = 1.0
	MaxDurationSeconds = 600.0
	// MinShortSide is the smallest accepted frame height (or width for
	// portrait footage).
	MinShortSide = 480
)

// AllowedCodecs lists the video codecs the remote service ingests.
var AllowedCodecs = []string{"h264", "hevc", "vp9", "av1"}

// Validator reports problems with a source media reference. Problems are
// returned as a ValidationError listing every issue.
type Validator interface {
	Validate(ctx context.Context, source string) error
}

// Info is the subset of ffprobe output the checks use.
type Info struct {
	DurationSeconds float64
	Width           int
	Height          int
	Codec           string
}

// CommandRunner runs a binary and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ProbeOptions configures a Probe.
type ProbeOptions struct {
	Binary string
	Runner CommandRunner
	Logger *infra.Logger
}

// Probe inspects local files with ffprobe.
type Probe struct {
	binary string
	run    CommandRunner
	logger *infra.Logger
}

func NewProbe(opts ProbeOptions) *Probe {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "ffprobe"
	}
	run := opts.Runner
	if run == nil {
		run = runCommand
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Probe{binary: binary, run: run, logger: logger}
}

func (p *Probe) Validate(ctx context.Context, source string) error {
	if _, err := os.Stat(source); err != nil {
		return domain.Errorf(domain.KindValidation, "media", "source media %q is not readable: %v", source, err)
	}
	info, err := p.Inspect(ctx, source)
	if err != nil {
		return domain.Wrap(domain.KindValidation, "media", err)
	}
	p.logger.Debug().
		Str("source", source).
		Float64("duration", info.DurationSeconds).
		Int("width", info.Width).
		Int("height", info.Height).
		Str("codec", info.Codec).
		Msg("media: probed")
	return Check(info)
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Inspect runs ffprobe against source and extracts the first video stream.
func (p *Probe) Inspect(ctx context.Context, source string) (Info, error) {
	out, err := p.run(ctx, p.binary, "-v", "error", "-print_format", "json", "-show_format", "-show_streams", source)
	if err != nil {
		return Info{}, fmt.Errorf("media: ffprobe: %w", err)
	}
	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return Info{}, fmt.Errorf("media: parse ffprobe output: %w", err)
	}
	var info Info
	found := false
	for _, s := range parsed.Streams {
		if s.CodecType == "video" {
			info.Width, info.Height, info.Codec = s.Width, s.Height, s.CodecName
			found = true
			break
		}
	}
	if !found {
		return Info{}, errors.New("media: no video stream")
	}
	if parsed.Format.Duration != "" {
		d, err := strconv.ParseFloat(parsed.Format.Duration, 64)
		if err != nil {
			return Info{}, fmt.Errorf("media: parse duration %q: %w", parsed.Format.Duration, err)
		}
		info.DurationSeconds = d
	}
	return info, nil
}

// Check applies the duration, resolution and codec rules to probed info.
func Check(info Info) error {
	var problems []string
	if info.DurationSeconds < MinDurationSeconds || info.DurationSeconds > MaxDurationSeconds {
		problems = append(problems, fmt.Sprintf("duration %.1fs outside %.0f-%.0fs", info.DurationSeconds, MinDurationSeconds, MaxDurationSeconds))
	}
	short := min(info.Width, info.Height)
	if short < MinShortSide {
		problems = append(problems, fmt.Sprintf("resolution %dx%d below %dp", info.Width, info.Height, MinShortSide))
	}
	if !allowedCodec(info.Codec) {
		problems = append(problems, fmt.Sprintf("codec %q not supported", info.Codec))
	}
	if len(problems) > 0 {
		return &domain.Error{Kind: domain.KindValidation, Op: "media", Message: "source media rejected", Details: problems}
	}
	return nil
}

func allowedCodec(codec string) bool {
	codec = strings.ToLower(strings.TrimSpace(codec))
	for _, c := range AllowedCodecs {
		if c == codec {
			return true
		}
	}
	return false
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// Remote accepts http(s) references without downloading them; the remote
// service fetches and checks them itself.
type Remote struct{}

func (Remote) Validate(_ context.Context, source string) error {
	u, err := url.Parse(source)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.Errorf(domain.KindValidation, "media", "source media %q is not an http(s) url", source)
	}
	return nil
}

// Auto sends URLs to Remote and everything else to Probe.
type Auto struct {
	Probe  Validator
	Remote Validator
}

func (a Auto) Validate(ctx context.Context, source string) error {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return a.Remote.Validate(ctx, source)
	}
	return a.Probe.Validate(ctx, source)
}

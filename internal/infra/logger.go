package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging type passed between packages.
type Logger = zerolog.Logger

// LogOptions selects level, sink and service tag for a process logger.
type LogOptions struct {
	Env string
	// Level overrides the env default when it names a zerolog level.
	Level   string
	Service string
	// Out defaults to stdout.
	Out io.Writer
}

// NewLogger builds the process logger. Development gets debug output on a
// console writer; every other env logs JSON at info.
func NewLogger(opts LogOptions) Logger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.Env == "development" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lctx := zerolog.New(out).Level(logLevel(opts.Env, opts.Level)).With().Timestamp()
	if opts.Service != "" {
		lctx = lctx.Str("service", opts.Service)
	}
	return lctx.Logger()
}

func logLevel(env, override string) zerolog.Level {
	if override = strings.ToLower(strings.TrimSpace(override)); override != "" {
		if l, err := zerolog.ParseLevel(override); err == nil && l != zerolog.NoLevel {
			return l
		}
	}
	if env == "development" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

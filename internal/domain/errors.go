package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
)

// Kind tags an error with its place in the generation error taxonomy. Retry
// decisions and per-item failure codes are derived from the kind, never from
// message text.
type Kind string

const (
	KindUnknown           Kind = "Unknown"
	KindValidation        Kind = "ValidationError"
	KindPolicyViolation   Kind = "PolicyViolation"
	KindRateLimitExceeded Kind = "RateLimitExceeded"
	KindAPITimeout        Kind = "APITimeout"
	KindGenerationFailed  Kind = "GenerationFailed"
	KindQualityTooLow     Kind = "QualityTooLow"
	KindConfiguration     Kind = "ConfigurationError"
	KindUnknownRemote     Kind = "UnknownRemoteError"
)

// Error is the tagged error used across the pipeline.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Details, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a tagged error with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of the outermost tagged error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

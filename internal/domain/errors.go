package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a case was modified since it was read.
	ErrConflict = errors.New("case modified concurrently")

	ErrValidation      = errors.New("validation failure")
	ErrNetwork         = errors.New("network failure")
	ErrUpstream        = errors.New("upstream failure")
	ErrMalformedOutput = errors.New("malformed model output")
	ErrSchemaViolation = errors.New("schema violation")
)

// FailureKind tags a Failure.
type FailureKind string

const (
	FailureValidation      FailureKind = "validation"
	FailureNetwork         FailureKind = "network"
	FailureUpstream        FailureKind = "upstream"
	FailureMalformedOutput FailureKind = "malformed_model_output"
	FailureSchemaViolation FailureKind = "schema_violation"
)

// Failure is the error every pipeline stage returns. Only the fields that
// belong to its Kind are populated.
type Failure struct {
	Kind    FailureKind
	Stage   string
	Message string

	// upstream / network
	StatusCode int
	Body       string
	Timeout    bool

	// malformed output
	Raw     string
	Cleaned string

	// schema violation
	Missing []string
	Parsed  any

	Err error
}

func (f *Failure) Error() string {
	var sb strings.Builder
	if f.Stage != "" {
		sb.WriteString(f.Stage)
		sb.WriteString(": ")
	}
	sb.WriteString(string(f.Kind))
	if f.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(f.Message)
	}
	if f.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", f.StatusCode)
	}
	if len(f.Missing) > 0 {
		fmt.Fprintf(&sb, " (missing %s)", strings.Join(f.Missing, ", "))
	}
	if f.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(f.Err.Error())
	}
	return sb.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// Is lets errors.Is match a Failure against the per-kind sentinels.
func (f *Failure) Is(target error) bool {
	switch target {
	case ErrValidation:
		return f.Kind == FailureValidation
	case ErrNetwork:
		return f.Kind == FailureNetwork
	case ErrUpstream:
		return f.Kind == FailureUpstream
	case ErrMalformedOutput:
		return f.Kind == FailureMalformedOutput
	case ErrSchemaViolation:
		return f.Kind == FailureSchemaViolation
	}
	return false
}

// WithStage returns a copy of f attributed to stage, keeping an existing stage.
func (f *Failure) WithStage(stage string) *Failure {
	out := *f
	if out.Stage == "" {
		out.Stage = stage
	}
	return &out
}

// AsFailure extracts a Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func NewValidationFailure(format string, args ...any) *Failure {
	return &Failure{Kind: FailureValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNetworkFailure(err error) *Failure {
	return &Failure{Kind: FailureNetwork, Message: "provider unreachable", Err: err}
}

func NewUpstreamFailure(statusCode int, body string) *Failure {
	return &Failure{Kind: FailureUpstream, Message: "provider returned an error", StatusCode: statusCode, Body: body}
}

func NewTimeoutFailure(err error) *Failure {
	return &Failure{Kind: FailureUpstream, Message: "provider call timed out", Timeout: true, Err: err}
}

func NewEmptyCompletionFailure(body string) *Failure {
	return &Failure{Kind: FailureUpstream, Message: "provider returned no completion", Body: body}
}

func NewMalformedOutputFailure(raw, cleaned string, err error) *Failure {
	return &Failure{Kind: FailureMalformedOutput, Message: "no recoverable JSON in model output", Raw: raw, Cleaned: cleaned, Err: err}
}

func NewSchemaViolation(parsed any, missing []string, message string) *Failure {
	return &Failure{Kind: FailureSchemaViolation, Message: message, Parsed: parsed, Missing: missing}
}

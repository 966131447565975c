package llm

import (
	"github.com/rs/zerolog"
)

// CallEvent records metadata about a single model invocation.
type CallEvent struct {
	Stage       string
	Provider    Provider
	Model       string
	LatencyMs   int64
	Success     bool
	FailureKind string
	StatusCode  int
}

// Observer receives events about model calls.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}

// LogObserver writes call events through zerolog.
type LogObserver struct {
	logger zerolog.Logger
}

func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger.With().Str("component", "llm").Logger()}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	evt := o.logger.Info()
	if !event.Success {
		evt = o.logger.Warn().Str("failure_kind", event.FailureKind)
		if event.StatusCode != 0 {
			evt = evt.Int("status_code", event.StatusCode)
		}
	}
	evt.Str("stage", event.Stage).
		Str("provider", string(event.Provider)).
		Str("model", event.Model).
		Int64("latency_ms", event.LatencyMs).
		Bool("success", event.Success).
		Msg("llm call complete")
}

package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging contract packages depend on.
type Logger = zerolog.Logger

// NewLogger builds the process logger: JSON on stdout, or a console writer at
// debug level in development.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", "caf-copilot").
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return logger
}

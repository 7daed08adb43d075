package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process-wide zerolog.Logger. Development runs get a
// human-readable console writer and debug level; everything else emits JSON
// at info level.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return logger
}

// Logger aliases zerolog.Logger so the rest of the module can take a logger
// without importing the third-party package directly.
type Logger = zerolog.Logger

package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds the process logger from ENV and LOG_LEVEL. component names the
// binary (api, orchestrator, astractl) so Cloud Logging can filter on it.
func New(component string) zerolog.Logger {
	return NewWithWriter(os.Stderr, component, os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
}

func NewWithWriter(w io.Writer, component, env, level string) zerolog.Logger {
	// Cloud Logging reads the level from "severity".
	zerolog.LevelFieldName = "severity"
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", component).Logger()
}

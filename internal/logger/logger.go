// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup sets the global level from levelName (unknown or empty means info) and
// replaces the global logger with a JSON logger on stdout that carries the service name.
// Hooks (e.g. the OTel log bridge) are attached to every event.
func Setup(levelName, service string, hooks ...zerolog.Hook) zerolog.Logger {
	return setup(os.Stdout, levelName, service, hooks...)
}

func setup(w io.Writer, levelName, service string, hooks ...zerolog.Hook) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(levelName))
	zerolog.TimeFieldFormat = time.RFC3339Nano

	l := zerolog.New(w).With().Timestamp().Str("service", service).Logger()
	for _, h := range hooks {
		l = l.Hook(h)
	}
	log.Logger = l
	zerolog.DefaultContextLogger = &log.Logger
	return l
}

// ParseLevel maps a level name to a zerolog level. Returns InfoLevel for unknown names.
func ParseLevel(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

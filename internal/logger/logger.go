package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the process logger. Development gets a console writer at debug
// level, every other environment JSON lines at info level.
func New(env string) zerolog.Logger {
	return newWithWriter(env, os.Stdout)
}

func newWithWriter(env string, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	var w io.Writer = out

	if env == "development" {
		level = zerolog.DebugLevel
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "usersapi").Logger()
}

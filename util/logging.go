package util

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	Logger zerolog.Logger = zerolog.Nop()
)

func ParseLevel(inlevel string) zerolog.Level {
	switch strings.ToLower(inlevel) {
	case "debug":
		return zerolog.DebugLevel
	case "trace":
		return zerolog.TraceLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger builds a logger writing to w. format "json" writes raw JSON
// lines, anything else goes through the console writer.
func NewLogger(w io.Writer, inlevel, format string) zerolog.Logger {
	if strings.ToLower(format) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(ParseLevel(inlevel)).With().Timestamp().Caller().Logger()
}

func LogInit(inlevel string) {
	Logger = NewLogger(os.Stderr, inlevel, Config.GetString("log_format"))
	Logger.Info().Msgf("logging initialized at level %v", Logger.GetLevel())
}

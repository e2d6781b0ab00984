package telemetry

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the package-wide structured logger the venue adapters write
// through; the kernel transports record metrics only. It defaults to a human-readable console
// writer in development and can be swapped (via SetLogger) for a plain
// JSON writer in production.
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	With().
	Timestamp().
	Logger()

// SetLogger replaces the package-wide logger, e.g. with a JSON logger
// for production deployments where log aggregation parses structured
// fields rather than the console format.
func SetLogger(l zerolog.Logger) {
	Logger = l
}

// NewJSONLogger builds a plain JSON zerolog.Logger at the given level,
// suitable for production via SetLogger(telemetry.NewJSONLogger(...)).
func NewJSONLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

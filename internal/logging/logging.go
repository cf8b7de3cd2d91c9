// Package logging builds the process-wide zerolog logger and the event
// sink used by the remote call pipeline. The log level is decided once at
// startup and the logger is injected into every component; nothing flips
// logging on or off at runtime.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing human-readable output to w at the given
// level. Unknown level strings fall back to "info".
func New(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// EventSink receives structured events from the retrying remote caller.
// Implementations must be safe for sequential use within one call; the
// caller never invokes the sink concurrently.
type EventSink interface {
	AttemptStarted(attempt, totalAttempts int, endpoint string)
	AttemptFailed(attempt int, reason string, delay time.Duration)
	AttemptSucceeded(attempt, status int, duration time.Duration)
}

type zerologSink struct {
	log zerolog.Logger
}

// NewEventSink returns an EventSink that emits each event through the
// given logger.
func NewEventSink(log zerolog.Logger) EventSink {
	return &zerologSink{log: log}
}

func (s *zerologSink) AttemptStarted(attempt, totalAttempts int, endpoint string) {
	s.log.Info().
		Int("attempt", attempt).
		Int("total_attempts", totalAttempts).
		Str("endpoint", endpoint).
		Msg("Starting generation attempt")
}

func (s *zerologSink) AttemptFailed(attempt int, reason string, delay time.Duration) {
	s.log.Warn().
		Int("attempt", attempt).
		Str("reason", reason).
		Dur("backoff", delay).
		Msg("Generation attempt failed")
}

func (s *zerologSink) AttemptSucceeded(attempt, status int, duration time.Duration) {
	s.log.Info().
		Int("attempt", attempt).
		Int("status", status).
		Dur("duration", duration).
		Msg("Generation attempt succeeded")
}

// NopSink discards all events. Useful in tests.
type NopSink struct{}

func (NopSink) AttemptStarted(int, int, string) {}

func (NopSink) AttemptFailed(int, string, time.Duration) {}

func (NopSink) AttemptSucceeded(int, int, time.Duration) {}

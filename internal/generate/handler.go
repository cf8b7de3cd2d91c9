// Package generate turns a captured post into a ready-to-post comment. It
// builds the prompt, drives the retrying remote caller and maps every
// failure to a short human-readable reason the UI can surface as-is.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/commentpilot/internal/normalize"
	"github.com/commentpilot/internal/remote"
)

const (
	defaultMaxRetries     = 2
	defaultAttemptTimeout = 10 * time.Second
)

// Request carries the inputs for one generation attempt. It is built
// fresh per attempt and never persisted.
type Request struct {
	Content string `json:"content"`
	Hint    string `json:"hint,omitempty"`
	Tone    Tone   `json:"tone,omitempty"`
}

// Result is the terminal value handed back to the caller: either a
// trimmed non-empty comment or a user-facing failure reason.
type Result struct {
	Success bool   `json:"success"`
	Comment string `json:"comment,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Failure builds a failed Result with the given reason.
func Failure(reason string) Result {
	return Result{Reason: reason}
}

// RemoteCaller is the retrying HTTP exchange the handler delegates to.
type RemoteCaller interface {
	Call(ctx context.Context, prompt string, maxRetries int, perAttemptTimeout time.Duration) (string, error)
}

// Handler implements the generation pipeline: prompt → remote call →
// normalization.
type Handler struct {
	caller         RemoteCaller
	maxRetries     int
	attemptTimeout time.Duration
	log            zerolog.Logger
}

// NewHandler builds a Handler with the standard retry budget of two
// retries and a ten second per-attempt deadline.
func NewHandler(caller RemoteCaller, log zerolog.Logger) *Handler {
	return NewHandlerWithBudget(caller, defaultMaxRetries, defaultAttemptTimeout, log)
}

// NewHandlerWithBudget builds a Handler with an explicit retry budget.
func NewHandlerWithBudget(caller RemoteCaller, maxRetries int, attemptTimeout time.Duration, log zerolog.Logger) *Handler {
	return &Handler{
		caller:         caller,
		maxRetries:     maxRetries,
		attemptTimeout: attemptTimeout,
		log:            log,
	}
}

// Generate runs one generation request end to end.
func (h *Handler) Generate(ctx context.Context, req Request) Result {
	if strings.TrimSpace(req.Content) == "" {
		return Failure("No post content to comment on")
	}

	prompt := BuildPrompt(req)
	h.log.Debug().Int("prompt_bytes", len(prompt)).Str("tone", string(req.Tone)).Msg("Dispatching generation request")

	payload, err := h.caller.Call(ctx, prompt, h.maxRetries, h.attemptTimeout)
	if err != nil {
		reason := reasonFor(err)
		h.log.Warn().Err(err).Str("reason", reason).Msg("Generation request failed")
		return Failure(reason)
	}

	comment, err := normalize.Extract(payload)
	if err != nil {
		h.log.Warn().Err(err).Msg("Could not extract comment from payload")
		return Failure(err.Error())
	}

	return Result{Success: true, Comment: comment}
}

// BuildPrompt assembles the natural-language instruction sent to the
// generation service. The tone clause is omitted for the default tone.
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Write a comment to post on the following social media post:\n\n")
	b.WriteString(strings.TrimSpace(req.Content))
	b.WriteString("\n\n")

	if hint := strings.TrimSpace(req.Hint); hint != "" {
		fmt.Fprintf(&b, "Take this guidance from the commenter into account: %s\n", hint)
	}

	if req.Tone != "" && req.Tone != DefaultTone {
		fmt.Fprintf(&b, "The tone of the comment should be %s.\n", req.Tone)
	}

	b.WriteString("Do not use any markup or formatting in the comment. Keep it concise and conversational.")
	return b.String()
}

// reasonFor maps an error from the remote caller to the message shown to
// the user.
func reasonFor(err error) string {
	var timeoutErr *remote.TimeoutError
	var statusErr *remote.StatusError
	var transportErr *remote.TransportError

	switch {
	case errors.As(err, &timeoutErr):
		return "API request timed out"
	case errors.As(err, &statusErr):
		return fmt.Sprintf("API error: %d %s - %s", statusErr.Code, statusErr.Status, statusErr.Body)
	case errors.As(err, &transportErr):
		return fmt.Sprintf("Network error: %v", transportErr.Err)
	default:
		return err.Error()
	}
}

// Package remote issues generation requests against the text-generation
// endpoint. One logical call becomes up to MaxRetries+1 physical attempts,
// each under its own deadline, with exponential backoff in between.
// Transport failures and timeouts are retried; a non-success status is
// assumed deterministic for the same payload and fails the call at once.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/commentpilot/internal/logging"
	"github.com/commentpilot/internal/retry"
)

const acceptHeader = "application/json, text/plain, */*"

// Caller performs the retrying HTTP exchange. It holds no state beyond a
// single call's lifetime; the same Caller may serve many calls.
type Caller struct {
	httpClient *http.Client
	endpoint   string
	modelKey   string
	backoff    retry.Config
	sink       logging.EventSink
	log        zerolog.Logger
}

// Options configures a Caller. Endpoint and ModelKey are required; the
// rest default to sane values.
type Options struct {
	Endpoint   string
	ModelKey   string
	HTTPClient *http.Client
	Backoff    retry.Config
	Sink       logging.EventSink
	Logger     zerolog.Logger
}

// NewCaller builds a Caller from options.
func NewCaller(opts Options) *Caller {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	backoff := opts.Backoff
	if backoff.BaseDelay == 0 {
		backoff = retry.RemoteCallConfig()
	}

	var sink logging.EventSink = logging.NopSink{}
	if opts.Sink != nil {
		sink = opts.Sink
	}

	return &Caller{
		httpClient: httpClient,
		endpoint:   opts.Endpoint,
		modelKey:   opts.ModelKey,
		backoff:    backoff,
		sink:       sink,
		log:        opts.Logger,
	}
}

// Call sends the prompt as {"<model-key>": "<prompt>"} and returns the
// raw payload text on success. maxRetries bounds the retries after the
// first attempt; each attempt runs under its own perAttemptTimeout.
func (c *Caller) Call(ctx context.Context, prompt string, maxRetries int, perAttemptTimeout time.Duration) (string, error) {
	body, err := json.Marshal(map[string]string{c.modelKey: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	cfg := c.backoff
	cfg.MaxRetries = maxRetries

	var payload string
	attempt := 0

	result := retry.WithBackoff(ctx, cfg, func() (error, string) {
		idx := attempt
		attempt++

		c.sink.AttemptStarted(idx+1, cfg.MaxRetries+1, c.endpoint)

		attemptErr, reason := c.attempt(ctx, idx, body, perAttemptTimeout, &payload)
		if attemptErr != nil && !retry.IsUnrecoverable(attemptErr) {
			c.sink.AttemptFailed(idx+1, reason, retry.Delay(cfg, idx))
		}
		return attemptErr, reason
	})

	if !result.Success {
		return "", result.LastError
	}
	return payload, nil
}

// attempt performs one physical exchange. The payload pointer is filled
// on success.
func (c *Caller) attempt(ctx context.Context, idx int, body []byte, timeout time.Duration, payload *string) (error, string) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return retry.Stop(fmt.Errorf("failed to build request: %w", err)), "build_request"
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", acceptHeader)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classify(ctx, attemptCtx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.classify(ctx, attemptCtx, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		statusText := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprintf("%d", resp.StatusCode)))
		return retry.Stop(&StatusError{
			Code:   resp.StatusCode,
			Status: statusText,
			Body:   strings.TrimSpace(string(raw)),
		}), "status"
	}

	c.sink.AttemptSucceeded(idx+1, resp.StatusCode, time.Since(start))
	*payload = c.decodePayload(string(raw))
	return nil, "success"
}

// classify sorts a failed exchange into the retry taxonomy. An attempt
// deadline is a TimeoutError; cancellation of the outer context stops the
// whole call; everything else is a TransportError.
func (c *Caller) classify(ctx, attemptCtx context.Context, err error) (error, string) {
	if ctx.Err() == context.Canceled {
		return retry.Stop(ctx.Err()), "canceled"
	}

	var ne net.Error
	timedOut := errors.Is(err, context.DeadlineExceeded) ||
		attemptCtx.Err() == context.DeadlineExceeded ||
		(errors.As(err, &ne) && ne.Timeout())
	if timedOut {
		return &TimeoutError{Err: err}, "timeout"
	}
	return &TransportError{Err: err}, "transport"
}

// decodePayload salvages structure from the response body. Valid JSON
// passes through; near-JSON is run through jsonrepair; anything else is
// treated as a plain-text payload, which this service legitimately
// produces.
func (c *Caller) decodePayload(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if gjson.Valid(trimmed) {
		return trimmed
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if repaired, err := jsonrepair.JSONRepair(trimmed); err == nil && gjson.Valid(repaired) {
			c.log.Debug().
				Int("original_bytes", len(trimmed)).
				Int("repaired_bytes", len(repaired)).
				Msg("Repaired malformed JSON payload")
			return repaired
		}
	}

	return trimmed
}

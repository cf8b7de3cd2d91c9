// Package ui holds the popup-side coordinator: the state machine that
// sequences "fetch selected post" → "generate" → "review / copy / post"
// against the page agent and the background dispatcher.
package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/commentpilot/internal/clipboard"
	"github.com/commentpilot/internal/dispatch"
	"github.com/commentpilot/internal/generate"
	"github.com/commentpilot/internal/page"
)

// State is the coordinator's position in the review cycle.
type State int

const (
	StateIdle State = iota
	StatePostSelected
	StateGenerating
	StateReviewing
	StatePosting
	StateCopying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePostSelected:
		return "post_selected"
	case StateGenerating:
		return "generating"
	case StateReviewing:
		return "reviewing"
	case StatePosting:
		return "posting"
	case StateCopying:
		return "copying"
	default:
		return "unknown"
	}
}

// ErrNoPostSelected is returned when generation is requested without a
// captured post.
var ErrNoPostSelected = errors.New("no post selected")

// Coordinator drives one review cycle at a time. It is single-threaded by
// design: the popup owns it and calls it from one goroutine only. The
// captured post and the staged comment survive failures so the user can
// retry without re-detection.
type Coordinator struct {
	agent page.Agent
	inbox chan<- dispatch.Message
	clip  clipboard.Clipboard
	log   zerolog.Logger

	state         State
	post          *page.Post
	staged        string
	lastErr       string
	hint          string
	tone          generate.Tone
	generatedOnce bool
}

// NewCoordinator wires the popup to its collaborators. inbox is the
// dispatcher's message channel.
func NewCoordinator(agent page.Agent, inbox chan<- dispatch.Message, clip clipboard.Clipboard, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		agent: agent,
		inbox: inbox,
		clip:  clip,
		log:   log,
		state: StateIdle,
		tone:  generate.DefaultTone,
	}
}

func (c *Coordinator) State() State { return c.state }

func (c *Coordinator) CurrentPost() *page.Post { return c.post }

func (c *Coordinator) StagedComment() string { return c.staged }

func (c *Coordinator) LastError() string { return c.lastErr }

// SetHint records guidance applied to the next generation.
func (c *Coordinator) SetHint(hint string) { c.hint = hint }

// SetTone records the tone applied to the next generation.
func (c *Coordinator) SetTone(tone generate.Tone) { c.tone = tone }

// DetectPost captures the currently selected post from the page agent.
// On the first successful detection it immediately starts a generation;
// afterwards generation is explicit. Failure leaves the coordinator in
// Idle with the error surfaced.
func (c *Coordinator) DetectPost(ctx context.Context) error {
	post, err := c.agent.SelectedPost(ctx)
	if err != nil {
		c.state = StateIdle
		c.lastErr = err.Error()
		return err
	}

	// Replaced wholesale on re-detection, never mutated in place.
	c.post = post
	c.state = StatePostSelected
	c.lastErr = ""
	c.log.Info().Int("content_bytes", len(post.Text)).Msg("Post selected")

	if !c.generatedOnce {
		return c.Generate(ctx)
	}
	return nil
}

// Generate asks the dispatcher for a comment on the held post. From
// Reviewing this is a regeneration: the staged comment is discarded and
// the same post is resubmitted with the current hint and tone. On failure
// the post is preserved and the state returns to PostSelected.
func (c *Coordinator) Generate(ctx context.Context) error {
	if c.post == nil {
		return ErrNoPostSelected
	}

	c.staged = ""
	c.state = StateGenerating
	c.generatedOnce = true

	msg := dispatch.NewMessage(dispatch.ActionGenerateComment, map[string]any{
		"content": c.post.Text,
		"hint":    c.hint,
		"tone":    string(c.tone),
	})

	select {
	case c.inbox <- msg:
	case <-ctx.Done():
		c.state = StatePostSelected
		c.lastErr = ctx.Err().Error()
		return ctx.Err()
	}

	// A torn-down popup context abandons the wait here; the dispatcher's
	// eventual response lands in the buffered reply and is discarded.
	select {
	case resp := <-msg.Reply:
		if !resp.Success {
			c.state = StatePostSelected
			c.lastErr = resp.Reason
			return errors.New(resp.Reason)
		}
		c.staged = commentFromResult(resp.Result)
		c.state = StateReviewing
		c.lastErr = ""
		return nil
	case <-ctx.Done():
		c.state = StatePostSelected
		c.lastErr = ctx.Err().Error()
		return ctx.Err()
	}
}

// Copy puts the staged comment on the shared clipboard. Copying is a
// transient visual state; the coordinator always returns to Reviewing.
func (c *Coordinator) Copy() error {
	if c.state != StateReviewing || c.staged == "" {
		return fmt.Errorf("nothing staged to copy in state %s", c.state)
	}

	c.state = StateCopying
	err := c.clip.Write(c.staged)
	c.state = StateReviewing

	if err != nil {
		c.lastErr = err.Error()
		return err
	}
	c.lastErr = ""
	return nil
}

// PostComment delegates posting to the page agent. Success closes the
// interaction and resets to Idle; failure keeps the staged comment so the
// user can retry or copy manually.
func (c *Coordinator) PostComment(ctx context.Context) error {
	if c.state != StateReviewing || c.staged == "" {
		return fmt.Errorf("nothing staged to post in state %s", c.state)
	}

	c.state = StatePosting
	if err := c.agent.PostComment(ctx, c.staged); err != nil {
		c.state = StateReviewing
		c.lastErr = err.Error()
		return err
	}

	c.log.Info().Msg("Comment posted")
	c.post = nil
	c.staged = ""
	c.lastErr = ""
	c.generatedOnce = false
	c.state = StateIdle
	return nil
}

// commentFromResult digs the comment text out of a dispatcher response.
// The result arrives as a map whether it crossed a channel or the HTTP
// surface.
func commentFromResult(result any) string {
	switch v := result.(type) {
	case map[string]string:
		return v["comment"]
	case map[string]any:
		if s, ok := v["comment"].(string); ok {
			return s
		}
	}
	return ""
}

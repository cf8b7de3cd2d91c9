// Package dispatch is the background dispatcher: it routes action
// messages from the popup and the page agent to their handlers and
// guarantees exactly one response per message, whatever the handler does.
package dispatch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/commentpilot/internal/clipboard"
	"github.com/commentpilot/internal/generate"
)

// CommentGenerator produces a comment for a generation request.
type CommentGenerator interface {
	Generate(ctx context.Context, req generate.Request) generate.Result
}

// Info is the static identity reported for getExtensionInfo.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Router maps inbound actions to handlers. It is stateless across
// messages; no action's outcome depends on any prior action.
type Router struct {
	generator CommentGenerator
	clip      clipboard.Clipboard
	info      Info
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// NewRouter builds a router. generationsPerMinute caps how fast
// generateComment reaches the remote service; zero or negative means
// unlimited.
func NewRouter(generator CommentGenerator, clip clipboard.Clipboard, info Info, generationsPerMinute int, log zerolog.Logger) *Router {
	limit := rate.Inf
	if generationsPerMinute > 0 {
		limit = rate.Limit(float64(generationsPerMinute) / 60.0)
	}
	return &Router{
		generator: generator,
		clip:      clip,
		info:      info,
		limiter:   rate.NewLimiter(limit, 1),
		log:       log,
	}
}

// Serve consumes messages from inbox until ctx is done or the channel is
// closed. Each message is handled in its own goroutine so a slow
// generation never blocks the next message.
func (r *Router) Serve(ctx context.Context, inbox <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbox:
			if !ok {
				return
			}
			go r.Handle(ctx, msg)
		}
	}
}

// Handle routes one message and delivers its single response. The reply
// channel stays open across the whole asynchronous chain and is closed
// only after the response is parked in its buffer, so a caller that is
// already gone loses nothing but the response itself.
func (r *Router) Handle(ctx context.Context, msg Message) {
	resp := r.dispatch(ctx, msg)
	resp.ID = msg.ID

	msg.Reply <- resp
	close(msg.Reply)
}

// dispatch computes the response for a message. A panicking handler is
// converted into a failure response so the caller is never left waiting.
func (r *Router) dispatch(ctx context.Context, msg Message) (resp Response) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Interface("panic", rec).
				Str("action", string(msg.Action)).
				Str("message_id", msg.ID).
				Msg("Action handler panicked")
			resp = Response{Success: false, Reason: fmt.Sprintf("internal error: %v", rec)}
		}
	}()

	r.log.Debug().Str("action", string(msg.Action)).Str("message_id", msg.ID).Msg("Dispatching action")

	switch msg.Action {
	case ActionCheckPermissions:
		return r.checkPermissions()
	case ActionGetExtensionInfo:
		return Response{Success: true, Result: r.info}
	case ActionGenerateComment:
		return r.generateComment(ctx, msg.Payload)
	default:
		return Response{Success: false, Reason: fmt.Sprintf("unknown action: %s", msg.Action)}
	}
}

func (r *Router) checkPermissions() Response {
	if err := r.clip.Probe(); err != nil {
		return Response{Success: false, Reason: err.Error()}
	}
	return Response{Success: true, Result: map[string]bool{"clipboard": true}}
}

func (r *Router) generateComment(ctx context.Context, payload map[string]any) Response {
	if err := r.limiter.Wait(ctx); err != nil {
		return Response{Success: false, Reason: fmt.Sprintf("request aborted: %v", err)}
	}

	req := generate.Request{
		Content: stringField(payload, "content"),
		Hint:    stringField(payload, "hint"),
		Tone:    generate.ParseTone(stringField(payload, "tone")),
	}

	result := r.generator.Generate(ctx, req)
	if !result.Success {
		return Response{Success: false, Reason: result.Reason}
	}
	return Response{Success: true, Result: map[string]string{"comment": result.Comment}}
}

func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if value, ok := payload[key].(string); ok {
		return value
	}
	return ""
}

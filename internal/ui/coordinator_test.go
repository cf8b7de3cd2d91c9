package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commentpilot/internal/dispatch"
	"github.com/commentpilot/internal/generate"
	"github.com/commentpilot/internal/page"
)

type fakeAgent struct {
	post      *page.Post
	selectErr error
	postErr   error
	posted    []string
}

func (f *fakeAgent) SelectedPost(context.Context) (*page.Post, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	return f.post, nil
}

func (f *fakeAgent) PostComment(_ context.Context, comment string) error {
	if f.postErr != nil {
		return f.postErr
	}
	f.posted = append(f.posted, comment)
	return nil
}

type fakeClipboard struct {
	writeErr error
	written  []string
}

func (f *fakeClipboard) Write(text string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, text)
	return nil
}

func (f *fakeClipboard) Probe() error { return f.writeErr }

type fakeGenerator struct {
	results []generate.Result
	reqs    []generate.Request
	block   chan struct{}
}

func (f *fakeGenerator) Generate(_ context.Context, req generate.Request) generate.Result {
	if f.block != nil {
		<-f.block
	}
	f.reqs = append(f.reqs, req)
	idx := len(f.reqs) - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	return f.results[idx]
}

// newHarness wires a coordinator to a real dispatcher loop backed by a
// fake generator.
func newHarness(t *testing.T, agent *fakeAgent, clip *fakeClipboard, gen *fakeGenerator) *Coordinator {
	t.Helper()

	router := dispatch.NewRouter(gen, clip, dispatch.Info{Name: "commentpilot", Version: "test"}, 0, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	inbox := make(chan dispatch.Message)
	go router.Serve(ctx, inbox)

	return NewCoordinator(agent, inbox, clip, zerolog.Nop())
}

func TestDetectPost_AutoGeneratesFirstTime(t *testing.T) {
	agent := &fakeAgent{post: &page.Post{Text: "We shipped v2 today."}}
	gen := &fakeGenerator{results: []generate.Result{{Success: true, Comment: "Congrats on the launch!"}}}
	c := newHarness(t, agent, &fakeClipboard{}, gen)

	require.NoError(t, c.DetectPost(context.Background()))
	assert.Equal(t, StateReviewing, c.State())
	assert.Equal(t, "Congrats on the launch!", c.StagedComment())
	require.Len(t, gen.reqs, 1)
	assert.Equal(t, "We shipped v2 today.", gen.reqs[0].Content)
}

func TestDetectPost_FailureStaysIdle(t *testing.T) {
	agent := &fakeAgent{selectErr: errors.New("no eligible post: not on the feed page")}
	c := newHarness(t, agent, &fakeClipboard{}, &fakeGenerator{results: []generate.Result{{}}})

	err := c.DetectPost(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateIdle, c.State())
	assert.Contains(t, c.LastError(), "no eligible post")
	assert.Nil(t, c.CurrentPost())
}

func TestGenerate_WithoutPostDisallowed(t *testing.T) {
	c := newHarness(t, &fakeAgent{}, &fakeClipboard{}, &fakeGenerator{results: []generate.Result{{}}})

	err := c.Generate(context.Background())
	assert.ErrorIs(t, err, ErrNoPostSelected)
	assert.Equal(t, StateIdle, c.State())
}

func TestGenerate_FailurePreservesPost(t *testing.T) {
	agent := &fakeAgent{post: &page.Post{Text: "post body"}}
	gen := &fakeGenerator{results: []generate.Result{generate.Failure("API request timed out")}}
	c := newHarness(t, agent, &fakeClipboard{}, gen)

	err := c.DetectPost(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatePostSelected, c.State())
	assert.Equal(t, "API request timed out", c.LastError())
	require.NotNil(t, c.CurrentPost(), "post must survive a failed generation")

	// Retry without re-detection.
	gen.results = []generate.Result{{Success: true, Comment: "second try"}}
	require.NoError(t, c.Generate(context.Background()))
	assert.Equal(t, "second try", c.StagedComment())
	assert.Equal(t, StateReviewing, c.State())
}

func TestRegenerate_DiscardsStagedComment(t *testing.T) {
	agent := &fakeAgent{post: &page.Post{Text: "post body"}}
	gen := &fakeGenerator{results: []generate.Result{
		{Success: true, Comment: "first draft"},
		{Success: true, Comment: "second draft"},
	}}
	c := newHarness(t, agent, &fakeClipboard{}, gen)

	require.NoError(t, c.DetectPost(context.Background()))
	assert.Equal(t, "first draft", c.StagedComment())

	c.SetTone(generate.ToneFunny)
	c.SetHint("make it lighter")
	require.NoError(t, c.Generate(context.Background()))

	assert.Equal(t, "second draft", c.StagedComment())
	require.Len(t, gen.reqs, 2)
	assert.Equal(t, generate.ToneFunny, gen.reqs[1].Tone)
	assert.Equal(t, "make it lighter", gen.reqs[1].Hint)
	assert.Equal(t, gen.reqs[0].Content, gen.reqs[1].Content, "regeneration reuses the held post")
}

func TestCopy_RoundTripsThroughReviewing(t *testing.T) {
	agent := &fakeAgent{post: &page.Post{Text: "post body"}}
	gen := &fakeGenerator{results: []generate.Result{{Success: true, Comment: "copy me"}}}
	clip := &fakeClipboard{}
	c := newHarness(t, agent, clip, gen)

	require.NoError(t, c.DetectPost(context.Background()))
	require.NoError(t, c.Copy())

	assert.Equal(t, StateReviewing, c.State())
	assert.Equal(t, []string{"copy me"}, clip.written)
}

func TestCopy_PermissionDenied(t *testing.T) {
	agent := &fakeAgent{post: &page.Post{Text: "post body"}}
	gen := &fakeGenerator{results: []generate.Result{{Success: true, Comment: "copy me"}}}
	clip := &fakeClipboard{writeErr: errors.New("clipboard access denied")}
	c := newHarness(t, agent, clip, gen)

	require.NoError(t, c.DetectPost(context.Background()))
	err := c.Copy()
	require.Error(t, err)

	// Staged comment survives so the user can retry.
	assert.Equal(t, StateReviewing, c.State())
	assert.Equal(t, "copy me", c.StagedComment())
}

func TestPostComment_SuccessClosesInteraction(t *testing.T) {
	agent := &fakeAgent{post: &page.Post{Text: "post body"}}
	gen := &fakeGenerator{results: []generate.Result{{Success: true, Comment: "ship it"}}}
	c := newHarness(t, agent, &fakeClipboard{}, gen)

	require.NoError(t, c.DetectPost(context.Background()))
	require.NoError(t, c.PostComment(context.Background()))

	assert.Equal(t, StateIdle, c.State())
	assert.Empty(t, c.StagedComment())
	assert.Nil(t, c.CurrentPost())
	assert.Equal(t, []string{"ship it"}, agent.posted)
}

func TestPostComment_FailureKeepsStagedComment(t *testing.T) {
	agent := &fakeAgent{post: &page.Post{Text: "post body"}, postErr: errors.New("comment box not found")}
	gen := &fakeGenerator{results: []generate.Result{{Success: true, Comment: "ship it"}}}
	c := newHarness(t, agent, &fakeClipboard{}, gen)

	require.NoError(t, c.DetectPost(context.Background()))
	err := c.PostComment(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateReviewing, c.State())
	assert.Equal(t, "ship it", c.StagedComment(), "staged comment must survive a failed post")
}

func TestGenerate_AbandonedOnContextTeardown(t *testing.T) {
	agent := &fakeAgent{post: &page.Post{Text: "post body"}}
	gen := &fakeGenerator{
		results: []generate.Result{{Success: true, Comment: "late"}},
		block:   make(chan struct{}),
	}
	c := newHarness(t, agent, &fakeClipboard{}, gen)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := c.DetectPost(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatePostSelected, c.State())

	// Let the dispatcher finish; its response is discarded, not delivered.
	close(gen.block)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, c.StagedComment())
}

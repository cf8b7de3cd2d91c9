// Package page talks to the page-integration agent: the collaborator that
// reads the currently selected post from the host page and writes comments
// back into it. The agent is an external process reached over HTTP; this
// package only defines the contract and the client.
package page

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Post is the content captured from the currently focused post. It is
// immutable once captured; re-detection replaces it wholesale.
type Post struct {
	Text    string `json:"content"`
	Caption string `json:"caption,omitempty"`
}

// Agent reads posts from and writes comments into the host page.
type Agent interface {
	SelectedPost(ctx context.Context) (*Post, error)
	PostComment(ctx context.Context, comment string) error
}

// HTTPAgent is the HTTP client for an out-of-process page agent.
type HTTPAgent struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewHTTPAgent builds an agent client. A nil httpClient gets a 15 second
// default timeout.
func NewHTTPAgent(baseURL string, httpClient *http.Client, log zerolog.Logger) *HTTPAgent {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPAgent{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httpClient,
		log:     log,
	}
}

type selectedPostResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	Caption string `json:"caption,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SelectedPost asks the agent for the post currently in focus.
func (a *HTTPAgent) SelectedPost(ctx context.Context) (*Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/v1/selected-post", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("page agent unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page agent returned status %d", resp.StatusCode)
	}

	var body selectedPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to parse page agent response: %w", err)
	}

	if !body.Success {
		if body.Error != "" {
			return nil, fmt.Errorf("no eligible post: %s", body.Error)
		}
		return nil, fmt.Errorf("no eligible post selected")
	}

	a.log.Debug().Int("content_bytes", len(body.Content)).Msg("Captured selected post")
	return &Post{Text: body.Content, Caption: body.Caption}, nil
}

type postCommentRequest struct {
	Comment string `json:"comment"`
}

type postCommentResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PostComment asks the agent to submit the comment on the host page.
func (a *HTTPAgent) PostComment(ctx context.Context, comment string) error {
	payload, err := json.Marshal(postCommentRequest{Comment: comment})
	if err != nil {
		return fmt.Errorf("failed to marshal comment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/v1/comments", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("page agent unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("page agent returned status %d", resp.StatusCode)
	}

	var body postCommentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to parse page agent response: %w", err)
	}

	if !body.Success {
		if body.Error != "" {
			return fmt.Errorf("posting failed: %s", body.Error)
		}
		return fmt.Errorf("posting failed")
	}
	return nil
}

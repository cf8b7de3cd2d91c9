package page

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectedPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/v1/selected-post", r.URL.Path)
		json.NewEncoder(w).Encode(selectedPostResponse{
			Success: true,
			Content: "We shipped v2 today.",
			Caption: "celebration post",
		})
	}))
	defer server.Close()

	agent := NewHTTPAgent(server.URL, nil, zerolog.Nop())
	post, err := agent.SelectedPost(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "We shipped v2 today.", post.Text)
	assert.Equal(t, "celebration post", post.Caption)
}

func TestSelectedPost_NoEligiblePost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(selectedPostResponse{
			Success: false,
			Error:   "not on the feed page",
		})
	}))
	defer server.Close()

	agent := NewHTTPAgent(server.URL, nil, zerolog.Nop())
	_, err := agent.SelectedPost(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no eligible post")
	assert.Contains(t, err.Error(), "not on the feed page")
}

func TestSelectedPost_AgentUnreachable(t *testing.T) {
	agent := NewHTTPAgent("http://127.0.0.1:1", nil, zerolog.Nop())
	_, err := agent.SelectedPost(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page agent unreachable")
}

func TestPostComment(t *testing.T) {
	var received postCommentRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/comments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(postCommentResponse{Success: true})
	}))
	defer server.Close()

	agent := NewHTTPAgent(server.URL, nil, zerolog.Nop())
	err := agent.PostComment(context.Background(), "Great insight!")
	require.NoError(t, err)
	assert.Equal(t, "Great insight!", received.Comment)
}

func TestPostComment_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(postCommentResponse{Success: false, Error: "comment box not found"})
	}))
	defer server.Close()

	agent := NewHTTPAgent(server.URL, nil, zerolog.Nop())
	err := agent.PostComment(context.Background(), "Great insight!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comment box not found")
}

package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/skillmesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ model.Completion = (*Completion)(nil)
	_ model.Embedding  = (*Embedding)(nil)
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestCompletion_Complete(t *testing.T) {
	var body map[string]any
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "<plan></plan>"}}]
		}`))
	})

	c := NewCompletion(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL + "/v1"
	})

	out, err := c.Complete(context.Background(), "make a plan", model.CompletionSettings{
		Temperature:   0.5,
		MaxTokens:     1024,
		StopSequences: []string{"<!--"},
	})
	require.NoError(t, err)
	assert.Equal(t, "<plan></plan>", out)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.EqualValues(t, 1024, body["max_completion_tokens"])
	assert.Equal(t, []any{"<!--"}, body["stop"])
	msgs, _ := body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "make a plan", msgs[0].(map[string]any)["content"])
}

func TestCompletion_ErrorMapping(t *testing.T) {
	cases := map[int]model.ErrorCode{
		http.StatusTooManyRequests:     model.CodeThrottled,
		http.StatusUnauthorized:        model.CodeUnauthorized,
		http.StatusNotFound:            model.CodeModelNotFound,
		http.StatusBadRequest:          model.CodeInvalidRequest,
		http.StatusInternalServerError: model.CodeServiceUnavailable,
	}

	for status, code := range cases {
		srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "x", "param": "", "code": "x"}}`))
		})

		c := NewCompletion(func(o *Options) {
			o.APIKey = "test"
			o.BaseURL = srv.URL + "/v1"
		})

		_, err := c.Complete(context.Background(), "p", model.DefaultCompletionSettings())
		require.Error(t, err)
		assert.Equal(t, code, model.CodeOf(err), "status %d", status)
	}
}

func TestEmbedding_Embed(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-3-small",
			"usage": {"prompt_tokens": 2, "total_tokens": 2},
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0.0, 1.0]},
				{"object": "embedding", "index": 0, "embedding": [1.0, 0.0]}
			]
		}`))
	})

	e := NewEmbedding(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL + "/v1"
	})

	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, "openai", e.Info().Provider)
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/appforge/appforge-backend/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSSE(w http.ResponseWriter, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func TestAnthropicProvider_Ready(t *testing.T) {
	p := NewAnthropicProvider(AnthropicConfig{})
	err := p.Ready()
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration))

	err = p.Stream(context.Background(), StreamRequest{}, func(string) error { return nil })
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration))
}

func TestAnthropicProvider_Stream(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, "message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-sonnet-4-20250514","stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":1}}}`)
		writeSSE(w, "content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`)
		writeSSE(w, "content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Here is "}}`)
		writeSSE(w, "content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"your page."}}`)
		writeSSE(w, "content_block_stop", `{"type":"content_block_stop","index":0}`)
		writeSSE(w, "message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":4}}`)
		writeSSE(w, "message_stop", `{"type":"message_stop"}`)
	}))
	defer server.Close()

	p := NewAnthropicProvider(AnthropicConfig{
		APIKey:  "test-key",
		Options: []option.RequestOption{option.WithBaseURL(server.URL), option.WithMaxRetries(0)},
	})

	var tokens []string
	err := p.Stream(context.Background(), StreamRequest{
		System: "You are AppForge",
		Messages: []ChatMessage{
			{Role: "user", Content: "build me a page"},
			{Role: "assistant", Content: "ok"},
			{Role: "user", Content: "make it blue"},
		},
	}, func(tok string) error {
		tokens = append(tokens, tok)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Here is ", "your page."}, tokens)
	assert.Equal(t, DefaultAnthropicModel, body["model"])
	assert.Equal(t, float64(DefaultMaxTokens), body["max_tokens"])
	assert.Equal(t, true, body["stream"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 3)
}

func TestAnthropicProvider_RejectedRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`))
	}))
	defer server.Close()

	p := NewAnthropicProvider(AnthropicConfig{
		APIKey:  "test-key",
		Options: []option.RequestOption{option.WithBaseURL(server.URL), option.WithMaxRetries(0)},
	})

	called := false
	err := p.Stream(context.Background(), StreamRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, func(string) error {
		called = true
		return nil
	})

	assert.Error(t, err)
	assert.False(t, called)
}

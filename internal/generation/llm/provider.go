package llm

import "context"

// ChatMessage is one history entry sent to a provider
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamRequest is a single streaming completion call
type StreamRequest struct {
	System   string
	Messages []ChatMessage
}

// TokenFunc receives each text chunk in order. Returning an error aborts the
// stream.
type TokenFunc func(token string) error

// Provider streams text tokens from a language model.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string
	// Ready returns an apperr configuration error when credentials or
	// endpoints are missing. Checked before any stream is opened.
	Ready() error
	// Stream runs one completion and calls onToken for every text chunk.
	// It returns once the provider signals the end of the stream.
	Stream(ctx context.Context, req StreamRequest, onToken TokenFunc) error
}

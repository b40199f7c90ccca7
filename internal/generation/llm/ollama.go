package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/appforge/appforge-backend/internal/apperr"
)

const DefaultOllamaModel = "llama3:instruct"

// OllamaProvider streams completions from an Ollama server's /api/chat
// endpoint, which answers with newline-delimited JSON chunks.
type OllamaProvider struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewOllamaProvider creates a new OllamaProvider
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		// no client timeout: generations stream for minutes, ctx bounds them
		http: &http.Client{Timeout: 0},
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Ready() error {
	if p.baseURL == "" {
		return apperr.Configuration("OLLAMA_URL not configured")
	}
	return nil
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []ChatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

func (p *OllamaProvider) Stream(ctx context.Context, req StreamRequest, onToken TokenFunc) error {
	if err := p.Ready(); err != nil {
		return err
	}

	messages := make([]ChatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, req.Messages...)

	body, err := json.Marshal(ollamaChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   true,
		Options:  map[string]any{"temperature": 0.2, "num_predict": DefaultMaxTokens},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(b))
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ch ollamaChunk
		if err := json.Unmarshal(line, &ch); err != nil {
			return fmt.Errorf("ollama: malformed chunk: %w", err)
		}
		if ch.Error != "" {
			return fmt.Errorf("ollama: %s", ch.Error)
		}
		if ch.Message.Content != "" {
			if err := onToken(ch.Message.Content); err != nil {
				return err
			}
		}
		if ch.Done {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("ollama: read stream: %w", err)
	}
	return errors.New("ollama: stream ended without done marker")
}
